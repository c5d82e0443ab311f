package service

import "rentals/pkg/model"

type role uint8

const (
	roleGuest role = 1 << iota
	roleHost
)

type transition struct {
	from model.BookingStatus
	to   model.BookingStatus
}

// allowedTransitions maps each legal status change to the roles that may perform it.
var allowedTransitions = map[transition]role{
	{model.StatusPending, model.StatusConfirmed}:   roleHost,
	{model.StatusPending, model.StatusCancelled}:   roleHost | roleGuest,
	{model.StatusConfirmed, model.StatusCompleted}: roleHost,
	{model.StatusConfirmed, model.StatusCancelled}: roleHost | roleGuest,
}

func rolesOf(b *model.Booking, actorID string) role {
	var r role
	if actorID == "" {
		return r
	}
	if actorID == b.GuestID {
		r |= roleGuest
	}
	if actorID == b.HostID {
		r |= roleHost
	}
	return r
}

// canTransition reports whether actorID may move b to the given status.
func canTransition(b *model.Booking, actorID string, to model.BookingStatus) bool {
	allowed, ok := allowedTransitions[transition{b.Status, to}]
	if !ok {
		return false
	}
	return allowed&rolesOf(b, actorID) != 0
}
