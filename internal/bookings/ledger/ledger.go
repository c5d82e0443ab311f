package ledger

import (
	"context"
	"fmt"
	"time"

	"rentals/pkg/model"
)

// BookingFinder returns the bookings of a property whose status holds dates and
// whose stay overlaps [checkIn, checkOut).
type BookingFinder interface {
	FindActiveOverlapping(ctx context.Context, propertyID string, checkIn, checkOut time.Time) ([]*model.Booking, error)
}

// Ledger answers availability questions from the stored bookings. It keeps no
// state of its own.
type Ledger struct {
	finder BookingFinder
}

func New(finder BookingFinder) *Ledger {
	return &Ledger{finder: finder}
}

// Overlaps reports whether the half-open ranges [a1, a2) and [b1, b2) intersect.
// A stay ending on the day another starts does not overlap it.
func Overlaps(a1, a2, b1, b2 time.Time) bool {
	return a1.Before(b2) && b1.Before(a2)
}

// Conflicts returns the active bookings that overlap the range, skipping excludingID.
func (l *Ledger) Conflicts(ctx context.Context, propertyID string, checkIn, checkOut time.Time, excludingID string) ([]*model.Booking, error) {
	candidates, err := l.finder.FindActiveOverlapping(ctx, propertyID, checkIn, checkOut)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings for property %s: %w", propertyID, err)
	}

	var conflicts []*model.Booking
	for _, b := range candidates {
		if excludingID != "" && b.ID == excludingID {
			continue
		}
		if !b.Status.IsActive() {
			continue
		}
		if Overlaps(b.CheckIn, b.CheckOut, checkIn, checkOut) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts, nil
}

// IsRangeFree reports whether no active booking of the property overlaps the range.
func (l *Ledger) IsRangeFree(ctx context.Context, propertyID string, checkIn, checkOut time.Time, excludingID string) (bool, error) {
	conflicts, err := l.Conflicts(ctx, propertyID, checkIn, checkOut, excludingID)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}
