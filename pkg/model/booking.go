package model

import (
	"math"
	"time"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// ActiveStatuses are the statuses that hold a property's date range.
var ActiveStatuses = []BookingStatus{StatusPending, StatusConfirmed}

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch status := BookingStatus(s); status {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return status, true
	}
	return "", false
}

func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Booking struct {
	ID         string        `json:"id" bson:"_id"`
	PropertyID string        `json:"property_id" bson:"property_id"`
	GuestID    string        `json:"guest_id" bson:"guest_id"`
	HostID     string        `json:"host_id" bson:"host_id"`
	CheckIn    time.Time     `json:"check_in" bson:"check_in"`
	CheckOut   time.Time     `json:"check_out" bson:"check_out"`
	Guests     int           `json:"guests" bson:"guests"`
	TotalPrice Money         `json:"total_price" bson:"total_price"`
	Status     BookingStatus `json:"status" bson:"status"`
	CreatedAt  time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" bson:"updated_at"`
}

// BookingRequest is the guest's input for a new booking. Dates are calendar dates.
type BookingRequest struct {
	PropertyID string `json:"property_id" validate:"required,max=64"`
	CheckIn    string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut   string `json:"check_out" validate:"required,datetime=2006-01-02"`
	Guests     int    `json:"guests" validate:"required,min=1"`
}

type StatusUpdate struct {
	Status string `json:"status" validate:"required,booking_status"`
}

// DateLayout is the wire format of check-in and check-out dates.
const DateLayout = "2006-01-02"

// ParseDate parses a calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DateOf truncates t to midnight UTC of its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Nights counts the nights between check-in and check-out, rounding partial days up.
func Nights(checkIn, checkOut time.Time) int {
	if !checkOut.After(checkIn) {
		return 0
	}
	return int(math.Ceil(checkOut.Sub(checkIn).Hours() / 24))
}

// IsParticipant reports whether userID is the booking's guest or host.
func (b *Booking) IsParticipant(userID string) bool {
	return userID != "" && (userID == b.GuestID || userID == b.HostID)
}

// PropertyLedger is the per-property document every booking write for that property
// updates first, so that concurrent writers for one property serialize on it.
type PropertyLedger struct {
	PropertyID string    `json:"property_id" bson:"_id"`
	Version    int64     `json:"version" bson:"version"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}
