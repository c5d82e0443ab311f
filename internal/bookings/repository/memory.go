package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	bookingserrors "rentals/internal/bookings/errors"
	"rentals/pkg/model"
)

// MemoryBookingRepository keeps bookings in process memory. A mutex per property
// serializes WithinPropertyScope calls.
type MemoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]model.Booking

	scopesMu sync.Mutex
	scopes   map[string]*sync.Mutex
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		bookings: make(map[string]model.Booking),
		scopes:   make(map[string]*sync.Mutex),
	}
}

func (r *MemoryBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[booking.ID]; exists {
		return bookingserrors.ErrDuplicateID
	}
	r.bookings[booking.ID] = *booking
	return nil
}

func (r *MemoryBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return &b, nil
}

func (r *MemoryBookingRepository) FindActiveOverlapping(ctx context.Context, propertyID string, checkIn, checkOut time.Time) ([]*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Booking
	for _, b := range r.bookings {
		if b.PropertyID != propertyID || !b.Status.IsActive() {
			continue
		}
		if b.CheckIn.Before(checkOut) && checkIn.Before(b.CheckOut) {
			b := b
			out = append(out, &b)
		}
	}
	sortBookings(out)
	return out, nil
}

func (r *MemoryBookingRepository) matching(filter BookingFilter) []*model.Booking {
	var out []*model.Booking
	for _, b := range r.bookings {
		if filter.GuestID != "" && b.GuestID != filter.GuestID {
			continue
		}
		if filter.HostID != "" && b.HostID != filter.HostID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		b := b
		out = append(out, &b)
	}
	return out
}

func (r *MemoryBookingRepository) Find(ctx context.Context, filter BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := r.matching(filter)
	sortBookings(out)

	if offset >= int64(len(out)) {
		return []*model.Booking{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryBookingRepository) Count(ctx context.Context, filter BookingFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.matching(filter))), nil
}

func (r *MemoryBookingRepository) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	if b.Status != from {
		return bookingserrors.ErrStatusChanged
	}
	b.Status = to
	b.UpdatedAt = at
	r.bookings[id] = b
	return nil
}

func (r *MemoryBookingRepository) WithinPropertyScope(ctx context.Context, propertyID string, fn func(ctx context.Context) error) error {
	lock := r.scopeFor(propertyID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (r *MemoryBookingRepository) scopeFor(propertyID string) *sync.Mutex {
	r.scopesMu.Lock()
	defer r.scopesMu.Unlock()

	lock, ok := r.scopes[propertyID]
	if !ok {
		lock = &sync.Mutex{}
		r.scopes[propertyID] = lock
	}
	return lock
}

func sortBookings(bookings []*model.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].CheckIn.Equal(bookings[j].CheckIn) {
			return bookings[i].CheckIn.Before(bookings[j].CheckIn)
		}
		return bookings[i].ID < bookings[j].ID
	})
}
