package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	bookingserrors "rentals/internal/bookings/errors"
	"rentals/pkg/model"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func seed(t *testing.T, r *MemoryBookingRepository, bookings ...model.Booking) {
	t.Helper()
	for i := range bookings {
		if err := r.Create(context.Background(), &bookings[i]); err != nil {
			t.Fatalf("Create(%s) error = %v", bookings[i].ID, err)
		}
	}
}

func TestMemoryBookingRepository_CreateDuplicate(t *testing.T) {
	r := NewMemoryBookingRepository()
	seed(t, r, model.Booking{ID: "b-1"})

	err := r.Create(context.Background(), &model.Booking{ID: "b-1"})
	if !errors.Is(err, bookingserrors.ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestMemoryBookingRepository_FindActiveOverlapping(t *testing.T) {
	r := NewMemoryBookingRepository()
	seed(t, r,
		model.Booking{ID: "a", PropertyID: "p-1", CheckIn: day(1), CheckOut: day(4), Status: model.StatusPending},
		model.Booking{ID: "b", PropertyID: "p-1", CheckIn: day(4), CheckOut: day(6), Status: model.StatusConfirmed},
		model.Booking{ID: "c", PropertyID: "p-1", CheckIn: day(2), CheckOut: day(3), Status: model.StatusCancelled},
		model.Booking{ID: "d", PropertyID: "p-2", CheckIn: day(2), CheckOut: day(3), Status: model.StatusPending},
	)

	got, err := r.FindActiveOverlapping(context.Background(), "p-1", day(3), day(5))
	if err != nil {
		t.Fatalf("FindActiveOverlapping() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("expected [a b], got %v", got)
	}
}

func TestMemoryBookingRepository_FindAndCount(t *testing.T) {
	r := NewMemoryBookingRepository()
	seed(t, r,
		model.Booking{ID: "a", GuestID: "g-1", HostID: "h-1", CheckIn: day(5), Status: model.StatusPending},
		model.Booking{ID: "b", GuestID: "g-1", HostID: "h-2", CheckIn: day(1), Status: model.StatusCancelled},
		model.Booking{ID: "c", GuestID: "g-2", HostID: "h-1", CheckIn: day(3), Status: model.StatusPending},
	)
	ctx := context.Background()

	tests := []struct {
		name    string
		filter  BookingFilter
		wantIDs []string
	}{
		{"by guest", BookingFilter{GuestID: "g-1"}, []string{"b", "a"}},
		{"by host", BookingFilter{HostID: "h-1"}, []string{"c", "a"}},
		{"by host and status", BookingFilter{HostID: "h-1", Status: model.StatusPending}, []string{"c", "a"}},
		{"by status", BookingFilter{Status: model.StatusCancelled}, []string{"b"}},
		{"no match", BookingFilter{GuestID: "nobody"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Find(ctx, tt.filter, 10, 0)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("expected %d bookings, got %d", len(tt.wantIDs), len(got))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
				}
			}

			count, err := r.Count(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if count != int64(len(tt.wantIDs)) {
				t.Errorf("Count() = %d, want %d", count, len(tt.wantIDs))
			}
		})
	}

	page, err := r.Find(ctx, BookingFilter{}, 1, 1)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(page) != 1 || page[0].ID != "c" {
		t.Errorf("expected second page to be [c], got %v", page)
	}
}

func TestMemoryBookingRepository_UpdateStatus(t *testing.T) {
	r := NewMemoryBookingRepository()
	seed(t, r, model.Booking{ID: "b-1", Status: model.StatusPending})
	ctx := context.Background()
	at := day(2)

	if err := r.UpdateStatus(ctx, "b-1", model.StatusPending, model.StatusConfirmed, at); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	b, _ := r.FindByID(ctx, "b-1")
	if b.Status != model.StatusConfirmed || !b.UpdatedAt.Equal(at) {
		t.Errorf("unexpected booking after update: %+v", b)
	}

	err := r.UpdateStatus(ctx, "b-1", model.StatusPending, model.StatusCancelled, at)
	if !errors.Is(err, bookingserrors.ErrStatusChanged) {
		t.Errorf("expected ErrStatusChanged, got %v", err)
	}

	err = r.UpdateStatus(ctx, "missing", model.StatusPending, model.StatusCancelled, at)
	if !errors.Is(err, bookingserrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryBookingRepository_WithinPropertyScopeSerializes(t *testing.T) {
	r := NewMemoryBookingRepository()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.WithinPropertyScope(ctx, "p-1", func(context.Context) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("expected at most one scope at a time, saw %d", maxSeen)
	}
}
