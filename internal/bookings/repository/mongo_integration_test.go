//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	bookingserrors "rentals/internal/bookings/errors"
	"rentals/internal/bookings/repository"
	"rentals/internal/testutil"
	"rentals/pkg/model"
)

func newBooking(id, propertyID string, in, out time.Time) *model.Booking {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Booking{
		ID:         id,
		PropertyID: propertyID,
		GuestID:    "guest-" + id,
		HostID:     "host-1",
		CheckIn:    in,
		CheckOut:   out,
		Guests:     1,
		TotalPrice: 10000,
		Status:     model.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestMongoBookingRepository_ScopeSerializesCreates(t *testing.T) {
	cfg := testutil.MongoConfig(t)
	repo := repository.NewMongoBookingRepository(cfg)
	ctx := context.Background()

	in := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	out := in.AddDate(0, 0, 3)

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	finished := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.WithinPropertyScope(ctx, "prop-1", func(ctx context.Context) error {
				existing, err := repo.FindActiveOverlapping(ctx, "prop-1", in, out)
				if err != nil {
					return err
				}
				if len(existing) > 0 {
					return nil
				}
				return repo.Create(ctx, newBooking(fmt.Sprintf("b-%d", i), "prop-1", in, out))
			})
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			mu.Lock()
			finished++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	n, err := repo.Count(ctx, repository.BookingFilter{HostID: "host-1"})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected exactly one booking after %d scoped attempts, got %d", finished, n)
	}
}

func TestMongoBookingRepository_UpdateStatusIsConditional(t *testing.T) {
	cfg := testutil.MongoConfig(t)
	repo := repository.NewMongoBookingRepository(cfg)
	ctx := context.Background()

	in := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.Create(ctx, newBooking("b-1", "prop-2", in, in.AddDate(0, 0, 2))); err != nil {
		t.Fatalf("Create: %v", err)
	}

	at := time.Now().UTC().Truncate(time.Millisecond)
	if err := repo.UpdateStatus(ctx, "b-1", model.StatusPending, model.StatusConfirmed, at); err != nil {
		t.Fatalf("first UpdateStatus: %v", err)
	}
	err := repo.UpdateStatus(ctx, "b-1", model.StatusPending, model.StatusCancelled, at)
	if !errors.Is(err, bookingserrors.ErrStatusChanged) {
		t.Errorf("expected ErrStatusChanged, got %v", err)
	}
	err = repo.UpdateStatus(ctx, "missing", model.StatusPending, model.StatusCancelled, at)
	if !errors.Is(err, bookingserrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	got, err := repo.FindByID(ctx, "b-1")
	if err != nil || got.Status != model.StatusConfirmed {
		t.Errorf("FindByID() = %+v, %v", got, err)
	}
}
