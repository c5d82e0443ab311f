package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	bookingserrors "rentals/internal/bookings/errors"
	"rentals/internal/bookings/ledger"
	"rentals/internal/bookings/repository"
	"rentals/internal/bookings/validator"
	propertyrepo "rentals/internal/properties/repository"
	"rentals/pkg/config"
	apperrors "rentals/pkg/errors"
	"rentals/pkg/events"
	"rentals/pkg/model"
	"rentals/pkg/validation"
)

type BookingService interface {
	Create(ctx context.Context, guestID string, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, id string, actorID string) (*model.Booking, error)
	TransitionStatus(ctx context.Context, id string, actorID string, to model.BookingStatus) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id string, actorID string, update *model.StatusUpdate) (*model.Booking, error)
	ListForGuest(ctx context.Context, guestID string, status model.BookingStatus, limit int, offset int64) ([]*model.Booking, int64, error)
	ListForHost(ctx context.Context, hostID string, status model.BookingStatus, limit int, offset int64) ([]*model.Booking, int64, error)
}

type bookingService struct {
	repo       repository.BookingRepository
	properties propertyrepo.PropertyRepository
	ledger     *ledger.Ledger
	validator  *validator.BookingValidator
	publisher  events.Publisher
	cfg        *config.Config
	now        func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	properties propertyrepo.PropertyRepository,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:       repo,
		properties: properties,
		ledger:     ledger.New(repo),
		validator:  validator,
		publisher:  publisher,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, guestID string, req *model.BookingRequest) (*model.Booking, error) {
	if guestID == "" {
		return nil, apperrors.Unauthorized("Actor identity is required")
	}
	if err := s.validator.ValidateRequest(req); err != nil {
		return nil, s.validationFailed("Booking validation failed", err)
	}

	// Formats were checked above.
	checkIn, _ := model.ParseDate(req.CheckIn)
	checkOut, _ := model.ParseDate(req.CheckOut)

	property, err := s.properties.FindByID(ctx, req.PropertyID)
	if err != nil {
		if errors.Is(err, propertyrepo.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Property", req.PropertyID)
		}
		s.cfg.Log.Error("Failed to load property", "property_id", req.PropertyID, "error", err)
		return nil, apperrors.Internal("Failed to load property", err)
	}

	now := s.now().UTC()
	if err := s.validator.ValidateStay(checkIn, checkOut, req.Guests, property, now); err != nil {
		return nil, s.validationFailed("Booking validation failed", err)
	}

	nights := model.Nights(checkIn, checkOut)
	booking := &model.Booking{
		ID:         uuid.NewString(),
		PropertyID: property.ID,
		GuestID:    guestID,
		HostID:     property.HostID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guests:     req.Guests,
		TotalPrice: property.PricePerNight.Mul(nights),
		Status:     model.StatusPending,
		CreatedAt:  now.Truncate(time.Millisecond),
		UpdatedAt:  now.Truncate(time.Millisecond),
	}

	err = s.repo.WithinPropertyScope(ctx, property.ID, func(ctx context.Context) error {
		if err := s.ensureRangeFree(ctx, booking, ""); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeAvailabilityConflict) {
			s.cfg.Log.Warn("Booking rejected, dates unavailable",
				"property_id", booking.PropertyID,
				"check_in", req.CheckIn,
				"check_out", req.CheckOut,
			)
			return nil, err
		}
		s.cfg.Log.Error("Failed to create booking", "property_id", booking.PropertyID, "error", err)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"property_id", booking.PropertyID,
		"guest_id", booking.GuestID,
		"check_in", req.CheckIn,
		"check_out", req.CheckOut,
		"nights", nights,
		"total_price", booking.TotalPrice.String(),
	)
	s.emit(ctx, events.BookingCreated, booking, guestID)
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string, actorID string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !booking.IsParticipant(actorID) {
		s.cfg.Log.Warn("Booking access denied", "id", id, "actor_id", actorID)
		return nil, apperrors.Forbidden("You are not a participant of this booking")
	}
	return booking, nil
}

// UpdateStatus validates a status change request and applies it with TransitionStatus.
func (s *bookingService) UpdateStatus(ctx context.Context, id string, actorID string, update *model.StatusUpdate) (*model.Booking, error) {
	if err := s.validator.ValidateStatusUpdate(update); err != nil {
		return nil, s.validationFailed("Status update validation failed", err)
	}
	to, _ := model.ParseBookingStatus(update.Status)
	return s.TransitionStatus(ctx, id, actorID, to)
}

// TransitionStatus moves a booking along its lifecycle. The write only applies if
// the booking still has the status it was read with, so of two concurrent
// transitions at most one succeeds.
func (s *bookingService) TransitionStatus(ctx context.Context, id string, actorID string, to model.BookingStatus) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	from := booking.Status
	if !canTransition(booking, actorID, to) {
		s.cfg.Log.Warn("Booking transition rejected",
			"id", id,
			"actor_id", actorID,
			"from", from,
			"to", to,
			"from_terminal", from.IsTerminal(),
		)
		return nil, apperrors.InvalidTransition(string(from), string(to))
	}

	now := s.now().UTC()
	if to == model.StatusCompleted && now.Before(booking.CheckOut) {
		s.cfg.Log.Warn("Booking completion rejected before check-out",
			"id", id,
			"check_out", booking.CheckOut,
		)
		return nil, apperrors.InvalidTransition(string(from), string(to)).
			WithDetails(map[string]any{
				"from":   string(from),
				"to":     string(to),
				"reason": "stay has not ended",
			})
	}

	at := now.Truncate(time.Millisecond)
	if to == model.StatusConfirmed {
		err = s.repo.WithinPropertyScope(ctx, booking.PropertyID, func(ctx context.Context) error {
			if err := s.ensureRangeFree(ctx, booking, booking.ID); err != nil {
				return err
			}
			return s.repo.UpdateStatus(ctx, id, from, to, at)
		})
	} else {
		err = s.repo.UpdateStatus(ctx, id, from, to, at)
	}

	if err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrStatusChanged):
			s.cfg.Log.Warn("Booking status changed concurrently", "id", id, "from", from, "to", to)
			return nil, s.staleTransition(ctx, id, from, to)
		case errors.Is(err, bookingserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Booking", id)
		case apperrors.IsAppError(err):
			s.cfg.Log.Warn("Booking transition failed", "id", id, "to", to, "error", err)
			return nil, err
		default:
			s.cfg.Log.Error("Failed to update booking status", "id", id, "error", err)
			return nil, apperrors.Internal("Failed to update booking status", err)
		}
	}

	booking.Status = to
	booking.UpdatedAt = at

	s.cfg.Log.Info("Booking status updated successfully",
		"id", id,
		"actor_id", actorID,
		"from", from,
		"to", to,
	)
	s.emit(ctx, events.BookingStatusChanged, booking, actorID)
	return booking, nil
}

func (s *bookingService) ListForGuest(ctx context.Context, guestID string, status model.BookingStatus, limit int, offset int64) ([]*model.Booking, int64, error) {
	if guestID == "" {
		return nil, 0, apperrors.Unauthorized("Actor identity is required")
	}
	return s.list(ctx, repository.BookingFilter{GuestID: guestID, Status: status}, limit, offset)
}

func (s *bookingService) ListForHost(ctx context.Context, hostID string, status model.BookingStatus, limit int, offset int64) ([]*model.Booking, int64, error) {
	if hostID == "" {
		return nil, 0, apperrors.Unauthorized("Actor identity is required")
	}
	return s.list(ctx, repository.BookingFilter{HostID: hostID, Status: status}, limit, offset)
}

func (s *bookingService) list(ctx context.Context, filter repository.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings", "filter", filter, "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.Find(ctx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list bookings", "filter", filter, "error", err)
			errFind = apperrors.Internal("Failed to retrieve bookings", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	s.cfg.Log.Debug("Booking listing completed",
		"guest_id", filter.GuestID,
		"host_id", filter.HostID,
		"status", filter.Status,
		"count", len(bookings),
		"total_count", count,
	)
	return bookings, count, nil
}

// --- Helpers ---

func (s *bookingService) find(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		s.cfg.Log.Error("Failed to retrieve booking", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) ensureRangeFree(ctx context.Context, booking *model.Booking, excludingID string) error {
	conflicts, err := s.ledger.Conflicts(ctx, booking.PropertyID, booking.CheckIn, booking.CheckOut, excludingID)
	if err != nil {
		return apperrors.Internal("Failed to check availability", err)
	}
	if len(conflicts) > 0 {
		c := conflicts[0]
		return apperrors.AvailabilityConflict(fmt.Sprintf(
			"Property is not available from %s to %s",
			booking.CheckIn.Format(model.DateLayout),
			booking.CheckOut.Format(model.DateLayout),
		)).WithDetails(map[string]any{
			"property_id":        booking.PropertyID,
			"conflict_check_in":  c.CheckIn.Format(model.DateLayout),
			"conflict_check_out": c.CheckOut.Format(model.DateLayout),
		})
	}
	return nil
}

// staleTransition rereads a booking whose status moved under us and reports the
// transition against the status it now has.
func (s *bookingService) staleTransition(ctx context.Context, id string, from, to model.BookingStatus) error {
	current, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != from {
		from = current.Status
	}
	return apperrors.InvalidTransition(string(from), string(to))
}

func (s *bookingService) validationFailed(message string, err error) error {
	s.cfg.Log.Warn(message, "error", err)
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

func (s *bookingService) emit(ctx context.Context, eventType string, booking *model.Booking, actorID string) {
	events.Emit(ctx, s.publisher, s.cfg.Log, events.Event{
		Type:        eventType,
		AggregateID: booking.ID,
		ActorID:     actorID,
		OccurredAt:  booking.UpdatedAt,
		Payload:     booking,
	})
}
