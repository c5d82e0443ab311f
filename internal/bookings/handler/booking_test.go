package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	apperrors "rentals/pkg/errors"
	"rentals/pkg/logger"
	"rentals/pkg/middleware"
	"rentals/pkg/model"
)

type mockBookingService struct {
	createFunc     func(ctx context.Context, guestID string, req *model.BookingRequest) (*model.Booking, error)
	getByIDFunc    func(ctx context.Context, id, actorID string) (*model.Booking, error)
	transitionFunc func(ctx context.Context, id, actorID string, to model.BookingStatus) (*model.Booking, error)
	updateFunc     func(ctx context.Context, id, actorID string, update *model.StatusUpdate) (*model.Booking, error)
	listGuestFunc  func(ctx context.Context, guestID string, status model.BookingStatus, limit int, offset int64) ([]*model.Booking, int64, error)
	listHostFunc   func(ctx context.Context, hostID string, status model.BookingStatus, limit int, offset int64) ([]*model.Booking, int64, error)
}

func (m *mockBookingService) Create(ctx context.Context, guestID string, req *model.BookingRequest) (*model.Booking, error) {
	return m.createFunc(ctx, guestID, req)
}

func (m *mockBookingService) GetByID(ctx context.Context, id, actorID string) (*model.Booking, error) {
	return m.getByIDFunc(ctx, id, actorID)
}

func (m *mockBookingService) TransitionStatus(ctx context.Context, id, actorID string, to model.BookingStatus) (*model.Booking, error) {
	return m.transitionFunc(ctx, id, actorID, to)
}

func (m *mockBookingService) UpdateStatus(ctx context.Context, id, actorID string, update *model.StatusUpdate) (*model.Booking, error) {
	return m.updateFunc(ctx, id, actorID, update)
}

func (m *mockBookingService) ListForGuest(ctx context.Context, guestID string, status model.BookingStatus, limit int, offset int64) ([]*model.Booking, int64, error) {
	return m.listGuestFunc(ctx, guestID, status, limit, offset)
}

func (m *mockBookingService) ListForHost(ctx context.Context, hostID string, status model.BookingStatus, limit int, offset int64) ([]*model.Booking, int64, error) {
	return m.listHostFunc(ctx, hostID, status, limit, offset)
}

func newRequest(method, target, body, actor string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp apperrors.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp.Code
}

func TestCreate(t *testing.T) {
	var gotGuest string
	var gotReq *model.BookingRequest
	svc := &mockBookingService{
		createFunc: func(_ context.Context, guestID string, req *model.BookingRequest) (*model.Booking, error) {
			gotGuest, gotReq = guestID, req
			return &model.Booking{ID: "b-1", Status: model.StatusPending, TotalPrice: 30000}, nil
		},
	}
	h := NewBookingHandler(svc, logger.Discard())

	body := `{"property_id":"p-1","check_in":"2024-03-01","check_out":"2024-03-04","guests":2}`
	w := httptest.NewRecorder()
	h.Create(w, newRequest(http.MethodPost, "/api/v1/bookings", body, "guest-1"), httprouter.Params{})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if gotGuest != "guest-1" || gotReq.PropertyID != "p-1" || gotReq.Guests != 2 {
		t.Errorf("service received guest=%s req=%+v", gotGuest, gotReq)
	}
	if !strings.Contains(w.Body.String(), `"total_price":300.00`) {
		t.Errorf("expected decimal total price in body, got %s", w.Body.String())
	}
}

func TestCreate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"malformed body", `{"property_id":`, nil, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"unknown field", `{"price":1}`, nil, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"validation", `{"property_id":"p-1"}`, apperrors.Validation("bad", nil), http.StatusUnprocessableEntity, apperrors.CodeValidation},
		{"conflict", `{"property_id":"p-1"}`, apperrors.AvailabilityConflict("taken"), http.StatusConflict, apperrors.CodeAvailabilityConflict},
		{"property missing", `{"property_id":"p-1"}`, apperrors.NotFound("Property"), http.StatusNotFound, apperrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBookingService{
				createFunc: func(context.Context, string, *model.BookingRequest) (*model.Booking, error) {
					return nil, tt.svcErr
				},
			}
			h := NewBookingHandler(svc, logger.Discard())
			w := httptest.NewRecorder()

			h.Create(w, newRequest(http.MethodPost, "/api/v1/bookings", tt.body, "guest-1"), httprouter.Params{})

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if code := errorCode(t, w); code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, code)
			}
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantTo     string
	}{
		{"confirm", `{"status":"confirmed"}`, nil, http.StatusOK, "confirmed"},
		{"unknown status", `{"status":"archived"}`, apperrors.Validation("Status update validation failed", nil), http.StatusUnprocessableEntity, "archived"},
		{"illegal transition", `{"status":"completed"}`, apperrors.InvalidTransition("pending", "completed"), http.StatusConflict, "completed"},
		{"not found", `{"status":"cancelled"}`, apperrors.NotFoundWithID("Booking", "b-1"), http.StatusNotFound, "cancelled"},
		{"unknown field", `{"state":"confirmed"}`, nil, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID, gotActor, gotTo string
			svc := &mockBookingService{
				updateFunc: func(_ context.Context, id, actorID string, update *model.StatusUpdate) (*model.Booking, error) {
					gotID, gotActor, gotTo = id, actorID, update.Status
					if tt.svcErr != nil {
						return nil, tt.svcErr
					}
					return &model.Booking{ID: id, Status: model.BookingStatus(update.Status)}, nil
				},
			}
			h := NewBookingHandler(svc, logger.Discard())
			w := httptest.NewRecorder()
			ps := httprouter.Params{{Key: "id", Value: "b-1"}}

			h.UpdateStatus(w, newRequest(http.MethodPatch, "/api/v1/bookings/id/b-1/status", tt.body, "host-1"), ps)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if gotTo != tt.wantTo {
				t.Errorf("service received status %q, want %q", gotTo, tt.wantTo)
			}
			if tt.wantTo != "" && (gotID != "b-1" || gotActor != "host-1") {
				t.Errorf("service received id=%s actor=%s", gotID, gotActor)
			}
		})
	}
}

func TestGetByID_Forbidden(t *testing.T) {
	svc := &mockBookingService{
		getByIDFunc: func(context.Context, string, string) (*model.Booking, error) {
			return nil, apperrors.Forbidden("not yours")
		},
	}
	h := NewBookingHandler(svc, logger.Discard())
	w := httptest.NewRecorder()

	h.GetByID(w, newRequest(http.MethodGet, "/api/v1/bookings/id/b-1", "", "stranger"), httprouter.Params{{Key: "id", Value: "b-1"}})

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestListHost_QueryParameters(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
		wantOffset int64
		wantFilter model.BookingStatus
	}{
		{"defaults", "", http.StatusOK, 10, 0, ""},
		{"status filter", "?status=pending&limit=5&offset=10", http.StatusOK, 5, 10, model.StatusPending},
		{"limit capped", "?limit=1000", http.StatusOK, 100, 0, ""},
		{"invalid status", "?status=archived", http.StatusBadRequest, 0, 0, ""},
		{"invalid limit", "?limit=abc", http.StatusBadRequest, 0, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLimit int
			var gotOffset int64
			var gotStatus model.BookingStatus
			var gotHost string
			svc := &mockBookingService{
				listHostFunc: func(_ context.Context, hostID string, status model.BookingStatus, limit int, offset int64) ([]*model.Booking, int64, error) {
					gotHost, gotStatus, gotLimit, gotOffset = hostID, status, limit, offset
					return []*model.Booking{}, 0, nil
				},
			}
			h := NewBookingHandler(svc, logger.Discard())
			w := httptest.NewRecorder()

			h.ListHost(w, newRequest(http.MethodGet, "/api/v1/bookings/host"+tt.query, "", "host-1"), httprouter.Params{})

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if gotHost != "host-1" || gotStatus != tt.wantFilter || gotLimit != tt.wantLimit || gotOffset != tt.wantOffset {
				t.Errorf("service received host=%s status=%s limit=%d offset=%d", gotHost, gotStatus, gotLimit, gotOffset)
			}
		})
	}
}

func TestRegisterRoutes(t *testing.T) {
	svc := &mockBookingService{
		listGuestFunc: func(context.Context, string, model.BookingStatus, int, int64) ([]*model.Booking, int64, error) {
			return []*model.Booking{{ID: "b-1"}}, 1, nil
		},
	}
	router := httprouter.New()
	NewBookingHandler(svc, logger.Discard()).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newRequest(http.MethodGet, "/api/v1/bookings/mine", "", "guest-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Data       []model.Booking `json:"data"`
		TotalCount int64           `json:"total_count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalCount != 1 || len(resp.Data) != 1 || resp.Data[0].ID != "b-1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}
