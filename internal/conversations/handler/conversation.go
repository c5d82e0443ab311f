package handler

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"rentals/internal/conversations/service"
	apperrors "rentals/pkg/errors"
	httputil "rentals/pkg/http"
	"rentals/pkg/logger"
	"rentals/pkg/middleware"
	"rentals/pkg/model"
)

type ConversationHandler struct {
	service service.ConversationService
	log     *logger.Logger
}

func NewConversationHandler(service service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		log:     log,
	}
}

// ThreadResponse is a message list together with its day grouping.
type ThreadResponse struct {
	Messages []*model.Message  `json:"messages"`
	Days     []model.DayBucket `json:"days"`
}

type ReadResponse struct {
	Marked int64 `json:"marked"`
}

// GetOrCreate answers 201 when the conversation was created by this request
// and 200 when it already existed.
func (h *ConversationHandler) GetOrCreate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ConversationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "GetOrCreate", err)
		return
	}

	conversation, created, err := h.service.GetOrCreate(r.Context(), middleware.ActorFrom(r.Context()), &req)
	if err != nil {
		h.writeError(w, "GetOrCreate", err)
		return
	}

	write := httputil.WriteSuccess
	if created {
		write = httputil.WriteCreated
	}
	if err := write(w, conversation); err != nil {
		h.log.Error("failed to write response", "handler", "GetOrCreate", "created", created, "error", err)
	}
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	summaries, err := h.service.ListFor(r.Context(), middleware.ActorFrom(r.Context()))
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, summaries); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ConversationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	conversation, err := h.service.Get(r.Context(), ps.ByName("id"), middleware.ActorFrom(r.Context()))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, conversation); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

// ListMessages returns the thread grouped by calendar day in the ?tz= zone
// (IANA name, UTC when absent).
func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			h.writeError(w, "ListMessages", apperrors.InvalidInput("invalid tz parameter: "+tz))
			return
		}
		loc = parsed
	}

	messages, err := h.service.ListMessages(r.Context(), ps.ByName("id"), middleware.ActorFrom(r.Context()))
	if err != nil {
		h.writeError(w, "ListMessages", err)
		return
	}

	resp := ThreadResponse{
		Messages: messages,
		Days:     service.GroupByDay(messages, loc),
	}
	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "ListMessages", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ConversationHandler) AppendMessage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.MessageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "AppendMessage", err)
		return
	}

	message, err := h.service.AppendMessage(r.Context(), ps.ByName("id"), middleware.ActorFrom(r.Context()), &req)
	if err != nil {
		h.writeError(w, "AppendMessage", err)
		return
	}

	if err := httputil.WriteCreated(w, message); err != nil {
		h.log.Error("failed to write created response", "handler", "AppendMessage", "operation", "WriteCreated", "error", err)
	}
}

func (h *ConversationHandler) MarkConversationRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	n, err := h.service.MarkConversationRead(r.Context(), ps.ByName("id"), middleware.ActorFrom(r.Context()))
	if err != nil {
		h.writeError(w, "MarkConversationRead", err)
		return
	}

	if err := httputil.WriteSuccess(w, ReadResponse{Marked: n}); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkConversationRead", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ConversationHandler) MarkMessageRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	message, err := h.service.MarkAsRead(r.Context(), ps.ByName("id"), middleware.ActorFrom(r.Context()))
	if err != nil {
		h.writeError(w, "MarkMessageRead", err)
		return
	}

	if err := httputil.WriteSuccess(w, message); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkMessageRead", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ConversationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ConversationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/conversations", h.GetOrCreate)
	router.GET("/api/v1/conversations", h.List)
	router.GET("/api/v1/conversations/id/:id", h.GetByID)
	router.GET("/api/v1/conversations/id/:id/messages", h.ListMessages)
	router.POST("/api/v1/conversations/id/:id/messages", h.AppendMessage)
	router.PUT("/api/v1/conversations/id/:id/read", h.MarkConversationRead)
	router.PUT("/api/v1/messages/id/:id/read", h.MarkMessageRead)
}
