package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"studiobook/internal/sessions/service"
	"studiobook/pkg/auth"
	apperrors "studiobook/pkg/errors"
	httputil "studiobook/pkg/http"
	"studiobook/pkg/logger"
	"studiobook/pkg/model"
)

type SessionHandler struct {
	service service.SessionService
	logger  *logger.Logger
}

func NewSessionHandler(svc service.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		service: svc,
		logger:  log,
	}
}

func (h *SessionHandler) RegisterRoutes(router *httprouter.Router) {
	router.HandlerFunc(http.MethodPost, "/api/v1/sessions", h.Create)
	router.HandlerFunc(http.MethodGet, "/api/v1/sessions", h.List)
	router.Handle(http.MethodGet, "/api/v1/sessions/id/:id", h.GetByID)
	router.Handle(http.MethodPut, "/api/v1/sessions/id/:id/status", h.UpdateStatus)
	router.Handle(http.MethodPut, "/api/v1/sessions/id/:id/reschedule", h.Reschedule)
	router.Handle(http.MethodPut, "/api/v1/sessions/id/:id/payment", h.UpdatePayment)
	router.Handle(http.MethodDelete, "/api/v1/sessions/id/:id", h.Cancel)
	router.Handle(http.MethodDelete, "/api/v1/sessions/id/:id/permanent", h.Delete)
	router.Handle(http.MethodGet, "/api/v1/sessions/calendar/month/:year/:month", h.CalendarMonth)
	router.Handle(http.MethodGet, "/api/v1/sessions/calendar/week/:year/:week", h.CalendarWeek)
	router.Handle(http.MethodGet, "/api/v1/sessions/calendar/day/:year/:month/:day", h.CalendarDay)
}

type createSessionRequest struct {
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           time.Time  `json:"end_time"`
	IsRecurring       bool       `json:"is_recurring"`
	RecurrenceType    string     `json:"recurrence_type"`
	RecurrenceEndDate *time.Time `json:"recurrence_end_date"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type rescheduleRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("invalid JSON body"))
		return
	}

	session := &model.Session{
		Title:             req.Title,
		Description:       req.Description,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		IsRecurring:       req.IsRecurring,
		RecurrenceType:    model.RecurrenceType(req.RecurrenceType),
		RecurrenceEndDate: req.RecurrenceEndDate,
	}

	created, err := h.service.Create(r.Context(), principal, session)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("session created",
		"session_id", created.ID,
		"user_id", principal.ID,
		"is_recurring", created.IsRecurring,
	)

	if writeErr := httputil.WriteCreated(w, created); writeErr != nil {
		h.logger.Error("failed to write response", "error", writeErr)
	}
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	sessions, total, err := h.service.List(r.Context(), principal, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if writeErr := httputil.WritePaginated(w, sessions, total, limit, offset); writeErr != nil {
		h.logger.Error("failed to write response", "error", writeErr)
	}
}

func (h *SessionHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	session, err := h.service.GetByID(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if writeErr := httputil.WriteSuccess(w, session); writeErr != nil {
		h.logger.Error("failed to write response", "error", writeErr)
	}
}

func (h *SessionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("invalid JSON body"))
		return
	}

	session, err := h.service.UpdateStatus(r.Context(), principal, ps.ByName("id"), model.Status(req.Status), req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("session status updated",
		"session_id", session.ID,
		"status", session.Status,
		"updated_by", principal.ID,
	)

	if writeErr := httputil.WriteSuccess(w, session); writeErr != nil {
		h.logger.Error("failed to write response", "error", writeErr)
	}
}

func (h *SessionHandler) Reschedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("invalid JSON body"))
		return
	}

	session, err := h.service.Reschedule(r.Context(), principal, ps.ByName("id"), req.StartTime, req.EndTime)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if writeErr := httputil.WriteSuccess(w, session); writeErr != nil {
		h.logger.Error("failed to write response", "error", writeErr)
	}
}

func (h *SessionHandler) UpdatePayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	session, err := h.service.UpdatePayment(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if writeErr := httputil.WriteSuccess(w, session); writeErr != nil {
		h.logger.Error("failed to write response", "error", writeErr)
	}
}

// Cancel handles DELETE on a session id as a soft cancellation.
// Query parameters: cascade_future=true extends the cancellation across the
// rest of the series, reason is forwarded to the owner's notification.
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	cascade := r.URL.Query().Get("cascade_future") == "true"
	reason := r.URL.Query().Get("reason")

	session, err := h.service.Cancel(r.Context(), principal, ps.ByName("id"), cascade, reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("session cancelled",
		"session_id", session.ID,
		"cascade_future", cascade,
		"cancelled_by", principal.ID,
	)

	if writeErr := httputil.WriteSuccess(w, session); writeErr != nil {
		h.logger.Error("failed to write response", "error", writeErr)
	}
}

// Delete hard-removes a session record. Query parameters: cascade=true
// removes the whole linked series, reason is forwarded to the notification.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	cascade := r.URL.Query().Get("cascade") == "true"
	reason := r.URL.Query().Get("reason")

	if err := h.service.Delete(r.Context(), principal, ps.ByName("id"), cascade, reason); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("session deleted",
		"session_id", ps.ByName("id"),
		"cascade", cascade,
		"deleted_by", principal.ID,
	)

	httputil.WriteNoContent(w)
}

func (h *SessionHandler) CalendarMonth(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	year, err := pathInt(ps, "year", 1, 9999)
	if err != nil {
		h.writeError(w, err)
		return
	}
	month, err := pathInt(ps, "month", 1, 12)
	if err != nil {
		h.writeError(w, err)
		return
	}

	sessions, err := h.service.CalendarMonth(r.Context(), principal, year, time.Month(month))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if writeErr := httputil.WriteSuccess(w, sessions); writeErr != nil {
		h.logger.Error("failed to write response", "error", writeErr)
	}
}

func (h *SessionHandler) CalendarWeek(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	year, err := pathInt(ps, "year", 1, 9999)
	if err != nil {
		h.writeError(w, err)
		return
	}
	week, err := pathInt(ps, "week", 1, 54)
	if err != nil {
		h.writeError(w, err)
		return
	}

	sessions, err := h.service.CalendarWeek(r.Context(), principal, year, week)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if writeErr := httputil.WriteSuccess(w, sessions); writeErr != nil {
		h.logger.Error("failed to write response", "error", writeErr)
	}
}

func (h *SessionHandler) CalendarDay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	year, err := pathInt(ps, "year", 1, 9999)
	if err != nil {
		h.writeError(w, err)
		return
	}
	month, err := pathInt(ps, "month", 1, 12)
	if err != nil {
		h.writeError(w, err)
		return
	}
	day, err := pathInt(ps, "day", 1, 31)
	if err != nil {
		h.writeError(w, err)
		return
	}

	sessions, err := h.service.CalendarDay(r.Context(), principal, year, time.Month(month), day)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if writeErr := httputil.WriteSuccess(w, sessions); writeErr != nil {
		h.logger.Error("failed to write response", "error", writeErr)
	}
}

func (h *SessionHandler) writeError(w http.ResponseWriter, err error) {
	if appErr := apperrors.AsAppError(err); appErr != nil && appErr.StatusCode() >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.logger.Error("failed to write error response", "error", writeErr)
	}
}

func pathInt(ps httprouter.Params, name string, min, max int) (int, error) {
	value, err := strconv.Atoi(ps.ByName(name))
	if err != nil || value < min || value > max {
		return 0, apperrors.InvalidInput(name + " must be a number in range")
	}
	return value, nil
}
