package httpapi

import (
	"net/http"
	"strings"

	"github.com/stanercelik/PolySleep-sub003/internal/clock"
	"github.com/stanercelik/PolySleep-sub003/internal/domain"
	"github.com/stanercelik/PolySleep-sub003/internal/service"

	"go.uber.org/zap"
)

const schedulesPrefix = "/api/v1/schedules"

// ScheduleHandler schedule lifecycle and adaptation progress
type ScheduleHandler struct {
	svc    service.ScheduleService
	clock  clock.Clock
	logger *zap.Logger
}

func NewScheduleHandler(svc service.ScheduleService, clk clock.Clock, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, clock: clk, logger: logger}
}

// activateRequest either a full schedule or {"template": key}
type activateRequest struct {
	Template domain.ScheduleType `json:"template"`
	domain.Schedule
}

func (h *ScheduleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, schedulesPrefix)

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		h.List(w, r)
	case len(parts) == 1 && parts[0] == "active" && r.Method == http.MethodGet:
		h.Active(w, r)
	case len(parts) == 1 && parts[0] == "activate" && r.Method == http.MethodPost:
		h.Activate(w, r)
	case len(parts) == 1 && parts[0] == "deactivate-all" && r.Method == http.MethodPost:
		h.DeactivateAll(w, r)
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.Get(w, r, parts[0])
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.Delete(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "active" && r.Method == http.MethodPut:
		h.SetActive(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "adaptation" && r.Method == http.MethodGet:
		h.Adaptation(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "adaptation" && parts[2] == "reset" && r.Method == http.MethodPost:
		h.ResetAdaptation(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListSchedules(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, "ListSchedules", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *ScheduleHandler) Active(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	s, err := h.svc.ActiveSchedule(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, "ActiveSchedule", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(s))
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request, scheduleID string) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	s, err := h.svc.GetSchedule(r.Context(), userID, scheduleID)
	if err != nil {
		writeServiceError(w, h.logger, "GetSchedule", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(s))
}

// Activate saves and activates a schedule, or instantiates a catalog template
func (h *ScheduleHandler) Activate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	var req activateRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid body"))
		return
	}

	var (
		s   *domain.Schedule
		err error
	)
	if key := domain.ScheduleType(strings.TrimSpace(string(req.Template))); key != "" {
		s, err = h.svc.ActivateTemplate(r.Context(), userID, key)
	} else {
		s, err = h.svc.SaveAndActivate(r.Context(), userID, &req.Schedule)
	}
	if err != nil {
		writeServiceError(w, h.logger, "Activate", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(s))
}

func (h *ScheduleHandler) SetActive(w http.ResponseWriter, r *http.Request, scheduleID string) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	var req struct {
		Active *bool `json:"active"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil || req.Active == nil {
		writeJSON(w, http.StatusOK, Fail("active is required"))
		return
	}
	if err := h.svc.SetActive(r.Context(), userID, scheduleID, *req.Active); err != nil {
		writeServiceError(w, h.logger, "SetActive", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"schedule_id": scheduleID, "is_active": *req.Active}))
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request, scheduleID string) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	if err := h.svc.SoftDelete(r.Context(), userID, scheduleID); err != nil {
		writeServiceError(w, h.logger, "SoftDelete", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"schedule_id": scheduleID, "is_deleted": true}))
}

func (h *ScheduleHandler) DeactivateAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeactivateAll(r.Context(), userID); err != nil {
		writeServiceError(w, h.logger, "DeactivateAll", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// Adaptation progress as of the server clock
func (h *ScheduleHandler) Adaptation(w http.ResponseWriter, r *http.Request, scheduleID string) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	if _, err := h.svc.GetSchedule(r.Context(), userID, scheduleID); err != nil {
		writeServiceError(w, h.logger, "CurrentAdaptation", err)
		return
	}
	p, err := h.svc.CurrentAdaptation(r.Context(), scheduleID, h.clock.Now())
	if err != nil {
		writeServiceError(w, h.logger, "CurrentAdaptation", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(p))
}

func (h *ScheduleHandler) ResetAdaptation(w http.ResponseWriter, r *http.Request, scheduleID string) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	if err := h.svc.ResetAdaptation(r.Context(), userID, scheduleID); err != nil {
		writeServiceError(w, h.logger, "ResetAdaptation", err)
		return
	}
	p, err := h.svc.CurrentAdaptation(r.Context(), scheduleID, h.clock.Now())
	if err != nil {
		writeServiceError(w, h.logger, "ResetAdaptation", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(p))
}
