package httpapi

import (
	"net/http"

	"github.com/stanercelik/PolySleep-sub003/internal/clock"
	"github.com/stanercelik/PolySleep-sub003/internal/service"

	"go.uber.org/zap"
)

const undoPrefix = "/api/v1/undo"

// UndoHandler same-day undo of the last schedule switch
type UndoHandler struct {
	svc    service.ScheduleService
	clock  clock.Clock
	logger *zap.Logger
}

func NewUndoHandler(svc service.ScheduleService, clk clock.Clock, logger *zap.Logger) *UndoHandler {
	return &UndoHandler{svc: svc, clock: clk, logger: logger}
}

func (h *UndoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, undoPrefix)

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		h.Status(w, r)
	case len(parts) == 0 && r.Method == http.MethodPost:
		h.Undo(w, r)
	case len(parts) == 0 && r.Method == http.MethodDelete:
		h.Clear(w, r)
	case len(parts) == 1 && parts[0] == "dismiss" && r.Method == http.MethodPost:
		h.Dismiss(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *UndoHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	st, err := h.svc.UndoStatus(r.Context(), userID, h.clock.Now())
	if err != nil {
		writeServiceError(w, h.logger, "UndoStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(st))
}

// Undo restores the previous adaptation counters onto the active schedule
func (h *UndoHandler) Undo(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	if err := h.svc.UndoLastChange(r.Context(), userID, h.clock.Now()); err != nil {
		writeServiceError(w, h.logger, "UndoLastChange", err)
		return
	}
	active, err := h.svc.ActiveSchedule(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, "UndoLastChange", err)
		return
	}
	p, err := h.svc.CurrentAdaptation(r.Context(), active.ScheduleID, h.clock.Now())
	if err != nil {
		writeServiceError(w, h.logger, "UndoLastChange", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(p))
}

func (h *UndoHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	if err := h.svc.DismissUndo(r.Context(), userID); err != nil {
		writeServiceError(w, h.logger, "DismissUndo", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

func (h *UndoHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromReq(w, r)
	if !ok {
		return
	}
	if err := h.svc.ClearUndo(r.Context(), userID); err != nil {
		writeServiceError(w, h.logger, "ClearUndo", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
