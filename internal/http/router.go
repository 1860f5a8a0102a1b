package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router standard library http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok("ok"))
	})
	return r
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterScheduleRoutes lifecycle and adaptation endpoints
func (r *Router) RegisterScheduleRoutes(h *ScheduleHandler) {
	r.Handle("/api/v1/schedules", h.ServeHTTP)
	r.Handle("/api/v1/schedules/", h.ServeHTTP)
}

// RegisterUndoRoutes same-day undo endpoints
func (r *Router) RegisterUndoRoutes(h *UndoHandler) {
	r.Handle("/api/v1/undo", h.ServeHTTP)
	r.Handle("/api/v1/undo/", h.ServeHTTP)
}

func (r *Router) RegisterCatalogRoutes(h *CatalogHandler) {
	r.Handle("/api/v1/catalog", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.List(w, req)
	})
	r.Handle("/api/v1/catalog/export", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Export(w, req)
	})
}
