package httpapi

import (
	"net/http"
	"strconv"

	"github.com/stanercelik/PolySleep-sub003/internal/catalog"
	"github.com/stanercelik/PolySleep-sub003/internal/service"

	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CatalogHandler built-in schedule templates
type CatalogHandler struct {
	svc    service.ScheduleService
	logger *zap.Logger
}

func NewCatalogHandler(svc service.ScheduleService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, logger: logger}
}

// templateJSON catalog entry plus its derived fields
type templateJSON struct {
	catalog.Template
	DurationClass   int     `json:"duration_class"`
	TotalSleepHours float64 `json:"total_sleep_hours"`
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	templates := h.svc.Templates()
	out := make([]templateJSON, 0, len(templates))
	for _, t := range templates {
		out = append(out, templateJSON{
			Template:        t,
			DurationClass:   int(t.DurationClass()),
			TotalSleepHours: t.TotalSleepHours(),
		})
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// Export the catalog as an xlsx workbook
func (h *CatalogHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportTemplates()
	if err != nil {
		h.logger.Error("ExportTemplates failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="polysleep_templates.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
