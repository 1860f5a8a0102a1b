package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/stanercelik/PolySleep-sub003/internal/service"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// userIDFromReq X-User-Id header first, then ?user_id=
func userIDFromReq(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	if userID == "" {
		writeJSON(w, http.StatusOK, Fail("user_id is required"))
		return "", false
	}
	return userID, true
}

// writeServiceError maps service errors onto the envelope; HTTP status stays 200
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusOK, NotFound(err.Error()))
	case errors.Is(err, service.ErrPersistence):
		logger.Error(op+" failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
	default:
		logger.Warn(op+" rejected", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
	}
}

// pathTail splits what follows prefix into non-empty segments
func pathTail(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
