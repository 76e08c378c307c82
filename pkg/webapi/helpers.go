package webapi

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/logger"
)

var httpCodeForError = map[gate.ErrorCode]int{
	gate.BadRequest:          400,
	gate.MalformedRequest:    422,
	gate.InvalidTxn:          422,
	gate.NotFound:            404,
	gate.UpstreamUnavailable: 404,
	gate.AddressExhausted:    500,
	gate.NotAvailable:        503,
	gate.UnknownError:        500,
}

func HttpStatusForError(code gate.ErrorCode) int {
	status, found := httpCodeForError[code]
	if !found {
		status = http.StatusInternalServerError
	}
	return status
}

func (t WebAPI) sendBadRequest(w http.ResponseWriter, message string) {
	t.sendErrorResponse(w, http.StatusBadRequest, gate.BadRequest, message)
}

func (t WebAPI) sendError(w http.ResponseWriter, where string, err error) {
	var info *gate.ErrorInfo
	if errors.As(err, &info) {
		status := HttpStatusForError(info.Code)
		message := fmt.Sprintf("%s: %s", where, info.Message)
		t.sendErrorResponse(w, status, info.Code, message)
	} else {
		message := fmt.Sprintf("%s: %s", where, err.Error())
		t.sendErrorResponse(w, http.StatusInternalServerError, gate.UnknownError, message)
	}
}

func (t WebAPI) sendErrorResponse(w http.ResponseWriter, statusCode int, code gate.ErrorCode, message string) {
	t.log.Warn("[!] request failed", map[string]any{"code": string(code), "status": statusCode, "message": message})
	// would prefer to use json.Marshal, but this avoids the need
	// to handle encoding errors arising from json.Marshal itself!
	payload := fmt.Sprintf("{\"error\":{\"code\":%q,\"message\":%q}}", code, message)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store") // do not cache (Browsers cache GET forever by default)
	w.WriteHeader(statusCode)
	w.Write([]byte(payload))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs every request with the caller's address, including
// X-Real-IP when running behind a proxy.
func logRequests(log logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		log.Info("request", map[string]any{
			"method":    r.Method,
			"path":      r.URL.Path,
			"ip":        ip,
			"x-real-ip": r.Header.Get("X-Real-IP"),
			"status":    rec.status,
			"duration":  time.Since(start).String(),
		})
	})
}
