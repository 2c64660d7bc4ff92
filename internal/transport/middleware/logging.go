package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxLoggedBody caps how much of a request or response body reaches the log.
const maxLoggedBody = 4 << 10

const filtered = "[FILTERED]"

// sensitiveNames are matched against lower-cased header names and JSON keys.
var sensitiveNames = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"authorization": {},
	"cookie":        {},
	"set-cookie":    {},
	"x-api-key":     {},
	"api_key":       {},
}

var sensitiveSuffixes = []string{"token", "secret", "password"}

func isSensitive(name string) bool {
	name = strings.ToLower(name)
	if _, ok := sensitiveNames[name]; ok {
		return true
	}
	for _, suffix := range sensitiveSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// LoggingMiddleware logs every request and its response with credentials masked.
// Request-scoped attributes such as request_id come from the context.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logRequest(logger, r)

			if isStreamingResponse(r) {
				next.ServeHTTP(w, r)
				return
			}

			cw := &capturingWriter{ResponseWriter: w}
			next.ServeHTTP(cw, r)
			logResponse(r.Context(), logger, cw, time.Since(start))
		})
	}
}

// capturingWriter records the status code and the first maxLoggedBody bytes written.
type capturingWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
	body       bytes.Buffer
}

func (cw *capturingWriter) WriteHeader(code int) {
	if cw.statusCode == 0 {
		cw.statusCode = code
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *capturingWriter) Write(b []byte) (int, error) {
	if cw.statusCode == 0 {
		cw.statusCode = http.StatusOK
	}
	if room := maxLoggedBody - cw.body.Len(); room > 0 {
		cw.body.Write(b[:min(len(b), room)])
	}
	n, err := cw.ResponseWriter.Write(b)
	cw.size += n
	return n, err
}

func logRequest(logger *slog.Logger, r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	logger.InfoContext(r.Context(), "incoming request",
		"method", r.Method,
		"path", r.URL.Path,
		"query", r.URL.RawQuery,
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
		"headers", maskHeaders(r.Header),
		"body", maskBody(body, r.Header.Get("Content-Type")),
	)
}

func logResponse(ctx context.Context, logger *slog.Logger, cw *capturingWriter, duration time.Duration) {
	status := cw.statusCode
	if status == 0 {
		status = http.StatusOK
	}

	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	logger.Log(ctx, level, "response",
		"status_code", status,
		"duration_ms", duration.Milliseconds(),
		"response_size", cw.size,
		"body", maskBody(cw.body.Bytes(), cw.Header().Get("Content-Type")),
	)
}

// isStreamingResponse reports requests whose responses are not worth buffering, such as the swagger UI assets.
func isStreamingResponse(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/swagger/")
}

func maskHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// maskBody renders a body for logging. JSON keys that look like credentials are masked; CSV exports and
// other non-JSON payloads are summarized.
func maskBody(body []byte, contentType string) string {
	if len(body) == 0 {
		return ""
	}
	if strings.HasPrefix(contentType, "text/csv") {
		return "[CSV]"
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		if len(body) >= maxLoggedBody {
			return "[TRUNCATED]"
		}
		if strings.Contains(strings.ToLower(string(body)), "password") {
			return filtered
		}
		return string(body)
	}

	masked, err := json.Marshal(maskJSON(data))
	if err != nil {
		return "[UNLOGGABLE]"
	}
	return string(masked)
}

func maskJSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				out[key] = filtered
				continue
			}
			out[key] = maskJSON(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = maskJSON(item)
		}
		return out
	default:
		return v
	}
}
