package server

import (
	"context"
	logslog "log/slog"
	"net/http"
	"time"

	"github.com/birdie-ai/qsql/slog"
	"github.com/google/uuid"
)

// TraceHeader is the header carrying the trace ID of a request.
const TraceHeader = "traceparent"

// Instrument adds a trace ID to the request context and a [slog.Logger] with
// a "trace_id" attribute, retrieve them with [CtxGetTraceID] and
// [slog.FromCtx]. The trace ID is read from [TraceHeader] or generated
// when absent. Each request is logged after it is served.
func Instrument(h http.Handler) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		// The header value is used as is, not parsed as a W3C traceparent.
		traceID := req.Header.Get(TraceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := CtxWithTraceID(req.Context(), traceID)
		log := slog.FromCtx(ctx).With("trace_id", traceID)
		ctx = slog.NewContext(ctx, log)

		rec := &statusRecorder{ResponseWriter: res, status: http.StatusOK}
		start := time.Now()
		h.ServeHTTP(rec, req.WithContext(ctx))

		log.Info("request served", slog.HTTPRequest(
			logslog.String("method", req.Method),
			logslog.String("url", req.URL.String()),
			logslog.Int("status_code", rec.status),
			logslog.Int("response_size", rec.size),
			logslog.String("user_agent", req.UserAgent()),
			logslog.String("elapsed", time.Since(start).String()),
		))
	})
}

// CtxWithTraceID returns a copy of ctx carrying traceID.
// Retrieve it with [CtxGetTraceID].
func CtxWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// CtxGetTraceID returns the trace ID of ctx and true, or false when it has none.
func CtxGetTraceID(ctx context.Context) (string, bool) {
	traceID, ok := ctx.Value(traceIDKey).(string)
	return traceID, ok
}

type key int

const traceIDKey key = iota

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}
