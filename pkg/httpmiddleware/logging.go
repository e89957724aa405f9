package httpmiddleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// InjectLogger stores lg in the request context, tagged with the request ID
// when one is present. Handlers read it with zctx.From.
func InjectLogger(lg *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLg := lg
			if id := RequestIDFromContext(r.Context()); id != "" {
				reqLg = lg.With(zap.String("request_id", id))
			}
			next.ServeHTTP(w, r.WithContext(zctx.Base(r.Context(), reqLg)))
		})
	}
}

type routeKey struct{}

type routeInfo struct {
	pattern string
}

// RouteFromContext returns the matched mux pattern recorded by Routed.
func RouteFromContext(ctx context.Context) string {
	if ri, ok := ctx.Value(routeKey{}).(*routeInfo); ok {
		return ri.pattern
	}
	return ""
}

// Routed exposes the pattern matched by mux to the middlewares around it: the
// request log, the active span name and the otelhttp metric labels.
func Routed(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := mux.Handler(r); pattern != "" {
			if ri, ok := r.Context().Value(routeKey{}).(*routeInfo); ok {
				ri.pattern = pattern
			}
			route := attribute.String("http.route", pattern)
			span := trace.SpanFromContext(r.Context())
			span.SetName(pattern)
			span.SetAttributes(route)
			if l, ok := otelhttp.LabelerFromContext(r.Context()); ok {
				l.Add(route)
			}
		}
		mux.ServeHTTP(w, r)
	})
}

// LogRequests writes one log entry per request with its outcome.
func LogRequests() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ri := &routeInfo{}
			ctx := context.WithValue(r.Context(), routeKey{}, ri)
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Int64("bytes", sw.bytes),
				zap.Duration("duration", time.Since(start)),
			}
			if ri.pattern != "" {
				fields = append(fields, zap.String("route", ri.pattern))
			}
			if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
				fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
			}

			lg := zctx.From(ctx)
			switch {
			case sw.status >= http.StatusInternalServerError:
				lg.Error("Request", fields...)
			case sw.status >= http.StatusBadRequest:
				lg.Warn("Request", fields...)
			default:
				lg.Info("Request", fields...)
			}
		})
	}
}

// statusWriter records the status code and body size.
type statusWriter struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
