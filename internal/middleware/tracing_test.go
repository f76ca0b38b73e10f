package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"murmur/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := observability.Tracer
	observability.Tracer = provider.Tracer("murmur-test")
	t.Cleanup(func() {
		observability.Tracer = previous
		_ = provider.Shutdown(t.Context())
	})
	return recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingMiddleware(t *testing.T) {
	recorder := recordSpans(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/health/live", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/user/profile/:userAt", func(c *fiber.Ctx) error {
		assert.NotEmpty(t, c.UserContext().Value(TraceIDKey))
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusBadGateway, "upstream") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Empty(t, resp.Header.Get("X-Trace-ID"))
	assert.Empty(t, recorder.Ended())

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/user/profile/ana", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Len(t, recorder.Ended(), 1)
	span := recorder.Ended()[0]
	assert.Equal(t, "GET /user/profile/:userAt", span.Name())
	assert.Equal(t, span.SpanContext().TraceID().String(), resp.Header.Get("X-Trace-ID"))
	status, ok := spanAttr(span, "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusOK), status.AsInt64())
	assert.Equal(t, codes.Unset, span.Status().Code)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Len(t, recorder.Ended(), 2)
	span = recorder.Ended()[1]
	assert.Equal(t, "GET /boom", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)
	status, _ = spanAttr(span, "http.response.status_code")
	assert.Equal(t, int64(http.StatusBadGateway), status.AsInt64())
}
