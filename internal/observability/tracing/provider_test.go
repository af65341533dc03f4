package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsCredentials(t *testing.T) {
	out := SafeAttributes(
		attribute.String("user_id", "10"),
		attribute.String("gmail.refresh_token", "x"),
		attribute.String("Authorization", "Bearer y"),
	)

	assert.Equal(t, []attribute.KeyValue{attribute.String("user_id", "10")}, out)
}

func TestSafeErrorRedactsTokens(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	assert.EqualError(t, SafeError(errors.New("oauth2: token expired")), "redacted")

	plain := errors.New("dispatch user 10: send_message: boom")
	assert.Same(t, plain, SafeError(plain))
}

func TestExporterProtocol(t *testing.T) {
	assert.Equal(t, "grpc", exporterProtocol(""))
	assert.Equal(t, "grpc", exporterProtocol("grpc"))
	assert.Equal(t, "http/protobuf", exporterProtocol("HTTP"))
	assert.Equal(t, "http/protobuf", exporterProtocol("http/protobuf"))
}

func TestSamplingRatioClamps(t *testing.T) {
	assert.Equal(t, 0.0, samplingRatio(-1))
	assert.Equal(t, 0.25, samplingRatio(0.25))
	assert.Equal(t, 1.0, samplingRatio(3))
}

func TestRouteIDAttributes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var got []attribute.KeyValue
	r.GET("/v1/users/:user_id/dispatch", func(c *gin.Context) {
		got = routeIDAttributes(c)
	})
	r.GET("/v1/schedules/:id", func(c *gin.Context) {
		got = routeIDAttributes(c)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/users/10/dispatch", nil))
	assert.Equal(t, []attribute.KeyValue{attribute.String("user_id", "10")}, got)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/schedules/30", nil))
	assert.Equal(t, []attribute.KeyValue{attribute.String("resource_id", "30")}, got)
}
