package logger

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iurnickita/dealership/internal/logger/config"
)

func TestNewZapLog(t *testing.T) {
	zaplog, err := NewZapLog(config.Config{LogLevel: "debug"})
	require.NoError(t, err)
	assert.True(t, zaplog.Core().Enabled(zapcore.DebugLevel))

	_, err = NewZapLog(config.Config{LogLevel: "loud"})
	require.Error(t, err)
}

func TestRequestLogMdlw(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	zaplog := zap.New(core)

	h := RequestLogMdlw(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short"))
		w.Write([]byte(" and stout"))
	}, zaplog)

	r := httptest.NewRequest(http.MethodPost, "/api/sales?status=DRAFT", strings.NewReader(`{"vehicle_id":1}`))
	w := httptest.NewRecorder()
	h(w, r)

	requestID := w.Header().Get(HeaderRequestID)
	_, err := uuid.Parse(requestID)
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	in := entries[0].ContextMap()
	assert.Equal(t, requestID, in["request_id"])
	assert.Equal(t, "/api/sales", in["path"])
	assert.Equal(t, "status=DRAFT", in["query"])
	assert.Equal(t, `{"vehicle_id":1}`, in["body"])

	out := entries[1].ContextMap()
	assert.EqualValues(t, http.StatusTeapot, out["code"])
	assert.EqualValues(t, len("short and stout"), out["length"])
	assert.Equal(t, "short and stout", out["body"])
}

func TestRequestLogMdlwKeepsRequestID(t *testing.T) {
	h := RequestLogMdlw(func(w http.ResponseWriter, r *http.Request) {}, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/api/sales", nil)
	r.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	h(w, r)

	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}
