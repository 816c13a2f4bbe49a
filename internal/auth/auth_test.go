package auth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iurnickita/dealership/internal/auth/config"
	"github.com/iurnickita/dealership/internal/token"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		w.Write([]byte("anonymous"))
		return
	}
	w.Write([]byte(strconv.FormatInt(userID, 10)))
}

func TestMiddleware(t *testing.T) {
	a := NewAuth(config.Config{JWTKey: "secret"})
	signed, err := token.BuildJWTString("secret", 7, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		prepare  func(r *http.Request)
		wantCode int
		wantBody string
	}{
		{
			name:     "bearer",
			prepare:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+signed) },
			wantCode: http.StatusOK,
			wantBody: "7",
		},
		{
			name:     "cookie",
			prepare:  func(r *http.Request) { r.AddCookie(&http.Cookie{Name: cookieUserToken, Value: signed}) },
			wantCode: http.StatusOK,
			wantBody: "7",
		},
		{
			name:     "no token",
			prepare:  func(r *http.Request) {},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "wrong scheme",
			prepare:  func(r *http.Request) { r.Header.Set("Authorization", "Basic "+signed) },
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "forged",
			prepare:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+signed+"x") },
			wantCode: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/sales", nil)
			tt.prepare(r)
			w := httptest.NewRecorder()

			a.Middleware(echoUser)(w, r)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestMiddlewareDisabled(t *testing.T) {
	a := NewAuth(config.Config{})
	w := httptest.NewRecorder()

	a.Middleware(echoUser)(w, httptest.NewRequest(http.MethodGet, "/api/sales", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())
}
