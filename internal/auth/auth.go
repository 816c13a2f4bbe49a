package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/iurnickita/dealership/internal/auth/config"
	"github.com/iurnickita/dealership/internal/token"
)

type Auth interface {
	Middleware(h http.HandlerFunc) http.HandlerFunc
}

type ctxKey struct{}

const cookieUserToken = "dealershipUserToken"

var ErrNoToken = errors.New("no token")

type auth struct {
	key string
}

// NewAuth returns the operator authentication. With an empty key every request passes
// without an operator.
func NewAuth(cfg config.Config) Auth {
	return &auth{key: cfg.JWTKey}
}

func (a *auth) Middleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.key == "" {
			h.ServeHTTP(w, r)
			return
		}

		// получение id оператора
		userID, err := a.getUserID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		// передаём управление хендлеру
		h.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	}
}

func (a *auth) getUserID(r *http.Request) (int64, error) {
	var tokenString string
	if header := r.Header.Get("Authorization"); header != "" {
		var ok bool
		tokenString, ok = strings.CutPrefix(header, "Bearer ")
		if !ok {
			return 0, token.ErrInvalidToken
		}
	} else {
		tokenCookie, err := r.Cookie(cookieUserToken)
		if err != nil {
			return 0, ErrNoToken
		}
		tokenString = tokenCookie.Value
	}
	return token.GetUserID(a.key, tokenString)
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated operator, if any.
func UserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(ctxKey{}).(int64)
	return userID, ok
}
