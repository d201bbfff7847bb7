package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloo-solutions/askbase/internal/api"
	"github.com/cloo-solutions/askbase/internal/domain"
)

type contextKey string

const ClientIDKey contextKey = "client_id"

// AuthValidator resolves an API key to a client identifier.
type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

// StaticKeyValidator validates tokens against a fixed key list from
// configuration. The client id is the key's position, which is enough to
// distinguish callers in logs.
type StaticKeyValidator struct {
	keys []string
}

func NewStaticKeyValidator(keys []string) *StaticKeyValidator {
	return &StaticKeyValidator{keys: keys}
}

func (v *StaticKeyValidator) ValidateAPIKey(ctx context.Context, token string) (string, error) {
	for i, key := range v.keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1 {
			return fmt.Sprintf("client-%d", i+1), nil
		}
	}
	return "", domain.ErrInvalidAPIKey
}

func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			clientID, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetClientID(ctx context.Context) string {
	clientID, _ := ctx.Value(ClientIDKey).(string)
	return clientID
}
