package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/ovenlight/bakeshop-api/internal/domain/auth"
)

// APIKeyHeader carries the back-office API key.
const APIKeyHeader = "X-API-Key"

type operatorKey struct{}

// OperatorFromContext returns the operator code stored by RequireAPIKey, or
// "unknown" when the request was not authenticated.
func OperatorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(operatorKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// Security authenticates back-office requests. Raw keys are never stored:
// the repository holds HMAC-SHA256(key, pepper) hex digests.
type Security struct {
	keys   auth.Repository
	pepper []byte
}

func NewSecurity(keys auth.Repository, pepper string) *Security {
	return &Security{keys: keys, pepper: []byte(pepper)}
}

// HashKey returns the hex HMAC-SHA256 digest of a raw API key.
func (s *Security) HashKey(raw string) string {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// RequireAPIKey rejects requests without a valid API key and stores the key's
// operator name in the request context.
func (s *Security) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(APIKeyHeader)
		if raw == "" {
			respondError(w, r, http.StatusUnauthorized, "missing API key")
			return
		}

		hash := s.HashKey(raw)
		info, err := s.keys.FindByHash(r.Context(), hash)
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				respondError(w, r, http.StatusUnauthorized, "invalid API key")
				return
			}
			zctx.From(r.Context()).Error("api key lookup", zap.Error(err))
			respondError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		if info == nil || subtle.ConstantTimeCompare([]byte(info.KeyHash), []byte(hash)) != 1 {
			respondError(w, r, http.StatusUnauthorized, "invalid API key")
			return
		}

		ctx := context.WithValue(r.Context(), operatorKey{}, info.Name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
