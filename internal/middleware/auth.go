// Package middleware содержит HTTP middleware сервиса заявок на забор.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/coletas-service/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

const (
	staffTokenTTL  = 8 * time.Hour
	clientTokenTTL = 24 * time.Hour
)

// Ошибки проверки токена доступа.
var (
	ErrMissingToken   = fmt.Errorf("%w: no token provided", model.ErrUnauthenticated)
	ErrMalformedToken = fmt.Errorf("%w: malformed token", model.ErrUnauthenticated)
	ErrInvalidToken   = fmt.Errorf("%w: invalid or expired token", model.ErrUnauthenticated)
	ErrUnknownRole    = fmt.Errorf("%w: unknown role", model.ErrForbidden)
)

// Claims полезная нагрузка токена доступа.
type Claims struct {
	ID    int64      `json:"id"`
	Role  model.Role `json:"role"`
	Email string     `json:"email,omitempty"`
	TaxID string     `json:"cpfCnpj,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware выпускает и проверяет подписанные токены доступа в заголовке Authorization.
type AuthMiddleware struct {
	secretKey []byte
	now       func() time.Time
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
// При пустом ключе генерируется случайный, и токены не переживают перезапуск процесса.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		now:       time.Now,
	}
}

// TokenTTL возвращает срок жизни токена для роли.
func TokenTTL(role model.Role) time.Duration {
	if role == model.RoleAdmin {
		return staffTokenTTL
	}
	return clientTokenTTL
}

// IssueToken подписывает токен доступа для указанной идентичности.
func (a *AuthMiddleware) IssueToken(id *model.Identity) (string, error) {
	if id == nil || !id.Role.Known() {
		return "", ErrUnknownRole
	}

	now := a.now()
	claims := Claims{
		ID:    id.ID,
		Role:  id.Role,
		Email: id.Email,
		TaxID: id.TaxID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL(id.Role))),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена и возвращает идентичность.
func (a *AuthMiddleware) ParseToken(token string) (*model.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if !claims.Role.Known() {
		return nil, ErrUnknownRole
	}

	return &model.Identity{
		ID:    claims.ID,
		Role:  claims.Role,
		Email: claims.Email,
		TaxID: claims.TaxID,
	}, nil
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return "", ErrMalformedToken
	}

	if !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrMalformedToken
	}

	return parts[1], nil
}

// Middleware проверяет токен из заголовка Authorization и добавляет идентичность в контекст запроса.
// Состояние между запросами не хранится.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeAuthError(w, err)
			return
		}

		id, err := a.ParseToken(token)
		if err != nil {
			writeAuthError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireRole пропускает запрос только для идентичности с одной из указанных ролей.
// Должен стоять после Middleware.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetIdentityFromContext(r.Context())
			if !ok {
				writeAuthError(w, ErrMissingToken)
				return
			}

			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeAuthError(w, fmt.Errorf("%w: role %q may not access this resource", model.ErrForbidden, id.Role))
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	if errors.Is(err, model.ErrForbidden) {
		status = http.StatusForbidden
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// WithIdentity возвращает контекст с прикреплённой идентичностью.
func WithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentityFromContext извлекает идентичность вызывающего из контекста запроса.
func GetIdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*model.Identity)
	return id, ok && id != nil
}
