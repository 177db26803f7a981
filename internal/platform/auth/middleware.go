package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// Claims carried by access tokens. The subject is the practitioner id.
type Claims struct {
	jwt.RegisteredClaims
}

type JWTConfig struct {
	SigningKey []byte
	// Skipper lets public routes through without a token.
	Skipper func(c echo.Context) bool
}

func unauthorized(msg string) error {
	return echo.NewHTTPError(http.StatusUnauthorized, msg)
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			c.Response().Header().Set("WWW-Authenticate", "Bearer")

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorized("No autenticado")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return unauthorized("Formato de autorización inválido")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				return unauthorized("Token inválido o expirado")
			}
			if _, err := uuid.Parse(claims.Subject); err != nil {
				return unauthorized("Token inválido o expirado")
			}

			c.Response().Header().Del("WWW-Authenticate")
			c.SetRequest(c.Request().WithContext(WithUserID(c.Request().Context(), claims.Subject)))

			return next(c)
		}
	}
}

// WithUserID stores the authenticated practitioner id on ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

// PractitionerIDFromContext returns the authenticated practitioner id, or an
// error when the request carries none.
func PractitionerIDFromContext(ctx context.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, unauthorized("No autenticado")
	}
	return id, nil
}
