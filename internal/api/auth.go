package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/robbine75/chat/internal/types"
)

const (
	defaultJwtExpiration = time.Hour * 24
	tokenCookieKey       = "token"
	usernameClaim        = "username"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity returns the authenticated user from the request context.
func Identity(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(identityKey).(types.User)

	return user, ok
}

func WithIdentity(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, identityKey, user)
}

func (s *ChatApp) createJwtForSession(user types.User, exp time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":         strconv.Itoa(user.Id),
		usernameClaim: user.Username,
		"jti":         uuid.NewString(),
		"iat":         now.Unix(),
		"exp":         now.Add(exp).Unix(),
	})

	return token.SignedString(s.signingKey)
}

// identityFromToken verifies the token and rebuilds the user identity
// from its claims.
func (s *ChatApp) identityFromToken(tokenString string) (types.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return types.User{}, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return types.User{}, fmt.Errorf("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return types.User{}, fmt.Errorf("get subject: %w", err)
	}

	userId, err := strconv.Atoi(sub)
	if err != nil {
		return types.User{}, fmt.Errorf("invalid subject claim: %w", err)
	}

	username, ok := claims[usernameClaim].(string)
	if !ok || username == "" {
		return types.User{}, fmt.Errorf("invalid username claim")
	}

	return types.User{Id: userId, Username: username}, nil
}

func createJwtCookie(tokenString string, exp time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(exp),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
