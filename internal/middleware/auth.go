// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// AccountIDKey is the context key for the authenticated account id.
	AccountIDKey ContextKey = "account_id"

	// TokenCookie carries the JWT for browser pages.
	TokenCookie = "playroom_token"
)

var errMissingToken = errors.New("missing token")

// Claims represents JWT claims. Subject holds the account id.
type Claims struct {
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for accountID.
func IssueToken(secret string, accountID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "playroom",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Auth creates JWT authentication middleware for JSON APIs. The token comes
// from the Authorization bearer header or the token cookie.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, err := authenticate(r, jwtSecret)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				if errors.Is(err, errMissingToken) {
					http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
					return
				}
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), accountID)))
		})
	}
}

// PageAuth is Auth for HTML pages: failures redirect to loginURL.
func PageAuth(jwtSecret, loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, err := authenticate(r, jwtSecret)
			if err != nil {
				http.Redirect(w, r, loginURL, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), accountID)))
		})
	}
}

func authenticate(r *http.Request, jwtSecret string) (int64, error) {
	tokenString, err := bearerToken(r)
	if err != nil {
		return 0, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, jwt.ErrTokenInvalidClaims
	}

	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || accountID <= 0 {
		return 0, jwt.ErrTokenInvalidSubject
	}
	return accountID, nil
}

func bearerToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return "", jwt.ErrTokenMalformed
		}
		return parts[1], nil
	}
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errMissingToken
}

func withAccount(ctx context.Context, accountID int64) context.Context {
	if meta := requestMetaFrom(ctx); meta != nil {
		meta.accountID = accountID
	}
	return context.WithValue(ctx, AccountIDKey, accountID)
}

// GetAccountID gets the authenticated account id from context.
func GetAccountID(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(AccountIDKey).(int64)
	return v, ok
}
