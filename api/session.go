// Package api - HTTP surface for the document vault
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kaviselvaram-dev/docvault/db"
	"github.com/kaviselvaram-dev/docvault/models"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// SessionCookieName name of the session cookie
const SessionCookieName = "vault_session"

// sessionTTL lifetime of an issued session
const sessionTTL = time.Hour * 24

// callerContextKey echo context key holding the resolved caller
const callerContextKey = "caller"

// hashPassword salted bcrypt hash of a credential
func hashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential [%w]", err)
	}
	return string(hashed), nil
}

// verifyPassword compare a bcrypt hash against a plain credential
func verifyPassword(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// newSessionToken issue a signed HS256 session token for a user
func newSessionToken(secret string, userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": now.Add(sessionTTL).Unix(),
		"iat": now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token [%w]", err)
	}
	return signed, nil
}

// parseSessionToken validate a session token and extract the user ID
func parseSessionToken(secret string, raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("session token rejected")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("session token claims malformed")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("session token missing subject")
	}
	return sub, nil
}

// sessionCookie build the session cookie carrying a token
func sessionCookie(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

/*
RequireSession echo middleware resolving the caller from the session cookie.

The middleware validates the cookie, loads the user, and stores the entry in
the request context; handlers then hand the identity explicitly to the core
operations.
*/
func (h *Handlers) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "login required"})
		}

		userID, err := parseSessionToken(h.sessionSecret, cookie.Value)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
		}

		var caller models.User
		dbErr := h.persistence.UseDatabase(
			c.Request().Context(), func(dbCtx context.Context, dbClient db.Database) error {
				var err error
				caller, err = dbClient.GetUser(dbCtx, userID)
				return err
			},
		)
		if dbErr != nil {
			if errors.Is(dbErr, db.ErrNotFound) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session lookup failed"})
		}

		c.Set(callerContextKey, caller)
		return next(c)
	}
}

// caller fetch the resolved caller placed by RequireSession
func caller(c echo.Context) models.User {
	user, _ := c.Get(callerContextKey).(models.User)
	return user
}
