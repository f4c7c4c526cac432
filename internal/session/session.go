// Package session carries the authenticated user through a signed HS256
// cookie. Middleware parses the cookie once per request and injects the
// user into the echo context; handlers never touch ambient auth state.
package session

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	CookieName = "session"
	TTL        = 24 * time.Hour

	LoginPath = "/login/"
)

func CreateCookie(name string, value string, path string, expTime time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expTime,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}

	return cookie
}

func Issue(secret []byte, userID uint, username string) (string, time.Time, error) {
	exp := time.Now().Add(TTL)
	claims := jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"exp":      exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func Parse(secret []byte, raw string) (uint, string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signature method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return 0, "", fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", fmt.Errorf("cannot parse claims")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, "", fmt.Errorf("session token missing sub claim")
	}
	username, _ := claims["username"].(string)

	return uint(sub), username, nil
}

// Establish issues a session token for the user and attaches it as a cookie.
func Establish(c echo.Context, secret []byte, userID uint, username string) error {
	signed, exp, err := Issue(secret, userID, username)
	if err != nil {
		return err
	}
	c.SetCookie(CreateCookie(CookieName, signed, "/", exp))
	return nil
}

func Clear(c echo.Context) {
	expired := time.Now().Add(-1 * time.Hour)
	c.SetCookie(CreateCookie(CookieName, "", "/", expired))
}

func setUserContext(c echo.Context, userID uint, username string) {
	c.Set("userID", userID)
	c.Set("username", username)
}

// UserID returns the authenticated user injected by RequireLogin or Resolve.
func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get("userID").(uint)
	return id, ok
}

func Username(c echo.Context) string {
	name, _ := c.Get("username").(string)
	return name
}

// Resolve checks the session cookie without forcing a login. Used by the
// login and signup pages to bounce already-authenticated visitors.
func Resolve(c echo.Context, secret []byte) (uint, bool) {
	cookie, err := c.Cookie(CookieName)
	if err != nil {
		return 0, false
	}
	userID, username, err := Parse(secret, cookie.Value)
	if err != nil {
		return 0, false
	}
	setUserContext(c, userID, username)
	return userID, true
}

// RequireLogin redirects anonymous visitors to the login page, preserving
// the requested path as the "next" parameter. Only the login handler honors
// "next".
func RequireLogin(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := Resolve(c, secret); !ok {
				target := LoginPath + "?next=" + url.QueryEscape(c.Request().URL.RequestURI())
				return c.Redirect(http.StatusFound, target)
			}
			return next(c)
		}
	}
}
