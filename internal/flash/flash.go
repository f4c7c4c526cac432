// Package flash implements the one-shot status messages shown after a
// redirect. The message rides in a cookie and is consumed by the next
// render, so it is displayed exactly once.
package flash

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const cookieName = "flash"

const (
	Success = "success"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

type Message struct {
	Level string
	Text  string
}

func Set(c echo.Context, level, text string) {
	value := url.QueryEscape(level + "|" + text)
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(5 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop reads the pending message, if any, and expires the cookie so the
// message cannot be rendered twice.
func Pop(c echo.Context) *Message {
	cookie, err := c.Cookie(cookieName)
	if err != nil {
		return nil
	}

	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-1 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	msg, err := Decode(cookie.Value)
	if err != nil {
		return nil
	}
	return msg
}

func Decode(raw string) (*Message, error) {
	value, err := url.QueryUnescape(raw)
	if err != nil {
		return nil, err
	}
	level, text, found := strings.Cut(value, "|")
	if !found {
		return nil, fmt.Errorf("malformed flash value")
	}
	return &Message{Level: level, Text: text}, nil
}
