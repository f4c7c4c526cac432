package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestSetThenPop(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	Set(c, Warning, "Your cart is empty.")

	var carried *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == cookieName {
			carried = ck
		}
	}
	require.NotNil(t, carried)

	// next request renders and consumes the message
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(carried)
	rec2 := httptest.NewRecorder()
	c2 := e.NewContext(req2, rec2)

	msg := Pop(c2)
	require.NotNil(t, msg)
	require.Equal(t, Warning, msg.Level)
	require.Equal(t, "Your cart is empty.", msg.Text)

	// the pop must expire the cookie
	var cleared *http.Cookie
	for _, ck := range rec2.Result().Cookies() {
		if ck.Name == cookieName {
			cleared = ck
		}
	}
	require.NotNil(t, cleared)
	require.Empty(t, cleared.Value)
}

func TestPopWithoutMessage(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	require.Nil(t, Pop(c))
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode("no-separator")
	require.Error(t, err)

	_, err = Decode("%zz")
	require.Error(t, err)
}
