package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/flash"
	"github.com/Skotchmaster/marketplace/internal/forms"
	"github.com/Skotchmaster/marketplace/internal/hash"
	"github.com/Skotchmaster/marketplace/internal/models"
	"github.com/Skotchmaster/marketplace/internal/session"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	Producer  EventPublisher
}

const genericLoginError = "Invalid username or password."

func (h *AuthHandler) LoginForm(c echo.Context) error {
	if _, ok := session.Resolve(c, h.JWTSecret); ok {
		return c.Redirect(http.StatusFound, "/")
	}
	return c.Render(http.StatusOK, "login.html", map[string]interface{}{
		"Next":  c.QueryParam("next"),
		"Flash": flash.Pop(c),
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	if _, ok := session.Resolve(c, h.JWTSecret); ok {
		return c.Redirect(http.StatusFound, "/")
	}

	var form forms.LoginForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&form); err != nil {
		return h.renderLoginError(c, &form)
	}

	var user models.User
	if err := h.DB.Where("username = ?", form.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return h.renderLoginError(c, &form)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !hash.CheckPassword(user.PasswordHash, form.Password) {
		return h.renderLoginError(c, &form)
	}

	if err := session.Establish(c, h.JWTSecret, user.ID, user.Username); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(user.ID), map[string]interface{}{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})

	flash.Set(c, flash.Success, fmt.Sprintf("Welcome back, %s!", user.Username))
	target := form.Next
	if target == "" {
		target = "/"
	}
	return c.Redirect(http.StatusFound, target)
}

// renderLoginError re-renders the login form with a deliberately generic
// error, no hint about which field was wrong.
func (h *AuthHandler) renderLoginError(c echo.Context, form *forms.LoginForm) error {
	return c.Render(http.StatusOK, "login.html", map[string]interface{}{
		"Error":    genericLoginError,
		"Username": form.Username,
		"Next":     form.Next,
	})
}

func (h *AuthHandler) SignupForm(c echo.Context) error {
	if _, ok := session.Resolve(c, h.JWTSecret); ok {
		return c.Redirect(http.StatusFound, "/")
	}
	return c.Render(http.StatusOK, "signup.html", map[string]interface{}{
		"Flash": flash.Pop(c),
	})
}

func (h *AuthHandler) Signup(c echo.Context) error {
	if _, ok := session.Resolve(c, h.JWTSecret); ok {
		return c.Redirect(http.StatusFound, "/")
	}

	var form forms.SignupForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&form); err != nil {
		return c.Render(http.StatusOK, "signup.html", map[string]interface{}{
			"Errors":   forms.Errors(err),
			"Username": form.Username,
		})
	}

	var existing models.User
	err := h.DB.Where("username = ?", form.Username).First(&existing).Error
	if err == nil {
		return c.Render(http.StatusOK, "signup.html", map[string]interface{}{
			"Errors":   map[string]string{"Username": "This username is already taken."},
			"Username": form.Username,
		})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	passwordHash, err := hash.HashPassword(form.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	user := models.User{
		Username:     form.Username,
		PasswordHash: passwordHash,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// auto-login after signup
	if err := session.Establish(c, h.JWTSecret, user.ID, user.Username); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(user.ID), map[string]interface{}{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})

	flash.Set(c, flash.Success, fmt.Sprintf("Welcome, %s!", user.Username))
	return c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Logout(c echo.Context) error {
	session.Clear(c)
	flash.Set(c, flash.Info, "You have been logged out.")
	return c.Redirect(http.StatusFound, session.LoginPath)
}
