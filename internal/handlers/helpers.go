package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/marketplace/internal/session"
)

// EventPublisher is the producer side of the event stream. A nil publisher
// disables publishing, which the tests rely on.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event interface{}) error
}

func publish(c echo.Context, p EventPublisher, topic, key string, event map[string]interface{}) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func currentUser(c echo.Context) (uint, error) {
	id, ok := session.UserID(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	return id, nil
}
