package handlers_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/flash"
	"github.com/Skotchmaster/marketplace/internal/forms"
	"github.com/Skotchmaster/marketplace/internal/handlers"
	"github.com/Skotchmaster/marketplace/internal/hash"
	"github.com/Skotchmaster/marketplace/internal/models"
	"github.com/Skotchmaster/marketplace/internal/render"
	"github.com/Skotchmaster/marketplace/internal/session"
	httpserver "github.com/Skotchmaster/marketplace/internal/transport/http"
)

var testSecret = []byte("test-secret")

type recordedEvent struct {
	Topic string
	Key   string
	Event map[string]interface{}
}

type stubPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (s *stubPublisher) PublishEvent(ctx context.Context, topic, key string, event interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, _ := event.(map[string]interface{})
	s.events = append(s.events, recordedEvent{Topic: topic, Key: key, Event: m})
	return nil
}

func (s *stubPublisher) ofType(eventType string) []recordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []recordedEvent
	for _, ev := range s.events {
		if ev.Event["type"] == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type testEnv struct {
	T        *testing.T
	E        *echo.Echo
	DB       *gorm.DB
	Events   *stubPublisher
	MediaDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.CartItem{},
		&models.Purchase{},
	))

	events := &stubPublisher{}
	mediaDir := t.TempDir()

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Renderer = render.New()
	e.Validator = forms.NewEchoValidator()

	httpserver.Register(e, &httpserver.Deps{
		DB:              db,
		JWTSecret:       testSecret,
		MediaDir:        mediaDir,
		AuthHandler:     &handlers.AuthHandler{DB: db, JWTSecret: testSecret, Producer: events},
		ProductHandler:  &handlers.ProductHandler{DB: db, Producer: events, MediaDir: mediaDir},
		CartHandler:     &handlers.CartHandler{DB: db, Producer: events},
		PurchaseHandler: &handlers.PurchaseHandler{DB: db, Producer: events},
	})

	return &testEnv{T: t, E: e, DB: db, Events: events, MediaDir: mediaDir}
}

func (env *testEnv) createUser(username, password string) models.User {
	env.T.Helper()
	passwordHash, err := hash.HashPassword(password)
	require.NoError(env.T, err)
	user := models.User{Username: username, PasswordHash: passwordHash}
	require.NoError(env.T, env.DB.Create(&user).Error)
	return user
}

func (env *testEnv) createProduct(seller models.User, title, price string) models.Product {
	env.T.Helper()
	product := models.Product{
		Title:       title,
		Description: "test description",
		Price:       decimal.RequireFromString(price),
		SellerID:    seller.ID,
	}
	require.NoError(env.T, env.DB.Create(&product).Error)
	return product
}

func (env *testEnv) sessionCookie(user models.User) *http.Cookie {
	env.T.Helper()
	token, _, err := session.Issue(testSecret, user.ID, user.Username)
	require.NoError(env.T, err)
	return &http.Cookie{Name: session.CookieName, Value: token, Path: "/"}
}

func (env *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	env.T.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	env.T.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) postMultipart(path string, fields map[string]string, fileField, fileName string, fileContent []byte, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	env.T.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(env.T, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		require.NoError(env.T, err)
		_, err = fw.Write(fileContent)
		require.NoError(env.T, err)
	}
	require.NoError(env.T, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func poppedFlash(t *testing.T, rec *httptest.ResponseRecorder) *flash.Message {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "flash" && ck.Value != "" {
			msg, err := flash.Decode(ck.Value)
			require.NoError(t, err)
			return msg
		}
	}
	return nil
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}
