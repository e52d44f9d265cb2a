package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/telegram-auth/internal/config"
	domainErrors "github.com/your-org/telegram-auth/internal/domain/errors"
	"github.com/your-org/telegram-auth/internal/domain/models"
	"github.com/your-org/telegram-auth/internal/domain/repository/memory"
	"github.com/your-org/telegram-auth/internal/service"
	"github.com/your-org/telegram-auth/internal/ws"
)

const (
	testBotToken     = "111111:handler-test-bot-token"
	testBotAPISecret = "handler-test-api-secret"
)

// fakeUserRepo is a map-backed UserRepository for handler tests.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int64]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*models.User)}
}

func (r *fakeUserRepo) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *user
	stored.UpdatedAt = time.Now()
	if existing, ok := r.users[user.TelegramID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = stored.UpdatedAt
	}
	r.users[user.TelegramID] = &stored
	out := stored
	return &out, nil
}

func (r *fakeUserRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[telegramID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	out := *user
	return &out, nil
}

type handlerTestSuite struct {
	router *gin.Engine
	tokens *service.TokenService
	users  *fakeUserRepo
	hub    *ws.Hub
	cancel context.CancelFunc
}

func setupHandlerTestSuite(t *testing.T) *handlerTestSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Telegram: config.TelegramConfig{
			BotToken:     testBotToken,
			BotAPISecret: testBotAPISecret,
		},
		JWT: config.JWTConfig{
			Secret:   "handler-test-session-secret",
			TokenTTL: 24 * time.Hour,
			Issuer:   "telegram-auth",
		},
		LoginCode: config.LoginCodeConfig{TTL: 10 * time.Minute},
		App:       config.AppConfig{BaseURL: "https://auth.example.com"},
	}

	logger := zap.NewNop()
	users := newFakeUserRepo()
	tokens := service.NewTokenService(&cfg.JWT)
	codes := service.NewLoginCodeService(memory.NewLoginCodeRepositoryMemory(), cfg.LoginCode.TTL, logger)
	auth := service.NewAuthService(cfg, logger, users, codes, tokens, nil)

	hub := ws.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	wsHandler := ws.NewHandler(hub, tokens, logger)
	authHandler := NewAuthHandler(auth, tokens, hub, logger)
	router := NewRouter(cfg, logger, authHandler, tokens, wsHandler)

	return &handlerTestSuite{router: router, tokens: tokens, users: users, hub: hub, cancel: cancel}
}

func signTestPayload(data map[string]interface{}) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		var v string
		switch val := data[k].(type) {
		case string:
			v = val
		case json.Number:
			v = val.String()
		}
		pairs = append(pairs, k+"="+v)
	}
	secret := sha256.Sum256([]byte(testBotToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

func signedWidgetBody(t *testing.T) []byte {
	t.Helper()
	data := map[string]interface{}{
		"id":        json.Number("1"),
		"username":  "a",
		"auth_date": json.Number("1700000000"),
	}
	data["hash"] = signTestPayload(data)
	body, err := json.Marshal(data)
	require.NoError(t, err)
	return body
}

func TestPostTelegramAuth_Success(t *testing.T) {
	ts := setupHandlerTestSuite(t)

	w := httptest.NewRecorder()
	req, _ := nethttp.NewRequest(nethttp.MethodPost, "/auth/telegram", bytes.NewReader(signedWidgetBody(t)))
	req.Header.Set("Content-Type", "application/json")
	ts.router.ServeHTTP(w, req)

	require.Equal(t, nethttp.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	telegramID, err := ts.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), telegramID)

	// Session cookie accompanies the JSON body.
	cookie := findCookie(w.Result().Cookies(), service.SessionCookieName)
	require.NotNil(t, cookie)
	assert.Equal(t, resp.Token, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, nethttp.SameSiteLaxMode, cookie.SameSite)

	// Identity was upserted.
	user, err := ts.users.FindByTelegramID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "a", user.Username)
}

func TestPostTelegramAuth_TamperedHash(t *testing.T) {
	ts := setupHandlerTestSuite(t)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(signedWidgetBody(t), &data))
	h := data["hash"].(string)
	last := h[len(h)-1]
	replacement := byte('0')
	if last == '0' {
		replacement = '1'
	}
	data["hash"] = h[:len(h)-1] + string(replacement)
	body, _ := json.Marshal(data)

	w := httptest.NewRecorder()
	req, _ := nethttp.NewRequest(nethttp.MethodPost, "/auth/telegram", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid hash"}`, w.Body.String())
}

func TestGetTelegramAuth_RedirectMode(t *testing.T) {
	ts := setupHandlerTestSuite(t)

	data := map[string]interface{}{
		"id":        "1",
		"username":  "a",
		"auth_date": "1700000000",
	}
	hash := signTestPayload(data)

	w := httptest.NewRecorder()
	req, _ := nethttp.NewRequest(nethttp.MethodGet,
		"/auth/telegram?id=1&username=a&auth_date=1700000000&hash="+hash, nil)
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusFound, w.Code)
	assert.Equal(t, "/dashboard.html", w.Header().Get("Location"))
	require.NotNil(t, findCookie(w.Result().Cookies(), service.SessionCookieName))
}

func TestCreateLoginCode_MissingBotToken(t *testing.T) {
	ts := setupHandlerTestSuite(t)

	w := httptest.NewRecorder()
	req, _ := nethttp.NewRequest(nethttp.MethodPost, "/api/create-login-code",
		strings.NewReader(`{"telegram_id":42}`))
	req.Header.Set("Content-Type", "application/json")
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusForbidden, w.Code)
}

func TestCreateLoginCode_WrongBotToken(t *testing.T) {
	ts := setupHandlerTestSuite(t)

	w := httptest.NewRecorder()
	req, _ := nethttp.NewRequest(nethttp.MethodPost, "/api/create-login-code",
		strings.NewReader(`{"telegram_id":42}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-bot-token", "wrong")
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusForbidden, w.Code)
}

func TestBotLoginFlow_CodeIsSingleUse(t *testing.T) {
	ts := setupHandlerTestSuite(t)

	// Bot mints a code.
	w := httptest.NewRecorder()
	req, _ := nethttp.NewRequest(nethttp.MethodPost, "/api/create-login-code",
		strings.NewReader(`{"telegram_id":42}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-bot-token", testBotAPISecret)
	ts.router.ServeHTTP(w, req)
	require.Equal(t, nethttp.StatusOK, w.Code)

	var resp struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.URL, "/bot-login?code=")
	path := strings.TrimPrefix(resp.URL, "https://auth.example.com")

	// First redemption logs in and redirects.
	w = httptest.NewRecorder()
	req, _ = nethttp.NewRequest(nethttp.MethodGet, path, nil)
	ts.router.ServeHTTP(w, req)
	require.Equal(t, nethttp.StatusFound, w.Code)
	assert.Equal(t, "/dashboard.html", w.Header().Get("Location"))
	cookie := findCookie(w.Result().Cookies(), service.SessionCookieName)
	require.NotNil(t, cookie)
	telegramID, err := ts.tokens.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(42), telegramID)

	// Second redemption of the same code is gone.
	w = httptest.NewRecorder()
	req, _ = nethttp.NewRequest(nethttp.MethodGet, path, nil)
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, nethttp.StatusGone, w.Code)
}

func TestBotLogin_MissingCode(t *testing.T) {
	ts := setupHandlerTestSuite(t)

	w := httptest.NewRecorder()
	req, _ := nethttp.NewRequest(nethttp.MethodGet, "/bot-login", nil)
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusBadRequest, w.Code)
}

func TestBotLogin_UnknownCode(t *testing.T) {
	ts := setupHandlerTestSuite(t)

	w := httptest.NewRecorder()
	req, _ := nethttp.NewRequest(nethttp.MethodGet, "/bot-login?code=no-such-code", nil)
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusGone, w.Code)
}

func TestPing_RequiresSession(t *testing.T) {
	ts := setupHandlerTestSuite(t)

	w := httptest.NewRecorder()
	req, _ := nethttp.NewRequest(nethttp.MethodGet, "/api/ping", nil)
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
}

func TestPing_WithValidSession(t *testing.T) {
	ts := setupHandlerTestSuite(t)

	token, err := ts.tokens.Issue(1)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := nethttp.NewRequest(nethttp.MethodGet, "/api/ping", nil)
	req.AddCookie(&nethttp.Cookie{Name: service.SessionCookieName, Value: token})
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestLogout_ClearsCookieAndRedirects(t *testing.T) {
	ts := setupHandlerTestSuite(t)

	token, err := ts.tokens.Issue(1)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := nethttp.NewRequest(nethttp.MethodGet, "/logout", nil)
	req.AddCookie(&nethttp.Cookie{Name: service.SessionCookieName, Value: token})
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	cookie := findCookie(w.Result().Cookies(), service.SessionCookieName)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestHealthz(t *testing.T) {
	ts := setupHandlerTestSuite(t)

	w := httptest.NewRecorder()
	req, _ := nethttp.NewRequest(nethttp.MethodGet, "/healthz", nil)
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusOK, w.Code)
}

func findCookie(cookies []*nethttp.Cookie, name string) *nethttp.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
