package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/canteenkart/utils"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	utils.InitLoggerWithLevel("error")
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.Use(Authenticate())
	return r
}

// loginAs mounts a route that logs the caller in and returns its cookie.
func loginAs(t *testing.T, r *gin.Engine, id uint, role string) *http.Cookie {
	t.Helper()
	r.GET("/_login", func(c *gin.Context) {
		Login(c, id, role, "tester")
		SaveSession(c)
		c.Status(http.StatusNoContent)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/_login", nil))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[len(cookies)-1]
}

func TestRequireRoleRedirects(t *testing.T) {
	r := newEngine()
	r.GET("/owner", RequireRole("owner"), func(c *gin.Context) { c.String(http.StatusOK, "welcome") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/owner", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login?next=%2Fowner", w.Header().Get("Location"))

	student := loginAs(t, r, 5, "student")
	req := httptest.NewRequest(http.MethodGet, "/owner", nil)
	req.AddCookie(student)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/menu", w.Header().Get("Location"))
}

func TestRequireRoleAllowsOwner(t *testing.T) {
	r := newEngine()
	r.GET("/owner", RequireRole("owner"), func(c *gin.Context) { c.String(http.StatusOK, "welcome") })
	owner := loginAs(t, r, 1, "owner")

	req := httptest.NewRequest(http.MethodGet, "/owner", nil)
	req.AddCookie(owner)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "welcome", w.Body.String())
}

func TestAPIAuthWithBearerToken(t *testing.T) {
	r := newEngine()
	r.GET("/api/me", APIRequireLogin(), func(c *gin.Context) {
		id, _ := CurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "role": CurrentRole(c)})
	})
	r.GET("/api/owner", APIRequireRole("owner"), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	utils.SetJWTSecret("middleware-test", time.Hour)
	token, err := utils.GenerateToken(9, "student", "S")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":9,"role":"student"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/owner?token="+token, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimiterPerIP(t *testing.T) {
	r := newEngine()
	rl := NewRateLimiter(2)
	r.POST("/auth/login", rl.Limit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2"), "other clients have their own bucket")
}

func TestFlashRoundTrip(t *testing.T) {
	r := newEngine()
	r.GET("/set", func(c *gin.Context) { FlashRedirect(c, "success", "Saved", "/get") })
	r.GET("/get", func(c *gin.Context) {
		flashes := PopFlashes(c)
		SaveSession(c)
		c.JSON(http.StatusOK, flashes)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/set", nil))
	require.Equal(t, http.StatusFound, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/get", nil)
	req.AddCookie(cookies[len(cookies)-1])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `[{"Category":"success","Message":"Saved"}]`, w.Body.String())
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	r := newEngine()
	r.Use(SecurityHeaders(false), LoggerMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestSecurityHeadersOverTLS(t *testing.T) {
	r := newEngine()
	r.Use(SecurityHeaders(true))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=")
}

func TestQueryTokenOnlyForAPIAndSocket(t *testing.T) {
	r := newEngine()
	r.GET("/owner", RequireRole("owner"), func(c *gin.Context) { c.String(http.StatusOK, "welcome") })
	r.GET("/api/owner", APIRequireRole("owner"), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/ws", APIRequireLogin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	utils.SetJWTSecret("middleware-test", time.Hour)
	token, err := utils.GenerateToken(1, "owner", "Boss")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/owner?token="+token, nil))
	assert.Equal(t, http.StatusFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/owner?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/owner", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
