package middlewares

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteenkart/utils"
)

const (
	KeyUserID   = "user_id"
	KeyRole     = "role"
	KeyUserName = "user_name"
)

// Authenticate resolves the caller from the session cookie, falling back to
// a bearer JWT in the Authorization header. The ?token= query parameter is
// honoured only on /ws and /api/ routes, where browsers cannot set headers.
// Anonymous requests pass through untouched.
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if id, ok := session.Get(KeyUserID).(uint); ok && id != 0 {
			role, _ := session.Get(KeyRole).(string)
			name, _ := session.Get(KeyUserName).(string)
			setIdentity(c, id, role, name)
			c.Next()
			return
		}

		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" && queryTokenAllowed(c.Request.URL.Path) {
			token = c.Query("token")
		}
		if token != "" {
			if claims, err := utils.ParseToken(token); err == nil {
				setIdentity(c, claims.UserID, claims.Role, claims.Name)
			}
		}
		c.Next()
	}
}

func queryTokenAllowed(path string) bool {
	return path == "/ws" || strings.HasPrefix(path, "/api/")
}

func setIdentity(c *gin.Context, id uint, role, name string) {
	c.Set(KeyUserID, id)
	c.Set(KeyRole, role)
	c.Set(KeyUserName, name)
}

// Login stores the identity in the session. The cart is kept.
func Login(c *gin.Context, id uint, role, name string) {
	session := sessions.Default(c)
	session.Set(KeyUserID, id)
	session.Set(KeyRole, role)
	session.Set(KeyUserName, name)
	setIdentity(c, id, role, name)
}

func Logout(c *gin.Context) {
	sessions.Default(c).Clear()
}

func CurrentUserID(c *gin.Context) (uint, bool) {
	id, ok := c.Get(KeyUserID)
	if !ok {
		return 0, false
	}
	uid, ok := id.(uint)
	return uid, ok && uid != 0
}

func CurrentRole(c *gin.Context) string {
	return c.GetString(KeyRole)
}

func CurrentUserName(c *gin.Context) string {
	return c.GetString(KeyUserName)
}

// RequireLogin sends anonymous browsers to the login page.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUserID(c); !ok {
			AddFlash(c, "warning", "Please login first")
			Redirect(c, "/auth/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole lets through only the listed roles; everyone else is sent
// back to the menu.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUserID(c); !ok {
			AddFlash(c, "warning", "Please login first")
			Redirect(c, "/auth/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		if !hasRole(CurrentRole(c), roles) {
			AddFlash(c, "danger", "Owner access required")
			Redirect(c, "/menu")
			c.Abort()
			return
		}
		c.Next()
	}
}

func APIRequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUserID(c); !ok {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authentication required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func APIRequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUserID(c); !ok {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authentication required"))
			c.Abort()
			return
		}
		if !hasRole(CurrentRole(c), roles) {
			utils.RespondError(c, http.StatusForbidden, errors.New("insufficient role"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
