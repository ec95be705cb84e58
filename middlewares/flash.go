package middlewares

import (
	"encoding/gob"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteenkart/utils"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

func init() {
	gob.Register(Flash{})
}

func AddFlash(c *gin.Context, category, message string) {
	sessions.Default(c).AddFlash(Flash{Category: category, Message: message})
}

// PopFlashes removes and returns pending flashes. The caller must save the session.
func PopFlashes(c *gin.Context) []Flash {
	raw := sessions.Default(c).Flashes()
	out := make([]Flash, 0, len(raw))
	for _, r := range raw {
		if f, ok := r.(Flash); ok {
			out = append(out, f)
		}
	}
	return out
}

// SaveSession persists session changes. It must run before the body is written.
func SaveSession(c *gin.Context) {
	if err := sessions.Default(c).Save(); err != nil {
		utils.ErrorLogger.Errorf("save session: %v", err)
	}
}

// Redirect saves the session and sends a 302.
func Redirect(c *gin.Context, location string) {
	SaveSession(c)
	c.Redirect(http.StatusFound, location)
}

func FlashRedirect(c *gin.Context, category, message, location string) {
	AddFlash(c, category, message)
	Redirect(c, location)
}
