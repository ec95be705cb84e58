package controllers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteenkart/cart"
	"github.com/yeremiapane/canteenkart/middlewares"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/services"
	"github.com/yeremiapane/canteenkart/utils"
)

// View renders pages with the data every template expects.
type View struct {
	Settings *services.CanteenSettings
	Cart     cart.Store
}

func NewView(settings *services.CanteenSettings, store cart.Store) *View {
	return &View{Settings: settings, Cart: store}
}

type CurrentUser struct {
	ID   uint
	Name string
	Role string
}

func (u *CurrentUser) IsOwner() bool { return u.Role == models.RoleOwner }

func currentUser(c *gin.Context) *CurrentUser {
	id, ok := middlewares.CurrentUserID(c)
	if !ok {
		return nil
	}
	return &CurrentUser{ID: id, Name: middlewares.CurrentUserName(c), Role: middlewares.CurrentRole(c)}
}

func (v *View) Render(c *gin.Context, code int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Flashes"] = middlewares.PopFlashes(c)
	if u := currentUser(c); u != nil {
		data["CurrentUser"] = u
	}
	data["CanteenOpen"] = v.Settings.IsOpen()
	data["Announcement"] = v.Settings.Announcement()
	data["CartCount"] = v.Cart.Load(c).TotalQuantity()
	middlewares.SaveSession(c)
	c.HTML(code, name, data)
}

func (v *View) NotFound(c *gin.Context) {
	v.Render(c, http.StatusNotFound, "error.html", gin.H{
		"Title":   "Not found",
		"Message": "The page you were looking for does not exist.",
	})
}

func (v *View) ServerError(c *gin.Context, err error) {
	utils.ErrorLogger.WithField("path", c.Request.URL.Path).Errorf("internal error: %v", err)
	v.Render(c, http.StatusInternalServerError, "error.html", gin.H{
		"Title":   "Something went wrong",
		"Message": "Please try again in a moment.",
	})
}

// fail maps a service error to a flash and redirect when it is user facing,
// otherwise to the 500 page.
func (v *View) fail(c *gin.Context, err error, location string) {
	var ce *services.CustomError
	if errors.As(err, &ce) {
		middlewares.FlashRedirect(c, "warning", ce.Message, location)
		return
	}
	v.ServerError(c, err)
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// safeNext only allows local absolute paths as redirect targets.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

// formFloat parses a finite number from the form. NaN and infinities are
// refused since decimal cannot represent them.
func formFloat(c *gin.Context, key string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm(key)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func formBool(c *gin.Context, key string) bool {
	switch strings.ToLower(c.PostForm(key)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
