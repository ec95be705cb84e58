package controllers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteenkart/middlewares"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/services"
	"github.com/yeremiapane/canteenkart/utils"
)

type AuthController struct {
	*View
	Auth *services.AuthService
}

func NewAuthController(view *View, auth *services.AuthService) *AuthController {
	return &AuthController{View: view, Auth: auth}
}

func homeFor(role string) string {
	if role == models.RoleOwner {
		return "/owner/dashboard"
	}
	return "/menu"
}

func (ac *AuthController) LoginPage(c *gin.Context) {
	if _, ok := middlewares.CurrentUserID(c); ok {
		middlewares.Redirect(c, homeFor(middlewares.CurrentRole(c)))
		return
	}
	ac.Render(c, http.StatusOK, "login.html", gin.H{
		"Title": "Login",
		"Next":  c.Query("next"),
	})
}

func (ac *AuthController) Login(c *gin.Context) {
	next := c.PostForm("next")
	user, err := ac.Auth.Login(c.Request.Context(), c.PostForm("phone"), c.PostForm("password"))
	if err != nil {
		var ce *services.CustomError
		if errors.As(err, &ce) {
			back := "/auth/login"
			if next != "" {
				back += "?next=" + url.QueryEscape(next)
			}
			middlewares.FlashRedirect(c, "danger", ce.Message, back)
			return
		}
		ac.ServerError(c, err)
		return
	}

	middlewares.Login(c, user.ID, user.Role, user.Name)
	services.RecordActivity(ac.Auth.DB.WithContext(c.Request.Context()), user.ID, nil, models.ActivityLogin)
	utils.InfoLogger.WithField("user_id", user.ID).Info("user logged in")
	middlewares.FlashRedirect(c, "success", "Welcome back, "+user.Name, safeNext(next, homeFor(user.Role)))
}

func (ac *AuthController) RegisterPage(c *gin.Context) {
	ac.Render(c, http.StatusOK, "register.html", gin.H{"Title": "Create account"})
}

func (ac *AuthController) Register(c *gin.Context) {
	user, err := ac.Auth.Register(c.Request.Context(), services.RegisterInput{
		Phone:           c.PostForm("phone"),
		Name:            c.PostForm("name"),
		Password:        c.PostForm("password"),
		ConfirmPassword: c.PostForm("confirm_password"),
	})
	if err != nil {
		ac.fail(c, err, "/auth/register")
		return
	}

	middlewares.Login(c, user.ID, user.Role, user.Name)
	middlewares.FlashRedirect(c, "success", "Account created. Welcome, "+user.Name, "/menu")
}

func (ac *AuthController) Logout(c *gin.Context) {
	middlewares.Logout(c)
	middlewares.FlashRedirect(c, "info", "You have been logged out", "/auth/login")
}

// APIToken exchanges phone and password for a bearer token.
func (ac *AuthController) APIToken(c *gin.Context) {
	var input struct {
		Phone    string `json:"phone" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := ac.Auth.Login(c.Request.Context(), input.Phone, input.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.RespondError(c, http.StatusUnauthorized, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Role, user.Name)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":      token,
		"user_role":  user.Role,
		"expires_in": int(utils.JWTTTL.Seconds()),
	})
}
