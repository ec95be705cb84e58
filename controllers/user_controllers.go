package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteenkart/middlewares"
	"github.com/yeremiapane/canteenkart/recommend"
	"github.com/yeremiapane/canteenkart/services"
	"github.com/yeremiapane/canteenkart/utils"
)

const dashboardRecommendations = 4

type UserController struct {
	*View
	Auth      *services.AuthService
	Analytics *services.AnalyticsService
	Recs      *recommend.Service
}

func NewUserController(view *View, auth *services.AuthService, analytics *services.AnalyticsService, recs *recommend.Service) *UserController {
	return &UserController{View: view, Auth: auth, Analytics: analytics, Recs: recs}
}

func (uc *UserController) Dashboard(c *gin.Context) {
	uid, _ := middlewares.CurrentUserID(c)
	ctx := c.Request.Context()
	summary, err := uc.Analytics.UserSummary(ctx, uid)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			middlewares.Logout(c)
			middlewares.FlashRedirect(c, "warning", "Please login again", "/auth/login")
			return
		}
		uc.ServerError(c, err)
		return
	}

	recs, err := uc.Recs.UserRecommendations(ctx, uid, dashboardRecommendations)
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("user_id", uid).Warn("recommendations unavailable")
		recs = nil
	}

	uc.Render(c, http.StatusOK, "user_dashboard.html", gin.H{
		"Title":           "My dashboard",
		"Summary":         summary,
		"Recommendations": recs,
	})
}

func (uc *UserController) ProfilePage(c *gin.Context) {
	uid, _ := middlewares.CurrentUserID(c)
	user, err := uc.Auth.GetUser(c.Request.Context(), uid)
	if err != nil {
		uc.fail(c, err, "/menu")
		return
	}
	uc.Render(c, http.StatusOK, "profile.html", gin.H{
		"Title": "Profile",
		"User":  user,
	})
}

func (uc *UserController) UpdateProfile(c *gin.Context) {
	uid, _ := middlewares.CurrentUserID(c)
	user, err := uc.Auth.UpdateProfile(c.Request.Context(), uid,
		strings.TrimSpace(c.PostForm("name")), strings.TrimSpace(c.PostForm("email")))
	if err != nil {
		uc.fail(c, err, "/profile")
		return
	}
	// keep the name shown in the header in step
	middlewares.Login(c, user.ID, user.Role, user.Name)
	middlewares.FlashRedirect(c, "success", "Profile updated", "/profile")
}

func (uc *UserController) Feedback(c *gin.Context) {
	itemID, ok := paramID(c, "item_id")
	if !ok {
		uc.NotFound(c)
		return
	}
	back := safeNext(c.PostForm("next"), "/orders/history")
	rating, err := strconv.Atoi(strings.TrimSpace(c.PostForm("rating")))
	if err != nil {
		middlewares.FlashRedirect(c, "warning", services.ErrInvalidRating.Message, back)
		return
	}

	uid, _ := middlewares.CurrentUserID(c)
	if _, err := uc.Analytics.AddFeedback(c.Request.Context(), uid, itemID, rating, strings.TrimSpace(c.PostForm("comments"))); err != nil {
		if errors.Is(err, services.ErrItemNotFound) {
			uc.NotFound(c)
			return
		}
		uc.fail(c, err, back)
		return
	}
	middlewares.FlashRedirect(c, "success", "Thanks for your feedback", back)
}
