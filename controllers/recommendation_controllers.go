package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteenkart/middlewares"
	"github.com/yeremiapane/canteenkart/recommend"
	"github.com/yeremiapane/canteenkart/utils"
)

type RecommendationController struct {
	Recs *recommend.Service
}

func NewRecommendationController(recs *recommend.Service) *RecommendationController {
	return &RecommendationController{Recs: recs}
}

func limitParam(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(recommend.DefaultLimit)))
	if err != nil {
		return recommend.DefaultLimit
	}
	return limit
}

func (rc *RecommendationController) Top(c *gin.Context) {
	items, err := rc.Recs.TopOrders(c.Request.Context(), limitParam(c))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Top orders", items)
}

func (rc *RecommendationController) ForUser(c *gin.Context) {
	uid, _ := middlewares.CurrentUserID(c)
	items, err := rc.Recs.UserRecommendations(c.Request.Context(), uid, limitParam(c))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Recommendations", items)
}
