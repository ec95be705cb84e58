package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteenkart/middlewares"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/realtime"
	"github.com/yeremiapane/canteenkart/utils"
)

type RealtimeController struct {
	Hub *realtime.Hub
}

func NewRealtimeController(hub *realtime.Hub) *RealtimeController {
	return &RealtimeController{Hub: hub}
}

// Connect upgrades to a websocket. Owners join the owners room, everyone
// else their own user room.
func (rc *RealtimeController) Connect(c *gin.Context) {
	uid, _ := middlewares.CurrentUserID(c)
	rooms := []string{realtime.UserRoom(uid)}
	if middlewares.CurrentRole(c) == models.RoleOwner {
		rooms = []string{realtime.OwnersRoom}
	}
	if err := rc.Hub.Serve(c.Writer, c.Request, rooms); err != nil {
		utils.ErrorLogger.WithError(err).WithField("user_id", uid).Warn("websocket upgrade failed")
	}
}
