package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse is the envelope every /api endpoint answers with.
type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

// RespondError reports err to the client. Server side failures are logged
// and replaced by a generic message so driver errors never leak.
func RespondError(c *gin.Context, code int, err error) {
	message := err.Error()
	if code >= http.StatusInternalServerError {
		ErrorLogger.WithError(err).WithField("path", c.Request.URL.Path).Error("api request failed")
		message = http.StatusText(code)
	}
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: message,
	})
}
