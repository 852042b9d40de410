package handlers

import (
	"net/http"

	"classbook/utils"

	"github.com/gin-gonic/gin"
)

// Health returns the latest dependency health snapshot.
// GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, utils.GetHealthStatus())
}
