package controllers

import (
	"github.com/Instant-Chat-App/InstantChat-Server/realtime"
	"github.com/gin-gonic/gin"
)

// WSController hands the upgrade request to the realtime gateway.
func WSController(gateway *realtime.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		gateway.HandleConnection(c.Writer, c.Request)
	}
}
