package controllers

import (
	"craft-keeper/internal/middleware"
	"craft-keeper/services"

	"github.com/gin-gonic/gin"
)

/**
 * Build the HTTP router with every controller registered
 * @param {*services.Server} server - Shared server state
 * @returns {*gin.Engine} Router ready to serve
 */
func NewRouter(server *services.Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.MetricsMiddleware())

	NewAPIController(server).RegisterRoutes(r)
	NewVersionController(server.Launcher()).RegisterRoutes(r)
	NewInstanceController(server.Launcher()).RegisterRoutes(r)
	return r
}
