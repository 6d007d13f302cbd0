package controllers

import (
	"bridge-keeper/internal/config"
	"bridge-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIController struct {
	server *services.Server
}

/**
 * Create new API controller instance
 * @param {*services.Server} server - Keeper server holding the managers
 * @returns {*APIController} New API controller instance
 */
func NewAPIController(server *services.Server) *APIController {
	return &APIController{
		server: server,
	}
}

/**
 * Register all API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Registers keeper self-health, state snapshot, config reload and
 *   Prometheus metrics endpoints; tunnel routes live in TunnelController
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", a.Healthz)
	r.GET("/bridge/api/v1/state", a.State)
	r.POST("/bridge/api/v1/reload", a.ReloadConfig)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// @Summary Reload configuration
// @Description Reload the application configuration file from disk
// @Tags Config
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /bridge/api/v1/reload [post]
func (a *APIController) ReloadConfig(c *gin.Context) {
	if err := config.ReloadConfig(); err != nil {
		c.JSON(500, gin.H{
			"code":    "config.reload_failed",
			"message": "Failed to reload configuration: " + err.Error(),
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "success",
		"message": "Configuration reloaded successfully",
	})
}

// @Summary Keeper state snapshot
// @Description Current tunnel session, monitor status and publication outcome
// @Tags System
// @Produce json
// @Success 200 {object} models.ServerState
// @Router /bridge/api/v1/state [get]
func (a *APIController) State(c *gin.Context) {
	c.JSON(200, a.server.GetState())
}

// @Summary Keeper readiness probe
// @Description Keeper version, uptime and key counters
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	c.JSON(200, a.server.GetHealthz())
}
