package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"bridge-keeper/internal/models"
	"bridge-keeper/services"

	"github.com/gin-gonic/gin"
)

// CreateTunnelRequest is the body for ensuring a tunnel via the local API.
type CreateTunnelRequest struct {
	AppName string `json:"app"`
	Port    int    `json:"port"`
}

// PublishRequest is the body for pushing a URL to the configured targets.
type PublishRequest struct {
	URL string `json:"url" binding:"required"`
}

// TunnelController handles tunnel-related HTTP requests
type TunnelController struct {
	server *services.Server
}

// NewTunnelController creates a new TunnelController bound to the keeper server
func NewTunnelController(server *services.Server) *TunnelController {
	return &TunnelController{
		server: server,
	}
}

// RegisterRoutes attaches tunnel and publication routes to the router.
func (tc *TunnelController) RegisterRoutes(r *gin.Engine) {
	r.GET("/bridge/api/v1/tunnels", tc.ListTunnels)
	r.POST("/bridge/api/v1/tunnels", tc.CreateTunnel)
	r.GET("/bridge/api/v1/tunnels/:app/:port", tc.GetTunnelInfo)
	r.DELETE("/bridge/api/v1/tunnels/:app/:port", tc.DeleteTunnel)
	r.POST("/bridge/api/v1/publish", tc.Publish)
}

// CreateTunnel ensures a tunnel for the requested application port
//
//	@Summary		Ensure tunnel
//	@Description	Adopt or create the public tunnel for the given local port
//	@Tags			Tunnels
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTunnelRequest	true	"Ensure tunnel request parameters"
//	@Success		200		{object}	models.TunnelSession	"Ensured tunnel session"
//	@Failure		400		{object}	models.ErrorResponse	"Invalid parameter error response"
//	@Failure		500		{object}	models.ErrorResponse	"Tunnel creation failure error response"
//	@Router			/bridge/api/v1/tunnels [post]
func (tc *TunnelController) CreateTunnel(c *gin.Context) {
	var req CreateTunnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Error: "Invalid request parameters",
		})
		return
	}

	si, err := tc.server.Tunnels().EnsureTunnel(c.Request.Context(), req.AppName, req.Port)
	if err != nil {
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, si.TunnelSession)
}

// DeleteTunnel closes the application's tunnel
//
//	@Summary		Close tunnel
//	@Description	Close the tunnel for the specified application and port
//	@Tags			Tunnels
//	@Accept			json
//	@Produce		json
//	@Param			app		path		string					true	"Application name"
//	@Param			port	path		string					true	"Port number"
//	@Success		200		{object}	models.TunnelResponse	"Tunnel close success response"
//	@Failure		400		{object}	models.ErrorResponse	"Invalid parameter error response"
//	@Failure		500		{object}	models.ErrorResponse	"Tunnel close failure error response"
//	@Router			/bridge/api/v1/tunnels/{app}/{port} [delete]
func (tc *TunnelController) DeleteTunnel(c *gin.Context) {
	appName := c.Param("app")

	portStr := c.Param("port")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Error: "Invalid port parameter",
		})
		return
	}

	if err := tc.server.Tunnels().CloseTunnel(appName, port); err != nil {
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, &models.TunnelResponse{
		AppName: appName,
		Status:  "success",
		Message: fmt.Sprintf("Successfully closed tunnel for app %s", appName),
	})
}

// ListTunnels lists all known tunnel sessions
//
//	@Summary		List all tunnels
//	@Description	Get list of all tunnel sessions
//	@Tags			Tunnels
//	@Accept			json
//	@Produce		json
//	@Success		200	{array}		models.TunnelSession	"Session list response"
//	@Router			/bridge/api/v1/tunnels [get]
func (tc *TunnelController) ListTunnels(c *gin.Context) {
	sessions := tc.server.Tunnels().ListSessions()

	c.JSON(http.StatusOK, sessions)
}

// GetTunnelInfo gets details of a specific tunnel session
//
//	@Summary		Get tunnel info
//	@Description	Get details of the specified tunnel session
//	@Tags			Tunnels
//	@Accept			json
//	@Produce		json
//	@Param			app		path		string					true	"Application name"
//	@Param			port	path		int						true	"Port number"
//	@Success		200		{object}	models.SessionDetail	"Session details response"
//	@Failure		404		{object}	models.ErrorResponse	"Tunnel not found error response"
//	@Router			/bridge/api/v1/tunnels/{app}/{port} [get]
func (tc *TunnelController) GetTunnelInfo(c *gin.Context) {
	appName := c.Param("app")
	portStr := c.Param("port")

	port, err := strconv.Atoi(portStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Error: "Invalid port parameter",
		})
		return
	}

	session, err := tc.server.Tunnels().GetSessionInfo(appName, port)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}

		c.JSON(status, &models.ErrorResponse{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, session)
}

// Publish pushes a tunnel URL to all configured publication targets
//
//	@Summary		Publish tunnel URL
//	@Description	Fan the given URL out to dependent projects' secret stores
//	@Tags			Tunnels
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PublishRequest				true	"Publish request parameters"
//	@Success		200		{object}	models.PublicationResult	"Per-target publication outcomes"
//	@Failure		400		{object}	models.ErrorResponse		"Invalid parameter error response"
//	@Router			/bridge/api/v1/publish [post]
func (tc *TunnelController) Publish(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Error: "Invalid request parameters",
		})
		return
	}

	result := tc.server.Publisher().Publish(c.Request.Context(), req.URL)
	c.JSON(http.StatusOK, result)
}
