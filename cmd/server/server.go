package server

import (
	"context"
	"log"
	"net"
	"strconv"

	"bridge-keeper/cmd/root"
	"bridge-keeper/controllers"
	"bridge-keeper/internal/config"
	"bridge-keeper/internal/env"
	"bridge-keeper/internal/logger"
	"bridge-keeper/internal/middleware"
	"bridge-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the keeper with its local HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		if err := startServer(context.Background()); err != nil {
			log.Fatal(err)
		}
	},
}

/**
 * Start the keeper in server mode
 * @param {context.Context} ctx - Context for the keeper's background work
 * @returns {error} Returns error when the HTTP server cannot listen
 * @description
 * - Ensures the tunnel and publishes its URL on startup; a failure is
 *   logged, not fatal, so the API stays available for a retried ensure
 * - Monitors the session in the background while serving the local API
 */
func startServer(ctx context.Context) error {
	env.Daemon = true
	if _, portStr, err := net.SplitHostPort(config.Config.Server.Address); err == nil {
		env.ListenPort, _ = strconv.Atoi(portStr)
	}

	if config.Config.Server.Mode != "" {
		gin.SetMode(config.Config.Server.Mode)
	}
	router := gin.Default()
	router.Use(middleware.MetricsMiddleware())

	server := services.GetServer()

	apiController := controllers.NewAPIController(server)
	apiController.RegisterRoutes(router)
	tunnelController := controllers.NewTunnelController(server)
	tunnelController.RegisterRoutes(router)

	go func() {
		session, _, err := server.RunOnce(ctx)
		if err != nil {
			logger.Errorf("Tunnel startup failed: %v", err)
			return
		}
		server.MonitorSession(ctx, session)
	}()

	return router.Run(config.Config.Server.Address)
}

func init() {
	root.RootCmd.AddCommand(serverCmd)
}
