package tunnel

import (
	"context"
	"fmt"
	"log"

	"bridge-keeper/internal/config"
	"bridge-keeper/services"

	"github.com/spf13/cobra"
)

var (
	startApp  string
	startPort int
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Ensure a tunnel for the bridge port",
	Run: func(cmd *cobra.Command, args []string) {
		app := startApp
		if app == "" {
			app = config.Config.Bridge.Name
		}
		port := startPort
		if port == 0 {
			port = config.Config.Bridge.LocalPort
		}

		tunnelSvc := services.GetTunnelManager()
		si, err := tunnelSvc.EnsureTunnel(context.Background(), app, port)
		if err != nil {
			log.Fatalf("Failed to ensure tunnel: %v", err)
		}
		if si.Adopted {
			fmt.Printf("Adopted existing tunnel for app %s: %s -> localhost:%d\n",
				app, si.PublicURL, si.LocalPort)
		} else {
			fmt.Printf("Started tunnel for app %s: %s -> localhost:%d (PID: %d)\n",
				app, si.PublicURL, si.LocalPort, si.Pid)
		}
	},
}

func init() {
	startCmd.Flags().SortFlags = false
	startCmd.Flags().StringVarP(&startApp, "app", "a", "", "App name")
	startCmd.Flags().IntVarP(&startPort, "port", "p", 0, "Local port")

	tunnelCmd.AddCommand(startCmd)
}
