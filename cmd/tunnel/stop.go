package tunnel

import (
	"fmt"
	"log"

	"bridge-keeper/internal/config"
	"bridge-keeper/services"

	"github.com/spf13/cobra"
)

var (
	stopApp  string
	stopPort int
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop tunnel for specified app",
	Run: func(cmd *cobra.Command, args []string) {
		app := stopApp
		if app == "" {
			app = config.Config.Bridge.Name
		}

		tunnelSvc := services.GetTunnelManager()
		if err := tunnelSvc.CloseTunnel(app, stopPort); err != nil {
			log.Fatalf("Failed to stop %s tunnel: %v", app, err)
		}

		fmt.Printf("Successfully stopped tunnel for app %s\n", app)
	},
}

func init() {
	stopCmd.Flags().SortFlags = false
	stopCmd.Flags().StringVarP(&stopApp, "app", "a", "", "App name")
	stopCmd.Flags().IntVarP(&stopPort, "port", "p", 0, "Port number")

	tunnelCmd.AddCommand(stopCmd)
}
