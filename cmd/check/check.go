package check

import (
	"context"
	"fmt"
	"log"
	"os"

	"bridge-keeper/cmd/root"
	"bridge-keeper/internal/config"
	"bridge-keeper/internal/ngrok"
	"bridge-keeper/services"

	"github.com/spf13/cobra"
)

var checkURL string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one health probe against the bridge's public endpoint",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		url := checkURL
		if url == "" {
			client := ngrok.NewClient(config.Config.Tunnel.AdminPort)
			tun, err := client.FindTunnel(ctx, config.Config.Bridge.LocalPort)
			if err != nil {
				log.Fatalf("Failed to query tunnel provider: %v", err)
			}
			if tun == nil {
				log.Fatalf("No tunnel found for port %d", config.Config.Bridge.LocalPort)
			}
			url = tun.PublicURL
		}

		monitor := services.NewHealthMonitor()
		ok := monitor.CheckOnce(ctx, url+config.Config.Bridge.HealthPath)
		status := monitor.Status()
		if ok {
			fmt.Printf("Bridge healthy, status: %s\n", status.LastBackendStatus)
			if status.BloombergAvailable != nil {
				fmt.Printf("Bloomberg available: %v\n", *status.BloombergAvailable)
			}
			return
		}
		fmt.Println("Bridge health check failed")
		os.Exit(1)
	},
}

func init() {
	root.RootCmd.AddCommand(checkCmd)

	checkCmd.Flags().SortFlags = false
	checkCmd.Flags().StringVarP(&checkURL, "url", "u", "", "Public tunnel URL (default: the live tunnel)")
}
