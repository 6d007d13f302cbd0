package publish

import (
	"context"
	"fmt"
	"log"

	"bridge-keeper/cmd/root"
	"bridge-keeper/internal/config"
	"bridge-keeper/internal/ngrok"
	"bridge-keeper/services"

	"github.com/spf13/cobra"
)

var publishURL string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a tunnel URL to all configured targets",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		url := publishURL
		if url == "" {
			// no URL given: take the live tunnel from the provider
			client := ngrok.NewClient(config.Config.Tunnel.AdminPort)
			tun, err := client.FindTunnel(ctx, config.Config.Bridge.LocalPort)
			if err != nil {
				log.Fatalf("Failed to query tunnel provider: %v", err)
			}
			if tun == nil {
				log.Fatalf("No tunnel found for port %d, pass --url or start one first",
					config.Config.Bridge.LocalPort)
			}
			url = tun.PublicURL
		}

		result := services.NewPublisher().Publish(ctx, url)
		if result.Gated {
			fmt.Printf("Publication skipped: %s\n", result.GateReason)
			return
		}
		for _, res := range result.Results {
			fmt.Printf("%-12s %s", res.Outcome, res.Target.ProjectName)
			if res.Detail != "" {
				fmt.Printf(" (%s)", res.Detail)
			}
			fmt.Println()
		}
	},
}

func init() {
	root.RootCmd.AddCommand(publishCmd)

	publishCmd.Flags().SortFlags = false
	publishCmd.Flags().StringVarP(&publishURL, "url", "u", "", "Tunnel URL to publish (default: the live tunnel)")

	publishCmd.Example = `  # publish the current tunnel URL
  bridge-keeper publish

  # publish an explicit URL
  bridge-keeper publish --url https://abc123.ngrok-free.app`
}
