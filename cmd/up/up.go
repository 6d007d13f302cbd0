package up

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"bridge-keeper/cmd/root"
	"bridge-keeper/internal/logger"
	"bridge-keeper/services"

	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Ensure the tunnel, publish its URL and monitor until it exits",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runUp(); err != nil {
			logger.Fatal(err)
		}
	},
}

/**
 * Run the keeper's primary sequence in the foreground
 * @returns {error} Returns error when the tunnel cannot be ensured
 * @description
 * - Ensures exactly one healthy tunnel for the configured bridge port
 * - Publishes the public URL to the configured targets (best effort)
 * - Blocks in the monitor loop until the tunnel subprocess exits or
 *   the operator interrupts the keeper
 */
func runUp() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	server := services.GetServer()
	session, publication, err := server.RunOnce(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Tunnel ready: %s -> localhost:%d\n", session.PublicURL, session.LocalPort)
	if publication.Gated {
		fmt.Printf("Publication skipped: %s\n", publication.GateReason)
	} else {
		fmt.Printf("Publication: %d published, %d skipped, %d failed\n",
			publication.Published(), publication.Skipped(), publication.Failed())
	}

	server.MonitorSession(ctx, session)
	return nil
}

func init() {
	root.RootCmd.AddCommand(upCmd)

	upCmd.Example = `  # keep the data bridge reachable and watched
  bridge-keeper up`
}
