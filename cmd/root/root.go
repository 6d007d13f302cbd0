package root

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "bridge-keeper",
	Short: "Keeper for the personal Data Bridge tunnel",
	Long:  `bridge-keeper keeps a public tunnel open for the local Data Bridge service, publishes the tunnel URL to dependent projects and monitors the bridge through its public endpoint`,
}
