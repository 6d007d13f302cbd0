package tunnel

import (
	"bridge-keeper/cmd/root"

	"github.com/spf13/cobra"
)

var tunnelCmd = &cobra.Command{
	Use:   "tunnel",
	Short: "Tunnel operations (list, start/stop etc.)",
	Long:  `Tunnel operations (list, start/stop etc.)`,
}

const tunnelExample = `  # ensure a tunnel for the data bridge
  bridge-keeper tunnel start`

func init() {
	root.RootCmd.AddCommand(tunnelCmd)

	tunnelCmd.Example = tunnelExample
}
