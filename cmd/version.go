package cmd

import (
	"fmt"

	"bridge-keeper/cmd/root"
	"bridge-keeper/internal/utils"

	"github.com/spf13/cobra"
)

func PrintVersions() {
	fmt.Printf("Version %s\n", utils.SoftwareVer)
	fmt.Printf("Build Time: %s\n", utils.BuildTime)
	fmt.Printf("Build Tag: %s\n", utils.BuildTag)
	fmt.Printf("Build Commit ID: %s\n", utils.BuildCommitId)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `The 'version' command shows version details including git commit and build time`,

	Run: func(cmd *cobra.Command, args []string) {
		PrintVersions()
	},
}

func init() {
	root.RootCmd.AddCommand(versionCmd)

	versionCmd.Example = `  bridge-keeper version`
}
