package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set by build scripts via -ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show Sampo version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Sampo v%s\n", version)
		fmt.Printf("Git Commit: %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}
