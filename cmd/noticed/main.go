// Command noticed runs the legal notice escalation workflow: it ingests
// flagged content, warns contacts by email, follows up, escalates unanswered
// cases to a legal request and correlates replies.
//
//	@title			Notice Escalator API
//	@version		1.0
//	@description	Flags suspicious content, warns the contact, follows up and escalates unanswered cases to a legal request.
//	@BasePath		/api/v1
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "noticed",
	Short: "Legal notice escalation service",
	Long: "noticed flags suspicious content, emails warnings to the account owner,\n" +
		"follows up and escalates unanswered cases to a CrPC section 91 request.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
