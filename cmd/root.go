package cmd

import (
	"fmt"
	"log"
	"os"

	"recbox/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "recbox",
	Short: "recbox records meetings, transcribes them and manages the results.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting recbox server...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
