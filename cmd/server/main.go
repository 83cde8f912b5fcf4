package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd runs the web server when no subcommand is given.
var rootCmd = &cobra.Command{
	Use:   "go-pages-app",
	Short: "A small site for sharing pages, comments and imported articles",
	RunE:  runServe,
	// Errors are reported once, by main.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
