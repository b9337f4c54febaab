// Package main provides the entry point for the Campaign Studio CLI and API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "campaign_agent",
	Short: "Campaign Studio marketing content server",
	Long:  "Campaign Studio turns a business URL and campaign goals into tier-scoped marketing packages (text ads, image concepts, video scripts) through an asynchronous generation pipeline.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
