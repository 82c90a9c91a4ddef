// Package main provides the entry point for the mini-PC catalog scraping agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "minipc_agent",
	Short: "Mini-PC catalog scraping agent",
	Long:  "minipc_agent renders vendor product pages in a headless browser, extracts structured mini-PC specifications via a language model, and persists them to the catalog database.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
