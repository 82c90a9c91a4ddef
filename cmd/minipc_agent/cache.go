package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gonfdez/minipc-agent/internal/convert"
	"github.com/gonfdez/minipc-agent/internal/images"
)

var cacheCommand = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached scrape output",
}

var cacheCleanCommand = &cobra.Command{
	Use:   "clean",
	Short: "Delete cached output for a target or a whole brand",
	Long: `Deletes cached cleaned HTML and extracted JSON so the next scrape
re-processes the target. With --url, only that target's files are removed;
otherwise the whole brand directory is cleared.`,
	RunE: runCacheCleanCmd,
}

var (
	cacheOutputDir string
	cacheBrand     string
	cacheURL       string
)

func init() {
	cacheCleanCommand.Flags().StringVarP(&cacheOutputDir, "output", "o", "./scrapeResults", "Root directory of cached scrape output")
	cacheCleanCommand.Flags().StringVarP(&cacheBrand, "brand", "b", "", "Brand whose cache entries to delete (required)")
	cacheCleanCommand.Flags().StringVarP(&cacheURL, "url", "u", "", "Delete only this target's cache entries")
	_ = cacheCleanCommand.MarkFlagRequired("brand")

	cacheCommand.AddCommand(cacheCleanCommand)
	rootCmd.AddCommand(cacheCommand)
}

func runCacheCleanCmd(_ *cobra.Command, _ []string) error {
	brandDir := filepath.Join(cacheOutputDir, cacheBrand)

	if cacheURL == "" {
		if err := os.RemoveAll(brandDir); err != nil {
			return fmt.Errorf("failed to clear brand cache %s: %w", brandDir, err)
		}
		fmt.Printf("Cleared cache for brand %s\n", cacheBrand)
		return nil
	}

	fetcher := images.NewFetcher(images.Config{
		OutputDir: brandDir,
		Logger:    slog.Default(),
	})

	deleted, err := fetcher.RemoveByPrefix(convert.Slug(cacheURL))
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d cache entries for %s\n", deleted, cacheURL)
	return nil
}
