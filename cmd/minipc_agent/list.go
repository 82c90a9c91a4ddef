package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gonfdez/minipc-agent/internal/db"
)

var listCommand = &cobra.Command{
	Use:   "list",
	Short: "List catalog records in the database",
	RunE:  runListCmd,
}

var (
	listDatabaseURL string
	listBrand       string
	listLimit       int
	listOffset      int
)

func init() {
	listCommand.Flags().StringVar(&listDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	listCommand.Flags().StringVarP(&listBrand, "brand", "b", "", "Filter by brand")
	listCommand.Flags().IntVar(&listLimit, "limit", 50, "Maximum records to show")
	listCommand.Flags().IntVar(&listOffset, "offset", 0, "Records to skip")

	rootCmd.AddCommand(listCommand)
}

func runListCmd(_ *cobra.Command, _ []string) error {
	dsn := listDatabaseURL
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return fmt.Errorf("database URL required: pass --db-url or set DATABASE_URL")
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	summaries, err := database.ListMiniPCs(ctx, db.MiniPCFilters{
		Brand:  listBrand,
		Limit:  listLimit,
		Offset: listOffset,
	})
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Println("No records found")
		return nil
	}

	for _, s := range summaries {
		fmt.Printf("%s  %-12s  %-30s  %s\n", s.ID, s.Brand, s.Model, s.FromURL)
	}
	fmt.Printf("\n%d records\n", len(summaries))
	return nil
}
