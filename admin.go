package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/database"
	"github.com/lumenbrand/lumen-engine/pkg/repositories"
	"github.com/lumenbrand/lumen-engine/pkg/services"
)

var orgFlag string

func init() {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}

	importCmd := &cobra.Command{
		Use:   "import-products <file.csv>",
		Short: "Import a product catalog CSV for an organization",
		Long: "Import a product catalog CSV. Headers are matched case-insensitively; rows whose " +
			"handle already exists update that product. Prints the import report as JSON.",
		Args: cobra.ExactArgs(1),
		RunE: runImportProducts,
	}
	importCmd.Flags().StringVar(&orgFlag, "org", "", "Organization ID (required)")
	_ = importCmd.MarkFlagRequired("org")

	mergeCmd := &cobra.Command{
		Use:   "merge-duplicates",
		Short: "Merge products that share a handle, keeping the most complete record",
		Args:  cobra.NoArgs,
		RunE:  runMergeDuplicates,
	}
	mergeCmd.Flags().StringVar(&orgFlag, "org", "", "Organization ID (required)")
	_ = mergeCmd.MarkFlagRequired("org")

	rootCmd.AddCommand(migrateCmd, importCmd, mergeCmd)
}

func runMigrate(_ *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return database.MigrateURL(cfg.Database.ConnectionString(), cfg.Database.MigrationsPath, logger)
}

// withTenant opens the database and runs fn with a product service and a
// context scoped to orgID.
func withTenant(cmd *cobra.Command, orgID uuid.UUID, fn func(ctx context.Context, svc services.ProductService, logger *zap.Logger) error) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := openDatabase(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cleanup, err := services.NewTenantContextFunc(db)(cmd.Context(), orgID)
	if err != nil {
		return fmt.Errorf("acquire organization connection: %w", err)
	}
	defer cleanup()

	return fn(ctx, services.NewProductService(repositories.NewProductRepository(), logger), logger)
}

func runImportProducts(cmd *cobra.Command, args []string) error {
	orgID, err := uuid.Parse(orgFlag)
	if err != nil {
		return fmt.Errorf("invalid --org %q: %w", orgFlag, err)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	return withTenant(cmd, orgID, func(ctx context.Context, svc services.ProductService, logger *zap.Logger) error {
		report, err := svc.ImportCSV(ctx, orgID, f)
		if err != nil {
			return err
		}
		logger.Info("Imported products",
			zap.String("organization_id", orgID.String()),
			zap.String("file", args[0]),
			zap.Int("created", report.Created),
			zap.Int("updated", report.Updated),
			zap.Int("skipped", report.Skipped))
		return printJSON(report)
	})
}

func runMergeDuplicates(cmd *cobra.Command, _ []string) error {
	orgID, err := uuid.Parse(orgFlag)
	if err != nil {
		return fmt.Errorf("invalid --org %q: %w", orgFlag, err)
	}

	return withTenant(cmd, orgID, func(ctx context.Context, svc services.ProductService, logger *zap.Logger) error {
		report, err := svc.MergeDuplicates(ctx, orgID)
		if err != nil {
			return err
		}
		logger.Info("Merged duplicate products",
			zap.String("organization_id", orgID.String()),
			zap.Int("handles", report.Handles),
			zap.Int("removed", report.Removed))
		return printJSON(report)
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
