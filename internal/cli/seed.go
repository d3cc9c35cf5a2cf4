package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanshika/docstore/internal/config"
	"github.com/vanshika/docstore/internal/generator"
	"github.com/vanshika/docstore/internal/logging"
	"github.com/vanshika/docstore/internal/storage"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	Database         string
	NumClients       int
	ReturnsPerClient int
	Seed             int64
}

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	defaults := generator.DefaultConfig()
	opts := &SeedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with generated sample records",
		Long: `Generate deterministic sample clients and tax returns and write
them to the SQLite database. The same --seed value always produces the
same dataset.

Example:
  docstore seed --db ./docstore.db --clients 50 --returns-per-client 4`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to the configured path)")
	cmd.Flags().IntVar(&opts.NumClients, "clients", defaults.NumClients, "number of clients to generate")
	cmd.Flags().IntVar(&opts.ReturnsPerClient, "returns-per-client", defaults.ReturnsPerClient, "tax returns per client")
	cmd.Flags().Int64Var(&opts.Seed, "seed", defaults.Seed, "random seed")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *SeedOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.Logging)

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Storage.Path
	}

	store, err := storage.Open(dbPath, storage.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing record store failed", "error", err)
		}
	}()

	gen := generator.New(generator.Config{
		NumClients:       opts.NumClients,
		ReturnsPerClient: opts.ReturnsPerClient,
		Seed:             opts.Seed,
	})

	ctx := cmd.Context()
	dataset, err := gen.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generating dataset: %w", err)
	}

	ids, err := generator.WriteDataset(ctx, store, dataset)
	if err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}

	logger.Info("seed complete", "db", dbPath, "clients", len(ids), "returns_per_client", opts.ReturnsPerClient, "seed", opts.Seed)
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d clients into %s\n", len(ids), dbPath)
	return nil
}
