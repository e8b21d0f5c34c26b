package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish/history"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish/publisher"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish/validator"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

var publishFormat string

var publishCmd = &cobra.Command{
	Use:   "publish FILE",
	Short: "Install a generated index into a configured collection",
	Long: `Validate FILE, atomically replace the index of --collection with it and,
when Kafka is enabled in the config, announce the new build so running
searchers reload. Builds are recorded in Postgres when it is enabled.

  docsearch publish --config configs/development.yaml -c tutorial build/searchindex.js`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVarP(&publishFormat, "format", "f", "", "format to install: js or json (default: the target file's)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	body, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	req := &publish.Request{Collection: flags.collection, Format: publishFormat, Body: body}
	if err := validator.ValidateRequest(req); err != nil {
		return err
	}
	ctx := cmd.Context()

	opts := publisher.Options{}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexPublished)
		defer producer.Close()
		opts.Producer = producer
	}
	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, build will not be recorded", "error", err)
		} else {
			defer db.Close()
			builds := history.New(db)
			if err := builds.EnsureSchema(ctx); err != nil {
				return err
			}
			opts.History = builds
		}
	}

	pub := publisher.New(collectionPath, opts)
	res, err := pub.Publish(ctx, req)
	if err != nil {
		return err
	}
	if flags.jsonOutput {
		return printJSON(os.Stdout, res)
	}
	printPublished(res)
	return nil
}

func printPublished(res *publish.Result) {
	if res.Status == publish.StatusUnchanged {
		fmt.Printf("  ~  [%s] unchanged, %s already installed\n", res.Collection, res.Path)
		return
	}
	fmt.Printf("  ✓  [%s] build %s installed at %s\n", res.Collection, res.BuildID, res.Path)
	fmt.Printf("     %d documents, %d terms, sha256 %.12s\n", res.Documents, res.Terms, res.Checksum)
}
