// Command docsearch inspects, queries and publishes generated search-index
// files from the command line.
//
// Usage:
//
//	docsearch query --index build/html/searchindex.js python list
//	docsearch toc --collection tutorial 7
//	docsearch query --remote localhost:9091 "python -list"
//	docsearch publish --config configs/development.yaml --collection tutorial searchindex.js
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	indexPath  string
	collection string
	jsonOutput bool
}

var (
	flags globalFlags
	cfg   *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "docsearch",
	Short:        "Query and manage generated documentation search indexes",
	SilenceUsage: true,
	Long: `docsearch reads Search.setIndex(...) files produced by documentation
builds. It answers queries locally or against a running searcher over RPC,
and installs new index files into the collections a searcher serves.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// log lines go to stderr so stdout can be piped
		logger.SetupWriter(os.Stderr, flags.logLevel, flags.logFormat)
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return fmt.Errorf("cannot load config: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (YAML or TOML)")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.StringVar(&flags.logFormat, "log-format", "text", "log format: text or json")
	pf.StringVarP(&flags.indexPath, "index", "i", "", "index file to read")
	pf.StringVarP(&flags.collection, "collection", "c", "", "configured collection to read")
	pf.BoolVar(&flags.jsonOutput, "json", false, "print JSON instead of text")
}

func analyzer() tokenizer.Analyzer {
	return tokenizer.Analyzer{MinLength: cfg.Search.MinTokenLength}
}

// openStore loads the index named by --index, or the configured path of
// --collection. With neither flag and exactly one configured collection,
// that collection is used.
func openStore() (string, *index.Store, error) {
	path, name, err := resolveIndex(flags.indexPath, flags.collection)
	if err != nil {
		return "", nil, err
	}
	store, err := segment.Load(path)
	if err != nil {
		return "", nil, err
	}
	return name, store, nil
}

func resolveIndex(path, collection string) (string, string, error) {
	if path != "" {
		if collection == "" {
			collection = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		return path, collection, nil
	}
	cols := cfg.Index.Collections
	if collection == "" {
		if len(cols) != 1 {
			return "", "", fmt.Errorf("pass --index or --collection (%d collections configured): %w",
				len(cols), apperrors.ErrInvalidInput)
		}
		return cols[0].ResolvedPath(cfg.Index.DataDir), cols[0].Name, nil
	}
	p, err := collectionPath(collection)
	return p, collection, err
}

func collectionPath(collection string) (string, error) {
	for _, c := range cfg.Index.Collections {
		if c.Name == collection {
			return c.ResolvedPath(cfg.Index.DataDir), nil
		}
	}
	return "", fmt.Errorf("%q: %w", collection, apperrors.ErrCollectionNotFound)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
