package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish/apikey"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the API keys that guard publishing",
	Long: `Create, list and revoke API keys stored in Postgres. Keys created with
--collection may only publish, reload or invalidate that collection.`,
}

var keyExpiry time.Duration

var keysCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a key and print it once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, done, err := openKeyStore(cmd)
		if err != nil {
			return err
		}
		defer done()
		var expires *time.Time
		if keyExpiry > 0 {
			t := time.Now().Add(keyExpiry)
			expires = &t
		}
		raw, err := store.CreateKey(cmd.Context(), args[0], flags.collection, expires)
		if err != nil {
			return err
		}
		fmt.Println(raw)
		fmt.Fprintln(os.Stderr, "store this key now; it cannot be shown again")
		return nil
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, done, err := openKeyStore(cmd)
		if err != nil {
			return err
		}
		defer done()
		keys, err := store.ListKeys(cmd.Context())
		if err != nil {
			return err
		}
		if flags.jsonOutput {
			return printJSON(os.Stdout, keys)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCOLLECTION\tCREATED\tEXPIRES")
		for _, k := range keys {
			scope, expires := k.Collection, "never"
			if scope == "" {
				scope = "*"
			}
			if k.ExpiresAt != nil {
				expires = k.ExpiresAt.Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", k.ID, k.Name, scope, k.CreatedAt.Format(time.RFC3339), expires)
		}
		return tw.Flush()
	},
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke ID",
	Short: "Deactivate a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, done, err := openKeyStore(cmd)
		if err != nil {
			return err
		}
		defer done()
		if err := store.RevokeKey(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("revoking key %s: %w", args[0], err)
		}
		fmt.Printf("  ✓  key %s revoked\n", args[0])
		return nil
	},
}

func init() {
	keysCreateCmd.Flags().DurationVar(&keyExpiry, "expires", 0, "key lifetime, e.g. 720h (default: never)")
	keysCmd.AddCommand(keysCreateCmd, keysListCmd, keysRevokeCmd)
	rootCmd.AddCommand(keysCmd)
}

func openKeyStore(cmd *cobra.Command) (*apikey.Store, func(), error) {
	if !cfg.Postgres.Enabled {
		return nil, nil, fmt.Errorf("api keys are stored in postgres; enable postgres in the config")
	}
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	store := apikey.NewStore(db)
	if err := store.EnsureSchema(cmd.Context()); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, func() { db.Close() }, nil
}
