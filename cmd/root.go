package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vaultkv/vaultkv/cmd/kv"
	"github.com/vaultkv/vaultkv/cmd/serve"
	"github.com/vaultkv/vaultkv/cmd/util"
	"github.com/vaultkv/vaultkv/lib/db"
	"github.com/vaultkv/vaultkv/lib/db/engines/memory"
	"github.com/vaultkv/vaultkv/lib/wal"
	"github.com/vaultkv/vaultkv/rpc/server"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "vaultkv",
		Short: "durable in-memory key-value store",
		Long: fmt.Sprintf(`vaultkv (v%s)

A single-node, in-memory key-value store served over a plain-text TCP
protocol, made durable by a write-ahead log that is replayed on startup.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of vaultkv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vaultkv v%s\n", Version)
		},
	}

	// compactCmd rewrites a WAL offline so it holds one record per live key
	compactCmd = &cobra.Command{
		Use:   "compact [wal-path]",
		Short: "Compact a write-ahead log",
		Long: `Compact a write-ahead log by replaying it and rewriting it as one SET
record per live key. Deleted and overwritten history is dropped. The
server must not be running on the same log while it is compacted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			walPath := args[0]

			// Replay the current log into a scratch store
			database := memory.NewMemoryDB(nil)
			applied, err := server.Recover(walPath, database)
			if err != nil {
				return err
			}

			// Rewrite the log from the live state, atomically
			writer, err := wal.Open(walPath)
			if err != nil {
				return err
			}
			defer writer.Close()

			if err := writer.Rewrite(snapshotOf(database)); err != nil {
				return err
			}

			fmt.Printf("compacted %s: %d records -> %d live keys\n", walPath, applied, database.Len())
			return nil
		},
	}
)

// snapshotOf adapts a store to the snapshot iterator the WAL rewriter expects
func snapshotOf(database db.KVDB) func(fn func(key, value string) bool) {
	return func(fn func(key, value string) bool) {
		database.ForEach(func(key string, value []byte) bool {
			return fn(key, string(value))
		})
	}
}

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(compactCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
