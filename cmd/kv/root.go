package kv

import (
	"github.com/spf13/cobra"
	"github.com/vaultkv/vaultkv/cmd/util"
	"github.com/vaultkv/vaultkv/rpc/client"
)

var (
	kvClient *client.Client

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value store operations against a running server",
		PersistentPreRunE: setupKVClient,
		PersistentPostRun: teardownKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common client flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(replCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient connects the shared client used by all subcommands
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	kvClient, err = client.Connect(*util.GetClientConfig())
	return err
}

func teardownKVClient(_ *cobra.Command, _ []string) {
	if kvClient != nil {
		_ = kvClient.Close()
	}
}
