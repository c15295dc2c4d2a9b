package serve

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	vmetrics "github.com/VictoriaMetrics/metrics"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cmdUtil "github.com/vaultkv/vaultkv/cmd/util"
	"github.com/vaultkv/vaultkv/lib/db/engines/memory"
	"github.com/vaultkv/vaultkv/lib/wal"
	"github.com/vaultkv/vaultkv/rpc/common"
	"github.com/vaultkv/vaultkv/rpc/server"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the vaultkv server",
		Long:    `Start the vaultkv server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is VAULTKV_<flag> (e.g. VAULTKV_WAL_PATH=/var/lib/vaultkv/vaultkv.wal)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:6380", cmdUtil.WrapString("The address on which the server will listen for client connections"))

	key = "wal-path"
	ServeCmd.PersistentFlags().String(key, "vaultkv.wal", cmdUtil.WrapString("Path of the write-ahead log file. It is created on first start and replayed on every start"))

	key = "max-connections"
	ServeCmd.PersistentFlags().Int(key, 1000, cmdUtil.WrapString("Maximum number of simultaneous client connections. Connections above the ceiling are closed immediately"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Idle timeout in seconds after which a silent connection is closed. 0 disables the timeout"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Optional address for the Prometheus /metrics endpoint (e.g. localhost:9100). Empty disables metrics exposition"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and
// environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.WALPath = viper.GetString("wal-path")
	serveCmdConfig.MaxConnections = viper.GetInt("max-connections")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if serveCmdConfig.WALPath == "" {
		return fmt.Errorf("wal-path must not be empty")
	}
	if serveCmdConfig.MaxConnections <= 0 {
		return fmt.Errorf("max-connections must be positive, got %d", serveCmdConfig.MaxConnections)
	}

	return nil
}

// run starts the vaultkv server: replay the WAL into a fresh store, open the
// log for appending, then serve until SIGINT/SIGTERM
func run(_ *cobra.Command, _ []string) error {
	common.InitLoggers(*serveCmdConfig)
	logger := common.GetLogger("server")

	logger.Infof("Starting vaultkv server with configuration:\n%s", serveCmdConfig.String())

	// Recovery runs strictly before the first connection is accepted. A
	// replay error must keep the server down, a stale store is worse than
	// no store.
	database := memory.NewMemoryDB(nil)
	if _, err := server.Recover(serveCmdConfig.WALPath, database); err != nil {
		return fmt.Errorf("recovery failed: %w", err)
	}

	walWriter, err := wal.Open(serveCmdConfig.WALPath)
	if err != nil {
		return fmt.Errorf("failed to open WAL for appending: %w", err)
	}
	defer func() {
		if err := walWriter.Close(); err != nil {
			logger.Errorf("Failed to close WAL: %v", err)
		}
	}()

	// Optional Prometheus exposition
	if serveCmdConfig.MetricsEndpoint != "" {
		go func() {
			http.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
				vmetrics.WritePrometheus(w, true)
			})
			logger.Infof("Metrics available on http://%s/metrics", serveCmdConfig.MetricsEndpoint)
			if err := http.ListenAndServe(serveCmdConfig.MetricsEndpoint, nil); err != nil {
				logger.Errorf("Metrics endpoint failed: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.NewServer(*serveCmdConfig, database, walWriter).Serve(ctx)
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("vaultkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
