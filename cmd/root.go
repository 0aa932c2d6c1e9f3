package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/darmiel/paytrust/internal/buildinfo"
	"github.com/darmiel/paytrust/internal/logging"
)

// global flags
var (
	userConfig string
	timeout    time.Duration
	f          = NewFactory()

	cancelTimeout context.CancelFunc = func() {}
)

const (
	ServerAddrKey = "addr"
	TokenKey      = "token"
	ConfigKey     = "config"
)

var rootCmd = &cobra.Command{
	Use:   "paytrust",
	Short: fmt.Sprintf("PayTrust (version: %s, commit: %s)", buildinfo.Version, buildinfo.CommitHash),
	Long: `PayTrust keeps the platform certificates of payment merchants up to date,
signs outbound API requests and authenticates and decrypts inbound notifications.

Most commands work either locally with a merchant configuration (--config) or
against a running server (--server).`,
	Version: buildinfo.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, configErr := initConfig()
		logging.Init(nil)
		if configErr != nil { // handle error after logging is initialized
			return configErr
		}
		if configPath != "" {
			log.Debug().Msgf("using user config file: %s", configPath)
		}
		if timeout > 0 {
			var ctx context.Context
			ctx, cancelTimeout = context.WithTimeout(cmd.Context(), timeout)
			cmd.SetContext(ctx)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		cancelTimeout()
	},
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("execution failed")
		os.Exit(1)
	}
}

func init() {
	// setup pre-flag logger
	logging.InitDefault()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&userConfig, "user-config", "",
		"User configuration file for default values (default is $HOME/.paytrust.yaml)")
	pf.DurationVar(&timeout, "timeout", 0, "Abort the command after this duration (0 = no limit)")

	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "console", "Log format (console, json)")
	pf.Bool("no-color", false, "Disable color output")
	pf.StringVar(&f.RemoteAddr, "server", "", "Address of the remote PayTrust server, e.g. http://localhost:8080")

	for key, flag := range map[string]string{
		logging.LevelKey:   "log-level",
		logging.FormatKey:  "log-format",
		logging.NoColorKey: "no-color",
		ServerAddrKey:      "server",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}

	// PAYTRUST_ADDR, PAYTRUST_TOKEN, PAYTRUST_CONFIG, PAYTRUST_LOG_LEVEL, ...
	viper.SetEnvPrefix("PAYTRUST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

// initConfig reads the user config file, if any, and returns its path.
func initConfig() (string, error) {
	if userConfig != "" {
		viper.SetConfigFile(userConfig)
	} else {
		for _, dir := range userConfigDirs() {
			viper.AddConfigPath(dir)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".paytrust")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", err
	}
	return viper.ConfigFileUsed(), nil
}

// userConfigDirs lists the search path: current dir, $HOME, XDG config.
func userConfigDirs() []string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	if config, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(config, "paytrust"))
	}
	return dirs
}
