package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/darmiel/paytrust/internal/cliconfig"
	"github.com/darmiel/paytrust/internal/config"
	"github.com/darmiel/paytrust/internal/service"
	"github.com/darmiel/paytrust/pkg/client"
)

type Factory struct {
	// RemoteAddr is the address of the PayTrust server to connect to.
	RemoteAddr string

	// ConfigPath points to the merchant configuration used by local commands.
	ConfigPath string
}

func NewFactory() *Factory {
	return &Factory{}
}

// Remote reports whether commands should talk to a server instead of
// loading the merchant configuration.
func (f *Factory) Remote() bool {
	return f.serverAddr() != "" && f.configPath() == ""
}

func (f *Factory) serverAddr() string {
	if f.RemoteAddr != "" { // prio 1: command-line flag
		return f.RemoteAddr
	}
	return viper.GetString(ServerAddrKey) // prio 2: config/env
}

func (f *Factory) configPath() string {
	if f.ConfigPath != "" {
		return f.ConfigPath
	}
	return viper.GetString(ConfigKey)
}

// GetClient returns an authenticated HTTP client for remote operations.
func (f *Factory) GetClient() (*client.Client, error) {
	server := f.serverAddr()
	if server == "" {
		return nil, fmt.Errorf("server address not configured (use --server or set PAYTRUST_ADDR)")
	}
	return client.New(server, client.WithAuthToken(f.token(server)))
}

// token prefers PAYTRUST_TOKEN over a token stored with 'paytrust token --save'.
func (f *Factory) token(server string) string {
	if token := viper.GetString(TokenKey); token != "" {
		return token
	}
	store, err := cliconfig.Load()
	if err != nil {
		log.Warn().Err(err).Msg("cannot read stored credentials")
		return ""
	}
	cred, err := store.GetCredential(server)
	if err != nil {
		return ""
	}
	if cred.Expired(time.Now()) {
		log.Warn().Str("server", server).Msg("stored admin token expired, run 'paytrust token --save'")
		return ""
	}
	return cred.Token
}

func (f *Factory) LoadConfig() (*config.Config, error) {
	path := f.configPath()
	if path == "" {
		return nil, fmt.Errorf("config file not specified (use --config or set PAYTRUST_CONFIG)")
	}
	return config.Load(path)
}

// GetLocalService loads all merchants of the configuration. Auto certificate
// sources download once; the refresh scheduler is stopped by Close.
func (f *Factory) GetLocalService(ctx context.Context) (*service.TrustService, error) {
	cfg, err := f.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.Audit.Enabled = false // local CLI operations are not audited
	return service.Build(ctx, cfg, service.BuildOptions{})
}

func (f *Factory) bindConfigFlag(flags *pflag.FlagSet) {
	flags.StringVarP(&f.ConfigPath, "config", "c", "", "The PayTrust merchant config file to use")
}
