package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	LevelKey   = "log.level"
	FormatKey  = "log.format"
	NoColorKey = "log.no_color"
)

// Options configures the global logger. Zero values fall back to viper.
type Options struct {
	Level   string
	Format  string // "console" or "json"
	NoColor bool
	Output  io.Writer
}

// InitDefault sets up a console logger before flags are parsed.
func InitDefault() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Init configures the global zerolog logger. When opts is nil the values are
// read from viper (flags, env, config file).
func Init(opts *Options) {
	if opts == nil {
		opts = &Options{
			Level:   viper.GetString(LevelKey),
			Format:  viper.GetString(FormatKey),
			NoColor: viper.GetBool(NoColorKey),
		}
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if strings.EqualFold(opts.Format, "json") {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    opts.NoColor,
		TimeFormat: time.Kitchen,
	}).With().Timestamp().Logger()
}
