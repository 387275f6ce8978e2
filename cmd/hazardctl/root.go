package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mohammed-shakir/hazard-curve-service/internal/logger"
	"github.com/mohammed-shakir/hazard-curve-service/internal/store/redisstore"
)

var (
	redisAddr        string
	defaultRedisAddr = "localhost:6379"

	logLevel        string
	defaultLogLevel = "info"

	timeout        time.Duration
	defaultTimeout = 30 * time.Second
)

type loggerKey struct{}

func cmdLogger(cmd *cobra.Command) *slog.Logger {
	if l, ok := cmd.Context().Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// openStore connects to redis with the global flags applied.
func openStore(ctx context.Context) (*redisstore.Client, error) {
	rc, err := redisstore.New(ctx, redisAddr, redisstore.WithOpTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", redisAddr, err)
	}
	return rc, nil
}

var RootCmd = &cobra.Command{
	Use:          "hazardctl",
	Short:        "Load and query hazard curve datasets",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// flags not given on the command line fall back to HAZARDCTL_* env vars
		v := viper.New()
		v.SetEnvPrefix("HAZARDCTL")
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		v.AutomaticEnv()
		var setErr error
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if !f.Changed && v.IsSet(f.Name) {
				if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil && setErr == nil {
					setErr = fmt.Errorf("env for --%s: %w", f.Name, err)
				}
			}
		})
		if setErr != nil {
			return setErr
		}

		zl := logger.Build(logger.Config{Level: logLevel, Console: true, Component: "hazardctl"}, cmd.ErrOrStderr())
		ctx := context.WithValue(cmd.Context(), loggerKey{}, logger.NewSlog(&zl))
		cmd.SetContext(ctx)
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var resetFlagsFns = []func(){}

// ResetFlags restores every flag variable to its default between runs.
func ResetFlags() {
	for _, fn := range resetFlagsFns {
		fn()
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", defaultRedisAddr, "Redis address of the dataset store")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "Log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "Timeout for each store operation")

	resetFlagsFns = append(resetFlagsFns, func() {
		redisAddr = defaultRedisAddr
		logLevel = defaultLogLevel
		timeout = defaultTimeout
	})
}
