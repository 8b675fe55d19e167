// Package cli wires the nzbidx commands: cobra command tree, config
// loading, signal handling and the exit-code mapping for drivers.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	prof "github.com/go-while/go-cpu-mem-profiler"
	"github.com/spf13/cobra"

	"github.com/go-while/go-nzbidx/internal/config"
	"github.com/go-while/go-nzbidx/internal/metrics"
	"github.com/go-while/go-nzbidx/internal/nntp"
)

// AppVersion is injected by the build via -ldflags.
var AppVersion = "-unset-"

// Exit codes for drivers wrapping the commands.
const (
	ExitOK             = 0
	ExitError          = 1
	ExitConfig         = 2
	ExitAuth           = 3
	ExitPartialFailure = 4
	ExitCancelled      = 5
)

// ErrPartialFetch marks a run that persisted most chunks but abandoned
// some; the failed ranges have been logged and can be refetched.
var ErrPartialFetch = errors.New("some chunks failed")

var (
	cfgFile     string
	pprofAddr   string
	metricsAddr string

	cfg  *config.Config
	Prof *prof.Profiler
)

var rootCmd = &cobra.Command{
	Use:           "nzbidx",
	Short:         "Index Usenet overview data into SQLite and build NZBs from it",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if pprofAddr != "" {
			Prof = prof.NewProf()
			go Prof.PprofWeb(pprofAddr)
			log.Printf("[CLI] pprof listening on %s", pprofAddr)
		}
		if metricsAddr != "" {
			go func() {
				if err := metrics.Serve(metricsAddr); err != nil {
					log.Printf("[CLI] metrics server failed: %v", err)
				}
			}()
			log.Printf("[CLI] metrics listening on %s", metricsAddr)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default config.ini)")
	rootCmd.PersistentFlags().StringVar(&pprofAddr, "pprof", "", "serve pprof web UI on this address")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics", "", "serve Prometheus metrics on this address")
}

// Execute runs the command tree under a signal-cancelled context and
// returns the process exit code. A second SIGINT kills the process the
// hard way; the first one cancels the run context and lets in-flight
// chunks drain.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		// restore the default handler after the first signal so a second
		// one terminates immediately
		<-ctx.Done()
		stop()
	}()

	rootCmd.Version = AppVersion
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitCode(err)
}

// exitCode maps error kinds onto the documented exit codes.
func exitCode(err error) int {
	var cfgErr *config.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		return ExitConfig
	case errors.Is(err, nntp.ErrAuthFailed):
		return ExitAuth
	case errors.Is(err, ErrPartialFetch):
		return ExitPartialFailure
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	}
	return ExitError
}

// targetGroups resolves the group list for a command: the --group flag
// when given, otherwise groups.names from the config.
func targetGroups(groupFlag string) ([]string, error) {
	if groupFlag != "" {
		return []string{groupFlag}, nil
	}
	if err := cfg.RequireGroups(); err != nil {
		return nil, err
	}
	return cfg.Groups.List(), nil
}

// newClientConfig builds the NNTP endpoint settings shared by all
// connections of one run.
func newClientConfig(maxConns int) (*nntp.ClientConfig, error) {
	if err := cfg.RequireServer(); err != nil {
		return nil, err
	}
	if err := cfg.PromptPassword(); err != nil {
		return nil, err
	}
	if maxConns <= 0 {
		maxConns = cfg.Server.MaxConns
	}
	if maxConns <= 0 {
		maxConns = cfg.Fetch.MaxWorkers
	}
	return &nntp.ClientConfig{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		UseTLS:   cfg.Server.UseTLS,
		Username: cfg.Server.Username,
		Password: cfg.Server.Password,
		Timeout:  cfg.Server.TimeoutDuration(),
		MaxConns: maxConns,
	}, nil
}
