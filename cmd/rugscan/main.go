package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "rugscan"
	version = "v1.0.0"
)

var (
	flagConfig  string
	flagChain   string
	flagNoCache bool
	flagVerbose bool
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Token fraud and rug-risk scanner",
		Version: version,
		Long: `rugscan discovers token contract addresses in free text, combines
several independent data sources into a merged risk record, scores it,
and monitors pinned tokens for material risk changes.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagVerbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	scanCmd := &cobra.Command{
		Use:   "scan [text or address]",
		Short: "Extract addresses from text and score each token",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runScan,
	}
	scanCmd.Flags().StringVar(&flagChain, "chain", "", "chain override for bare addresses")
	scanCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "bypass the result cache")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage the monitored watchlist",
	}
	watchCmd.AddCommand(
		&cobra.Command{
			Use:   "add [address]",
			Short: "Pin a token and capture its baseline",
			Args:  cobra.ExactArgs(1),
			RunE:  runWatchAdd,
		},
		&cobra.Command{
			Use:   "remove [address]",
			Short: "Unpin a token",
			Args:  cobra.ExactArgs(1),
			RunE:  runWatchRemove,
		},
		&cobra.Command{
			Use:   "list",
			Short: "Show watched tokens",
			RunE:  runWatchList,
		},
		&cobra.Command{
			Use:   "alerts [address]",
			Short: "Show archived alerts for a watched token",
			Args:  cobra.ExactArgs(1),
			RunE:  runWatchAlerts,
		},
	)
	watchCmd.PersistentFlags().StringVar(&flagChain, "chain", "", "chain of the address")

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the watchlist polling loop",
		RunE:  runMonitor,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the message protocol over HTTP",
		RunE:  runServe,
	}

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop all cached scan results",
		RunE:  runCacheClear,
	})

	rootCmd.AddCommand(scanCmd, watchCmd, monitorCmd, serveCmd, cacheCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
