// SPDX-License-Identifier: GPL-3.0-or-later

// Command webhouse runs a configurable, reloadable HTTP/HTTPS/HTTP2
// web server from a YAML component tree (§6 External Interfaces).
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/webhouse/webhouse"
)

var (
	flagConfig        string
	flagConfigURL     string
	flagDryRun        bool
	flagLogToStdout   bool
	flagMaxRunTimeSec int
	flagEarlyErrors   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeOf(err))
	}
}

// exitCodeOf maps an error to one of spec.md's three exit codes: 0
// clean, 1 configuration error or uncaught failure, 2 usage error.
func exitCodeOf(err error) int {
	if _, ok := err.(usageError); ok {
		return 2
	}
	return 1
}

// usageError marks a flag-combination mistake, distinct from a runtime
// or configuration failure, so main can pick exit code 2.
type usageError struct{ error }

var rootCmd = &cobra.Command{
	Use:   "webhouse",
	Short: "webhouse serves HTTP/HTTPS/HTTP2 from a declarative component tree",
	Long: `webhouse is a configurable, reloadable multi-endpoint web server.

Endpoints, applications, and services are assembled into a component
tree from a YAML configuration document, loaded either from a local
file (--config) or fetched over HTTP(S) (--config-url).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to a local YAML configuration file")
	rootCmd.Flags().StringVar(&flagConfigURL, "config-url", "", "URL to fetch a YAML configuration document from")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "build and validate the component tree, print it, and exit without serving")
	rootCmd.Flags().BoolVar(&flagLogToStdout, "log-to-stdout", false, "emit structured logs to stdout instead of discarding them")
	rootCmd.Flags().IntVar(&flagMaxRunTimeSec, "max-run-time-sec", 0, "stop the server after this many seconds (0 disables the limit)")
	rootCmd.Flags().BoolVar(&flagEarlyErrors, "early-errors", false, "report configuration validation errors per-record instead of failing at the first one")
}

func run(cmd *cobra.Command, args []string) error {
	if (flagConfig == "") == (flagConfigURL == "") {
		return usageError{fmt.Errorf("exactly one of --config or --config-url is required")}
	}

	undoMaxProcs, err := maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))
	defer undoMaxProcs()
	if err != nil {
		return fmt.Errorf("failed to set GOMAXPROCS: %w", err)
	}

	logger := webhouse.DefaultLogger()
	if flagLogToStdout {
		logger = webhouse.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	}

	var cfg *webhouse.WarehouseConfig
	if flagConfig != "" {
		cfg, err = webhouse.LoadConfigFile(flagConfig, flagEarlyErrors, logger)
	} else {
		cfg, err = webhouse.LoadConfigURL(flagConfigURL, flagEarlyErrors, logger)
	}
	if err != nil {
		return err
	}

	registry := webhouse.DefaultRegistry()
	rt := webhouse.NewRuntime()
	wh, err := webhouse.NewWarehouse(cfg, registry, rt, logger)
	if err != nil {
		return err
	}

	reloadConfig := func() (*webhouse.WarehouseConfig, error) {
		if flagConfig != "" {
			return webhouse.LoadConfigFile(flagConfig, flagEarlyErrors, logger)
		}
		return webhouse.LoadConfigURL(flagConfigURL, flagEarlyErrors, logger)
	}

	if flagDryRun {
		out, err := webhouse.DumpTreeYAML(wh)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	if err := wh.Start(false); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR2)

	var maxRunTimer <-chan time.Time
	if flagMaxRunTimeSec > 0 {
		timer := time.NewTimer(time.Duration(flagMaxRunTimeSec) * time.Second)
		defer timer.Stop()
		maxRunTimer = timer.C
	}

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				logger.Event("reloadRequested")
				if err := wh.Stop(true); err != nil {
					logger.Event("reloadFailed", "err", err)
					return err
				}
				newCfg, err := reloadConfig()
				if err != nil {
					logger.Event("reloadFailed", "err", err)
					return err
				}
				newWH, err := webhouse.NewWarehouse(newCfg, registry, rt, logger)
				if err != nil {
					logger.Event("reloadFailed", "err", err)
					return err
				}
				if err := newWH.Start(true); err != nil {
					logger.Event("reloadFailed", "err", err)
					return err
				}
				wh = newWH
			case syscall.SIGUSR2:
				out, err := webhouse.DumpTreeYAML(wh)
				if err != nil {
					logger.Event("treeDumpFailed", "err", err)
					continue
				}
				logger.Event("treeDump", "tree", out)
			default:
				return wh.Stop(false)
			}
		case <-maxRunTimer:
			return wh.Stop(false)
		}
	}
}
