package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kehao95/gh-dispatch/internal/assertion"
	"github.com/kehao95/gh-dispatch/internal/bot"
	"github.com/kehao95/gh-dispatch/internal/client"
	"github.com/kehao95/gh-dispatch/internal/config"
	"github.com/kehao95/gh-dispatch/internal/dispatch"
	"github.com/kehao95/gh-dispatch/internal/envelope"
	"github.com/kehao95/gh-dispatch/internal/logging"
	"github.com/kehao95/gh-dispatch/internal/message"
	"github.com/kehao95/gh-dispatch/internal/server"
	"github.com/kehao95/gh-dispatch/internal/sse"
	"github.com/spf13/cobra"
)

type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit with code %d", e.code)
}

func (e exitError) ExitCode() int {
	return e.code
}

func runWithSignals(run func(context.Context) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
	}()

	select {
	case sig := <-sigCh:
		cancel()
		_ = <-errCh
		if sig == os.Interrupt {
			return exitError{code: 130}
		}
		return exitError{code: 143}
	case err := <-errCh:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

var logLevel string

func main() {
	rootCmd := &cobra.Command{
		Use:           "gh-dispatch",
		Short:         "Decode GitHub issue, pull request and comment events into typed hooks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(dispatchCommand(), serveCommand(), streamCommand(), relayCommand())

	if err := rootCmd.Execute(); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func levelOr(fallback string) string {
	if logLevel != "" {
		return logLevel
	}
	return fallback
}

func dispatchCommand() *cobra.Command {
	var (
		file       string
		fromEnv    bool
		eventName  string
		requireRun bool
	)
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Dispatch one event envelope to the echo bot",
		Long: `Reads an envelope from --file, the JSON environment variable, or stdin,
and prints the hook it routes to. With --actions the envelope is built
from the GitHub Actions runner environment. With --event-name the input
is a raw webhook body delivered as that event.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(levelOr("warn"), os.Stderr)

			raw, err := readEnvelope(fromEnv, file, eventName)
			if err != nil {
				return err
			}

			opts := []dispatch.Option{dispatch.WithLogger(logger)}
			if requireRun {
				opts = append(opts, dispatch.RequireRunningInfo())
			}
			d := dispatch.New(bot.NewEcho(cmd.OutOrStdout()), opts...)

			return runWithSignals(func(ctx context.Context) error {
				if err := d.Dispatch(ctx, raw); err != nil {
					logger.WithError(err).Error("dispatch failed")
					return exitError{code: 1}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the envelope from a file")
	cmd.Flags().BoolVar(&fromEnv, "actions", false, "Build the envelope from GITHUB_* runner variables")
	cmd.Flags().StringVar(&eventName, "event-name", "", "Treat the input as a raw webhook body for this event")
	cmd.Flags().BoolVar(&requireRun, "require-run", false, "Reject envelopes without run_id and run_number")
	return cmd
}

// readEnvelope resolves the dispatch input: the Actions environment,
// then --file, then $JSON, then stdin.
func readEnvelope(fromEnv bool, file, eventName string) ([]byte, error) {
	if fromEnv {
		env, err := envelope.FromActionsEnv()
		if err != nil {
			return nil, err
		}
		return env.Marshal()
	}

	var (
		body []byte
		err  error
	)
	switch {
	case file != "":
		body, err = os.ReadFile(file)
	case os.Getenv("JSON") != "":
		body = []byte(os.Getenv("JSON"))
	default:
		body, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	if eventName == "" {
		return body, nil
	}
	env, err := envelope.FromWebhook(eventName, body)
	if err != nil {
		return nil, err
	}
	return env.Marshal()
}

func serveCommand() *cobra.Command {
	var (
		configPath string
		port       int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.New(cfg.LogLevel, os.Stderr)
			return runWithSignals(func(ctx context.Context) error {
				err := server.Run(ctx, server.Config{
					Port:          cfg.Port,
					WebhookSecret: cfg.WebhookSecret,
					DedupWindow:   cfg.DedupWindow,
					MaxTextBytes:  cfg.MaxTextBytes,
					Logger:        logger,
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")
	return cmd
}

func streamCommand() *cobra.Command {
	var (
		serverURL string
		events    []string
		successOn []string
		failureOn []string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Connect to the WebSocket stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			successAssertions, err := assertion.ParseAll(successOn, 0)
			if err != nil {
				return err
			}
			failureAssertions, err := assertion.ParseAll(failureOn, 1)
			if err != nil {
				return err
			}

			logger := logging.New(levelOr("info"), os.Stderr)
			return runWithSignals(func(ctx context.Context) error {
				err := client.Run(ctx, client.Config{
					ServerURL:         serverURL,
					Events:            events,
					SuccessAssertions: successAssertions,
					FailureAssertions: failureAssertions,
					Timeout:           timeout,
					Out:               cmd.OutOrStdout(),
					Logger:            logger,
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "ws://localhost:8080/ws", "WebSocket server URL")
	cmd.Flags().StringArrayVar(&events, "event", nil, "Subscribe to an event family or hook name")
	cmd.Flags().StringArrayVar(&successOn, "success-on", nil, "Exit 0 when assertion matches")
	cmd.Flags().StringArrayVar(&failureOn, "failure-on", nil, "Exit 1 when assertion matches")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Exit 124 when nothing matched within this duration")
	return cmd
}

func relayCommand() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Dispatch deliveries from a smee.io channel to the echo bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if source == "" {
				return errors.New("--source is required")
			}
			logger := logging.New(levelOr("info"), os.Stderr)
			d := dispatch.New(bot.NewEcho(cmd.OutOrStdout()), dispatch.WithLogger(logger))

			return runWithSignals(func(ctx context.Context) error {
				return sse.NewClient(source, logger).Run(ctx, func(delivery message.Delivery) error {
					return relayDelivery(ctx, d, delivery, logger)
				})
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "smee.io channel URL")
	return cmd
}
