// Package client follows the server's WebSocket stream, printing each
// event message as a JSON line until an exit assertion matches.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kehao95/gh-dispatch/internal/assertion"
	"github.com/kehao95/gh-dispatch/internal/logging"
	"github.com/sirupsen/logrus"
)

// ExitTimeout is the exit code when no assertion matched in time.
const ExitTimeout = 124

type Config struct {
	ServerURL         string
	Events            []string
	SuccessAssertions []assertion.Assertion
	FailureAssertions []assertion.Assertion
	// Timeout bounds the whole run across reconnects. Zero waits forever.
	Timeout time.Duration
	Out     io.Writer
	Logger  *logrus.Logger
}

type exitError struct {
	code   int
	reason string
}

func (e exitError) Error() string {
	if e.reason == "" {
		return fmt.Sprintf("exit with code %d", e.code)
	}
	return fmt.Sprintf("exit with code %d: %s", e.code, e.reason)
}

func (e exitError) ExitCode() int {
	return e.code
}

func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	stdout := bufio.NewWriter(out)

	var expired <-chan time.Time
	if cfg.Timeout > 0 {
		timer := time.NewTimer(cfg.Timeout)
		defer timer.Stop()
		expired = timer.C
	}

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log := logger.WithField("url", cfg.ServerURL)
		log.Info("connecting")
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.ServerURL, nil)
		if err == nil {
			backoff = time.Second
			log.Info("connected")
			if err = sendSubscribe(conn, cfg.Events); err == nil {
				err = readLoop(ctx, conn, stdout, logger, cfg, expired)
			} else {
				err = fmt.Errorf("subscribe: %w", err)
			}
			_ = conn.Close()
		}

		var exitErr interface{ ExitCode() int }
		switch {
		case errors.As(err, &exitErr):
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			log.WithError(err).Warn("disconnected")
		}

		select {
		case <-expired:
			return exitError{code: ExitTimeout, reason: "timed out"}
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff)
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, stdout *bufio.Writer, logger *logrus.Logger, cfg Config, expired <-chan time.Time) error {
	done := make(chan error, 1)
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				done <- err
				return
			}
			if err := writeLine(stdout, msg); err != nil {
				done <- err
				return
			}
			if exit := evaluate(msg, cfg.SuccessAssertions, cfg.FailureAssertions, logger); exit != nil {
				done <- *exit
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		_ = conn.Close()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	case <-expired:
		_ = conn.Close()
		<-done
		return exitError{code: ExitTimeout, reason: "timed out"}
	}
}

func writeLine(w *bufio.Writer, msg []byte) error {
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}

// evaluate checks success assertions before failure assertions.
func evaluate(msg []byte, success, failure []assertion.Assertion, logger *logrus.Logger) *exitError {
	if !json.Valid(msg) {
		logger.WithField("message", string(msg)).Warn("invalid json from server")
		return nil
	}
	for _, set := range [][]assertion.Assertion{success, failure} {
		matched, err := assertion.Any(set, msg)
		if err != nil {
			logger.WithError(err).Warn("assertion failed to evaluate")
			continue
		}
		if matched != nil {
			return &exitError{code: matched.ExitCode, reason: matched.String()}
		}
	}
	return nil
}

type subscribeMessage struct {
	Type   string   `json:"type"`
	Events []string `json:"events"`
}

func sendSubscribe(conn *websocket.Conn, events []string) error {
	if events == nil {
		events = []string{}
	}
	encoded, err := json.Marshal(subscribeMessage{Type: "subscribe", Events: events})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, encoded)
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > 30*time.Second {
		return 30 * time.Second
	}
	return next
}
