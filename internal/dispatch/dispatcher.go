// Package dispatch decodes forge activity envelopes into typed events
// and routes each one to exactly one Handler hook.
//
// An envelope is a JSON object carrying event_name ("issues",
// "pull_request" or "issue_comment"), the webhook payload under event,
// the "owner/name" repository string, and optionally head_ref,
// base_ref, run_id and run_number, matching the GitHub Actions
// context.
package dispatch

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Dispatcher decodes payloads and invokes its Handler. It keeps no
// state between calls and is safe for concurrent use.
type Dispatcher struct {
	handler Handler
	decoder decoder
	logger  *logrus.Logger
}

type Option func(*Dispatcher)

// WithLogger sets the logger used for per-dispatch debug records.
func WithLogger(logger *logrus.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// RequireRunningInfo makes run_id and run_number mandatory.
func RequireRunningInfo() Option {
	return func(d *Dispatcher) {
		d.decoder.requireRunningInfo = true
	}
}

// New returns a Dispatcher for handler. Panics if handler is nil.
func New(handler Handler, opts ...Option) *Dispatcher {
	if handler == nil {
		panic("dispatch: handler is required")
	}
	d := &Dispatcher{handler: handler}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logrus.New()
		d.logger.SetOutput(io.Discard)
	}
	return d
}

// Decode validates raw using the dispatcher's options without invoking
// the handler.
func (d *Dispatcher) Decode(raw []byte) (*Decoded, error) {
	return d.decoder.decode(raw)
}

// Dispatch decodes raw and invokes the matching hook, waiting for it to
// return. Decode failures are *DecodeError and happen before any hook
// runs; hook failures are returned wrapped.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) error {
	decoded, err := d.decoder.decode(raw)
	if err != nil {
		d.logger.WithError(err).Debug("payload rejected")
		return err
	}

	entry := d.logger.WithFields(logrus.Fields{
		"event_name": decoded.EventName,
		"action":     decoded.Action,
		"hook":       decoded.Hook.String(),
		"repository": decoded.Repository.FullName(),
	})
	entry.Debug("dispatching")

	if err := decoded.Invoke(ctx, d.handler); err != nil {
		entry.WithError(err).Debug("hook failed")
		return fmt.Errorf("%s hook: %w", decoded.Hook, err)
	}
	return nil
}
