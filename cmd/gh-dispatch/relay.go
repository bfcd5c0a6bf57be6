package main

import (
	"context"

	"github.com/kehao95/gh-dispatch/internal/dispatch"
	"github.com/kehao95/gh-dispatch/internal/envelope"
	"github.com/kehao95/gh-dispatch/internal/message"
	"github.com/sirupsen/logrus"
)

// relayDelivery dispatches one relayed delivery. Payloads that do not
// decode are logged and skipped; only hook failures stop the relay.
func relayDelivery(ctx context.Context, d *dispatch.Dispatcher, delivery message.Delivery, logger *logrus.Logger) error {
	entry := logger.WithFields(logrus.Fields{
		"event":    delivery.Event,
		"delivery": delivery.DeliveryID,
	})
	if delivery.Event == "ping" {
		entry.Debug("ping ignored")
		return nil
	}

	env, err := envelope.FromWebhook(delivery.Event, delivery.Body)
	if err != nil {
		entry.WithError(err).Warn("delivery rejected")
		return nil
	}
	raw, err := env.Marshal()
	if err != nil {
		return err
	}

	err = d.Dispatch(ctx, raw)
	if dispatch.IsDecodeError(err) {
		entry.WithError(err).Warn("delivery skipped")
		return nil
	}
	return err
}
