package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kehao95/gh-dispatch/internal/message"
	"github.com/sirupsen/logrus"
)

// Client reads webhook deliveries relayed by a smee.io channel.
type Client struct {
	URL        string
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

func NewClient(url string, logger *logrus.Logger) *Client {
	return &Client{URL: url, HTTPClient: http.DefaultClient, Logger: logger}
}

// Run streams deliveries to handle until ctx is done or handle fails,
// reconnecting with backoff when the stream drops.
func (c *Client) Run(ctx context.Context, handle func(message.Delivery) error) error {
	logger := c.logger()
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		connected, err := c.stream(ctx, handle)
		if connected {
			backoff = time.Second
		}

		var dropped streamError
		switch {
		case errors.Is(err, context.Canceled):
			return err
		case err == nil:
			logger.Info("disconnected")
		case errors.As(err, &dropped):
			logger.WithError(dropped.err).Info("disconnected")
		case !connected:
			logger.WithError(err).Warn("connect failed")
		default:
			return err
		}

		wait(ctx, backoff)
		backoff = nextBackoff(backoff)
	}
}

// stream runs one connection. connected reports whether the channel
// answered with an event stream.
func (c *Client) stream(ctx context.Context, handle func(message.Delivery) error) (bool, error) {
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	logger := c.logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")

	logger.WithField("url", c.URL).Info("connecting")
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	logger.WithField("url", c.URL).Info("connected")
	return true, c.readStream(ctx, resp.Body, handle)
}

func (c *Client) logger() *logrus.Logger {
	if c.Logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		return discard
	}
	return c.Logger
}

type streamError struct {
	err error
}

func (e streamError) Error() string {
	return e.err.Error()
}

func (e streamError) Unwrap() error {
	return e.err
}

type smeePayload struct {
	Event      string          `json:"x-github-event"`
	DeliveryID string          `json:"x-github-delivery"`
	Body       json.RawMessage `json:"body"`
}

type sseEvent struct {
	id    string
	event string
	data  []string
}

func (c *Client) readStream(ctx context.Context, body io.Reader, handle func(message.Delivery) error) error {
	reader := bufio.NewReader(body)
	var current sseEvent

	// flush hands a complete event to handle. Keep-alive and "ready"
	// events carry nothing to dispatch.
	flush := func() error {
		defer func() { current = sseEvent{} }()
		if len(current.data) == 0 || current.event == "ready" {
			return nil
		}
		delivery, err := decodeSmeeData(strings.Join(current.data, "\n"), current.id)
		if err != nil {
			c.logger().WithError(err).Warn("failed to decode smee payload")
			return nil
		}
		return handle(delivery)
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			return streamError{err: err}
		}

		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
		default:
			field, value := splitSSELine(line)
			switch field {
			case "id":
				current.id = value
			case "event":
				current.event = value
			case "data":
				current.data = append(current.data, value)
			}
		}
	}
}

func splitSSELine(line string) (string, string) {
	idx := strings.Index(line, ":")
	if idx == -1 {
		return line, ""
	}
	field := line[:idx]
	value := line[idx+1:]
	if strings.HasPrefix(value, " ") {
		value = value[1:]
	}
	return field, value
}

// decodeSmeeData unpacks a smee data frame. The SSE event id stands in
// for a missing delivery header.
func decodeSmeeData(raw, eventID string) (message.Delivery, error) {
	var payload smeePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return message.Delivery{}, err
	}
	if payload.Event == "" {
		return message.Delivery{}, fmt.Errorf("missing x-github-event")
	}
	if payload.DeliveryID == "" {
		payload.DeliveryID = eventID
	}
	if payload.DeliveryID == "" {
		return message.Delivery{}, fmt.Errorf("missing x-github-delivery")
	}
	if len(payload.Body) == 0 || string(payload.Body) == "null" {
		return message.Delivery{}, fmt.Errorf("missing body")
	}

	return message.Delivery{
		Event:      payload.Event,
		DeliveryID: payload.DeliveryID,
		Body:       payload.Body,
	}, nil
}

func wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > 30*time.Second {
		return 30 * time.Second
	}
	return next
}
