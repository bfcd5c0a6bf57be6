package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kehao95/gh-dispatch/internal/dispatch"
	"github.com/kehao95/gh-dispatch/internal/envelope"
	"github.com/kehao95/gh-dispatch/internal/logging"
	"github.com/sirupsen/logrus"
)

// maxWebhookBodySize matches GitHub's documented payload cap of 25 MB
// with headroom.
const maxWebhookBodySize = 32 * 1024 * 1024

type Config struct {
	Port          int
	WebhookSecret string
	DedupWindow   time.Duration
	MaxTextBytes  int
	Logger        *logrus.Logger
}

func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("info", nil)
	}

	hub := newHub()
	go hub.run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/webhook", newWebhookHandler(cfg, hub.broadcast, logger))

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).Warn("ws upgrade failed")
			return
		}
		logger.WithField("remote", r.RemoteAddr).Info("ws connected")

		client := &Client{
			hub:    hub,
			conn:   conn,
			send:   make(chan []byte, 16),
			logger: logger,
		}
		select {
		case hub.register <- client:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(ctx)

		logger.WithField("remote", r.RemoteAddr).Info("ws disconnected")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("listening on :%d", cfg.Port)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// webhookHandler verifies and deduplicates GitHub deliveries, then
// dispatches them into the publisher.
type webhookHandler struct {
	secret     string
	logger     *logrus.Logger
	dispatcher *dispatch.Dispatcher
	deliveries *deliveryLog
}

func newWebhookHandler(cfg Config, broadcast chan<- broadcastMessage, logger *logrus.Logger) *webhookHandler {
	pub := &publisher{broadcast: broadcast, maxTextBytes: cfg.MaxTextBytes, logger: logger}
	return &webhookHandler{
		secret:     cfg.WebhookSecret,
		logger:     logger,
		dispatcher: dispatch.New(pub, dispatch.WithLogger(logger)),
		deliveries: newDeliveryLog(cfg.DedupWindow),
	}
}

func (h *webhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}

	if err := verifyWebhookSignature(body, r.Header.Get("X-Hub-Signature-256"), h.secret, h.logger); err != nil {
		h.logger.WithError(err).WithField("remote", r.RemoteAddr).Warn("webhook signature verification failed")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	eventName := r.Header.Get("X-GitHub-Event")
	if eventName == "" {
		http.Error(w, "missing X-GitHub-Event header", http.StatusBadRequest)
		return
	}
	deliveryID := r.Header.Get("X-GitHub-Delivery")
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	} else if h.deliveries.seen(deliveryID, time.Now()) {
		h.logger.WithFields(logrus.Fields{"event": eventName, "delivery": deliveryID}).Debug("duplicate delivery ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	entry := h.logger.WithFields(logrus.Fields{
		"event":    eventName,
		"delivery": deliveryID,
		"bytes":    len(body),
	})
	entry.Info("webhook received")

	if eventName == "ping" {
		w.WriteHeader(http.StatusOK)
		return
	}

	env, err := envelope.FromWebhook(eventName, body)
	if err != nil {
		entry.WithError(err).Warn("webhook body rejected")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	raw, err := env.Marshal()
	if err != nil {
		entry.WithError(err).Error("envelope encoding failed")
		http.Error(w, "failed to encode envelope", http.StatusInternalServerError)
		return
	}

	ctx := withDelivery(r.Context(), delivery{id: deliveryID, event: eventName})
	err = h.dispatcher.Dispatch(ctx, raw)
	switch {
	case err == nil:
	case errors.Is(err, dispatch.ErrUnknownFamily), errors.Is(err, dispatch.ErrUnknownAction):
		// Families and actions outside the vocabulary are routine.
		entry.WithError(err).Debug("webhook ignored")
	case dispatch.IsDecodeError(err):
		// Acknowledge: a redelivery carries the same payload.
		entry.WithError(err).Warn("webhook decode failed")
	default:
		entry.WithError(err).Error("webhook dispatch failed")
		http.Error(w, "dispatch failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// deliveryLog remembers delivery IDs for replay protection.
type deliveryLog struct {
	mu     sync.Mutex
	window time.Duration
	seenAt map[string]time.Time
}

func newDeliveryLog(window time.Duration) *deliveryLog {
	return &deliveryLog{window: window, seenAt: make(map[string]time.Time)}
}

// seen records id and reports whether it was already recorded within
// the window. A zero window disables deduplication.
func (l *deliveryLog) seen(id string, now time.Time) bool {
	if l.window <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	for known, at := range l.seenAt {
		if now.Sub(at) > l.window {
			delete(l.seenAt, known)
		}
	}
	if _, ok := l.seenAt[id]; ok {
		return true
	}
	l.seenAt[id] = now
	return false
}
