package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kehao95/gh-dispatch/internal/bot"
	"github.com/kehao95/gh-dispatch/internal/dispatch"
	"github.com/kehao95/gh-dispatch/internal/event"
	"github.com/kehao95/gh-dispatch/internal/logging"
	"github.com/kehao95/gh-dispatch/internal/message"
)

const closedWebhook = `{"action":"closed","issue":{"number":4},"repository":{"full_name":"acme/widgets","owner":{"login":"acme"}}}`

func TestReadEnvelopeWrapsWebhook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, []byte(closedWebhook), 0o600); err != nil {
		t.Fatal(err)
	}

	raw, err := readEnvelope(false, path, "issues")
	if err != nil {
		t.Fatalf("readEnvelope: %v", err)
	}
	decoded, err := dispatch.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Hook != dispatch.HookIssueClosed || decoded.Repository.FullName() != "acme/widgets" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestReadEnvelopeFromJSONVariable(t *testing.T) {
	t.Setenv("JSON", `{"event_name":"issues"}`)
	raw, err := readEnvelope(false, "", "")
	if err != nil {
		t.Fatalf("readEnvelope: %v", err)
	}
	if string(raw) != `{"event_name":"issues"}` {
		t.Errorf("raw = %s", raw)
	}
}

func TestReadEnvelopeFromActions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, []byte(closedWebhook), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GITHUB_EVENT_NAME", "issues")
	t.Setenv("GITHUB_EVENT_PATH", path)
	t.Setenv("GITHUB_REPOSITORY", "acme/widgets")
	t.Setenv("GITHUB_RUN_ID", "10")
	t.Setenv("GITHUB_RUN_NUMBER", "2")

	raw, err := readEnvelope(true, "", "")
	if err != nil {
		t.Fatalf("readEnvelope: %v", err)
	}
	decoded, err := dispatch.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Running == nil || decoded.Running.RunID != 10 || decoded.Running.RunNumber != 2 {
		t.Errorf("running = %+v", decoded.Running)
	}
}

func TestRelayDelivery(t *testing.T) {
	var out bytes.Buffer
	d := dispatch.New(bot.NewEcho(&out))
	logger := logging.Discard()
	ctx := context.Background()

	deliveries := []message.Delivery{
		{Event: "ping", DeliveryID: "1", Body: []byte(`{"zen":"hi"}`)},
		{Event: "push", DeliveryID: "2", Body: []byte(`{"ref":"main"}`)},
		{Event: "issues", DeliveryID: "3", Body: []byte(`[]`)},
		{Event: "issues", DeliveryID: "4", Body: []byte(closedWebhook)},
	}
	for _, delivery := range deliveries {
		if err := relayDelivery(ctx, d, delivery, logger); err != nil {
			t.Errorf("delivery %s: %v", delivery.DeliveryID, err)
		}
	}
	if out.String() != "on_issue_closed: acme/widgets 4\n" {
		t.Errorf("output = %q", out.String())
	}
}

type failingHandler struct {
	dispatch.NopHandler
}

func (failingHandler) OnIssueClosed(context.Context, event.Repository, *event.RunningInfo, int) error {
	return errors.New("boom")
}

func TestRelayDeliveryStopsOnHookFailure(t *testing.T) {
	d := dispatch.New(failingHandler{})
	err := relayDelivery(context.Background(), d, message.Delivery{Event: "issues", DeliveryID: "1", Body: []byte(closedWebhook)}, logging.Discard())
	if err == nil || dispatch.IsDecodeError(err) {
		t.Errorf("err = %v, want the hook failure", err)
	}
}

func TestExitErrorCode(t *testing.T) {
	var exitErr interface{ ExitCode() int }
	if !errors.As(error(exitError{code: 143}), &exitErr) || exitErr.ExitCode() != 143 {
		t.Error("exitError does not expose its code")
	}
}
