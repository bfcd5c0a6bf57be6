// Package envelope builds dispatch envelopes from raw webhook
// deliveries and from the GitHub Actions runner environment.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Envelope mirrors the fields of the Actions github context that the
// dispatcher reads.
type Envelope struct {
	EventName  string          `json:"event_name"`
	Event      json.RawMessage `json:"event"`
	Repository string          `json:"repository"`
	HeadRef    string          `json:"head_ref,omitempty"`
	BaseRef    string          `json:"base_ref,omitempty"`
	RunID      string          `json:"run_id,omitempty"`
	RunNumber  string          `json:"run_number,omitempty"`
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// webhookFields are the parts of a webhook body lifted to the top level.
type webhookFields struct {
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	PullRequest *struct {
		Head struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	} `json:"pull_request"`
}

// FromWebhook wraps a webhook body delivered with the given
// X-GitHub-Event name.
func FromWebhook(eventName string, body []byte) (Envelope, error) {
	if strings.TrimSpace(eventName) == "" {
		return Envelope{}, errors.New("missing event name")
	}
	body = bytes.TrimSpace(body)
	var fields webhookFields
	if err := json.Unmarshal(body, &fields); err != nil {
		return Envelope{}, fmt.Errorf("parse %s webhook: %w", eventName, err)
	}

	env := Envelope{
		EventName:  eventName,
		Event:      json.RawMessage(body),
		Repository: fields.Repository.FullName,
	}
	if fields.PullRequest != nil {
		env.HeadRef = fields.PullRequest.Head.Ref
		env.BaseRef = fields.PullRequest.Base.Ref
	}
	return env, nil
}

// FromActionsEnv builds an envelope from the variables a GitHub Actions
// runner sets for every job.
func FromActionsEnv() (Envelope, error) {
	eventName := os.Getenv("GITHUB_EVENT_NAME")
	if eventName == "" {
		return Envelope{}, errors.New("GITHUB_EVENT_NAME is not set")
	}
	eventPath := os.Getenv("GITHUB_EVENT_PATH")
	if eventPath == "" {
		return Envelope{}, errors.New("GITHUB_EVENT_PATH is not set")
	}
	body, err := os.ReadFile(eventPath)
	if err != nil {
		return Envelope{}, fmt.Errorf("read event payload: %w", err)
	}
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return Envelope{}, fmt.Errorf("event payload %s is not valid JSON", eventPath)
	}

	return Envelope{
		EventName:  eventName,
		Event:      json.RawMessage(body),
		Repository: os.Getenv("GITHUB_REPOSITORY"),
		HeadRef:    os.Getenv("GITHUB_HEAD_REF"),
		BaseRef:    os.Getenv("GITHUB_BASE_REF"),
		RunID:      os.Getenv("GITHUB_RUN_ID"),
		RunNumber:  os.Getenv("GITHUB_RUN_NUMBER"),
	}, nil
}
