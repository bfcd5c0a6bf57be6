package message

import (
	"encoding/json"

	"github.com/kehao95/gh-dispatch/internal/event"
)

// EventMessage is the JSONL envelope streamed to WebSocket clients for
// every dispatched hook. Payload is the decoded event record, or the
// bare id for closed and deleted hooks.
type EventMessage struct {
	Type        string             `json:"type"`
	Event       string             `json:"event"`
	Hook        string             `json:"hook"`
	DeliveryID  string             `json:"delivery_id"`
	Repository  event.Repository   `json:"repository"`
	RunningInfo *event.RunningInfo `json:"running_info,omitempty"`
	Truncated   bool               `json:"truncated,omitempty"`
	Payload     json.RawMessage    `json:"payload"`
}

// Delivery is one raw webhook delivery as relayed by a webhook proxy.
type Delivery struct {
	Event      string
	DeliveryID string
	Body       json.RawMessage
}
