package server

import (
	"context"
	"testing"
	"time"

	"github.com/kehao95/gh-dispatch/internal/event"
)

func TestClientSubscription(t *testing.T) {
	client := &Client{}
	if !client.subscribedTo("issues", "issue_created") {
		t.Error("client without subscription should receive everything")
	}

	client.setEvents([]string{"issue_comment", "pull_request_closed"})
	tests := []struct {
		event, hook string
		want        bool
	}{
		{event: "issue_comment", hook: "comment_created", want: true},
		{event: "pull_request", hook: "pull_request_closed", want: true},
		{event: "issues", hook: "pull_request_closed", want: true},
		{event: "issues", hook: "issue_created", want: false},
	}
	for _, tt := range tests {
		if got := client.subscribedTo(tt.event, tt.hook); got != tt.want {
			t.Errorf("subscribedTo(%q, %q) = %v, want %v", tt.event, tt.hook, got, tt.want)
		}
	}

	client.setEvents(nil)
	if !client.subscribedTo("issues", "issue_created") {
		t.Error("clearing the subscription should restore everything")
	}
}

func TestHubRoutesBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := newHub()
	go hub.run(ctx)

	comments := &Client{hub: hub, send: make(chan []byte, 4)}
	comments.setEvents([]string{"issue_comment"})
	everything := &Client{hub: hub, send: make(chan []byte, 4)}
	hub.register <- comments
	hub.register <- everything

	hub.broadcast <- broadcastMessage{event: "issues", hook: "issue_closed", data: []byte("a")}
	hub.broadcast <- broadcastMessage{event: "issue_comment", hook: "comment_created", data: []byte("b")}

	expect := func(c *Client, want string) {
		t.Helper()
		select {
		case got := <-c.send:
			if string(got) != want {
				t.Errorf("received %q, want %q", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
	expect(everything, "a")
	expect(everything, "b")
	expect(comments, "b")

	hub.unregister <- comments
	if _, open := <-comments.send; open {
		t.Error("send channel still open after unregister")
	}

	cancel()
	select {
	case _, open := <-everything.send:
		if open {
			t.Error("unexpected message after shutdown")
		}
	case <-time.After(time.Second):
		t.Error("hub did not close clients on shutdown")
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
		cut  bool
	}{
		{in: "hello", max: 10, want: "hello"},
		{in: "hello", max: 0, want: "hello"},
		{in: "hello", max: 3, want: "hel", cut: true},
		{in: "héllo", max: 2, want: "h", cut: true},
	}
	for _, tt := range tests {
		got, cut := truncateText(tt.in, tt.max)
		if got != tt.want || cut != tt.cut {
			t.Errorf("truncateText(%q, %d) = %q, %v; want %q, %v", tt.in, tt.max, got, cut, tt.want, tt.cut)
		}
	}
}

func TestTruncateEvent(t *testing.T) {
	ev := event.CommentUpdated{ID: 1, From: "short", To: "a much longer body"}
	got, fields := truncateEvent(ev, 6)
	updated := got.(event.CommentUpdated)
	if updated.From != "short" || updated.To != "a much" {
		t.Errorf("truncated = %+v", updated)
	}
	if truncationFields(fields) != "to" {
		t.Errorf("fields = %v, want [to]", fields)
	}

	if _, fields := truncateEvent(42, 1); len(fields) != 0 {
		t.Errorf("bare id reported truncated fields %v", fields)
	}
}
