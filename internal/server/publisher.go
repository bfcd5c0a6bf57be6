package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kehao95/gh-dispatch/internal/dispatch"
	"github.com/kehao95/gh-dispatch/internal/event"
	"github.com/kehao95/gh-dispatch/internal/message"
	"github.com/sirupsen/logrus"
)

type deliveryKey struct{}

type delivery struct {
	id    string
	event string
}

func withDelivery(ctx context.Context, d delivery) context.Context {
	return context.WithValue(ctx, deliveryKey{}, d)
}

func deliveryFrom(ctx context.Context) delivery {
	d, _ := ctx.Value(deliveryKey{}).(delivery)
	return d
}

// publisher is the Handler behind the webhook endpoint: every hook call
// becomes an EventMessage broadcast to subscribed WebSocket clients.
type publisher struct {
	broadcast    chan<- broadcastMessage
	maxTextBytes int
	logger       *logrus.Logger
}

var _ dispatch.Handler = (*publisher)(nil)

func (p *publisher) publish(ctx context.Context, hook dispatch.Hook, repo event.Repository, run *event.RunningInfo, ev interface{}) error {
	d := deliveryFrom(ctx)
	ev, truncated := truncateEvent(ev, p.maxTextBytes)
	if len(truncated) > 0 {
		p.logger.WithFields(logrus.Fields{
			"event":    d.event,
			"delivery": d.id,
			"fields":   truncationFields(truncated),
		}).Info("event text truncated")
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", hook, err)
	}
	encoded, err := json.Marshal(message.EventMessage{
		Type:        "event",
		Event:       d.event,
		Hook:        hook.String(),
		DeliveryID:  d.id,
		Repository:  repo,
		RunningInfo: run,
		Truncated:   len(truncated) > 0,
		Payload:     payload,
	})
	if err != nil {
		return fmt.Errorf("encode %s message: %w", hook, err)
	}

	select {
	case p.broadcast <- broadcastMessage{event: d.event, hook: hook.String(), data: encoded}:
	default:
		p.logger.WithFields(logrus.Fields{
			"event":    d.event,
			"delivery": d.id,
			"hook":     hook.String(),
		}).Warn("broadcast dropped")
	}
	return nil
}

func (p *publisher) OnIssueCreated(ctx context.Context, repo event.Repository, run *event.RunningInfo, ev event.IssueCreated) error {
	return p.publish(ctx, dispatch.HookIssueCreated, repo, run, ev)
}

func (p *publisher) OnIssueUpdated(ctx context.Context, repo event.Repository, run *event.RunningInfo, ev event.IssueUpdated) error {
	return p.publish(ctx, dispatch.HookIssueUpdated, repo, run, ev)
}

func (p *publisher) OnIssueClosed(ctx context.Context, repo event.Repository, run *event.RunningInfo, issueID int) error {
	return p.publish(ctx, dispatch.HookIssueClosed, repo, run, issueID)
}

func (p *publisher) OnIssueReopened(ctx context.Context, repo event.Repository, run *event.RunningInfo, ev event.IssueReopened) error {
	return p.publish(ctx, dispatch.HookIssueReopened, repo, run, ev)
}

func (p *publisher) OnPullRequestCreated(ctx context.Context, repo event.Repository, run *event.RunningInfo, ev event.PullRequestCreated) error {
	return p.publish(ctx, dispatch.HookPullRequestCreated, repo, run, ev)
}

func (p *publisher) OnPullRequestUpdated(ctx context.Context, repo event.Repository, run *event.RunningInfo, ev event.PullRequestUpdated) error {
	return p.publish(ctx, dispatch.HookPullRequestUpdated, repo, run, ev)
}

func (p *publisher) OnPullRequestClosed(ctx context.Context, repo event.Repository, run *event.RunningInfo, pullRequestID int) error {
	return p.publish(ctx, dispatch.HookPullRequestClosed, repo, run, pullRequestID)
}

func (p *publisher) OnCommentCreated(ctx context.Context, repo event.Repository, run *event.RunningInfo, ev event.CommentCreated) error {
	return p.publish(ctx, dispatch.HookCommentCreated, repo, run, ev)
}

func (p *publisher) OnCommentUpdated(ctx context.Context, repo event.Repository, run *event.RunningInfo, ev event.CommentUpdated) error {
	return p.publish(ctx, dispatch.HookCommentUpdated, repo, run, ev)
}

func (p *publisher) OnCommentDeleted(ctx context.Context, repo event.Repository, run *event.RunningInfo, commentID int64) error {
	return p.publish(ctx, dispatch.HookCommentDeleted, repo, run, commentID)
}
