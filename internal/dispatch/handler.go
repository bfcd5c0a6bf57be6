package dispatch

import (
	"context"

	"github.com/kehao95/gh-dispatch/internal/event"
)

// Handler receives decoded events. Each dispatched payload results in
// exactly one hook call. run is nil when the payload carried no CI run
// metadata.
//
// Implementations that only care about a few events embed NopHandler
// and override those hooks.
type Handler interface {
	OnIssueCreated(ctx context.Context, repo event.Repository, run *event.RunningInfo, ev event.IssueCreated) error
	OnIssueUpdated(ctx context.Context, repo event.Repository, run *event.RunningInfo, ev event.IssueUpdated) error
	OnIssueClosed(ctx context.Context, repo event.Repository, run *event.RunningInfo, issueID int) error
	OnIssueReopened(ctx context.Context, repo event.Repository, run *event.RunningInfo, ev event.IssueReopened) error

	OnPullRequestCreated(ctx context.Context, repo event.Repository, run *event.RunningInfo, ev event.PullRequestCreated) error
	OnPullRequestUpdated(ctx context.Context, repo event.Repository, run *event.RunningInfo, ev event.PullRequestUpdated) error
	OnPullRequestClosed(ctx context.Context, repo event.Repository, run *event.RunningInfo, pullRequestID int) error

	OnCommentCreated(ctx context.Context, repo event.Repository, run *event.RunningInfo, ev event.CommentCreated) error
	OnCommentUpdated(ctx context.Context, repo event.Repository, run *event.RunningInfo, ev event.CommentUpdated) error
	OnCommentDeleted(ctx context.Context, repo event.Repository, run *event.RunningInfo, commentID int64) error
}

// NopHandler implements every Handler hook as a no-op.
type NopHandler struct{}

var _ Handler = NopHandler{}

func (NopHandler) OnIssueCreated(context.Context, event.Repository, *event.RunningInfo, event.IssueCreated) error {
	return nil
}

func (NopHandler) OnIssueUpdated(context.Context, event.Repository, *event.RunningInfo, event.IssueUpdated) error {
	return nil
}

func (NopHandler) OnIssueClosed(context.Context, event.Repository, *event.RunningInfo, int) error {
	return nil
}

func (NopHandler) OnIssueReopened(context.Context, event.Repository, *event.RunningInfo, event.IssueReopened) error {
	return nil
}

func (NopHandler) OnPullRequestCreated(context.Context, event.Repository, *event.RunningInfo, event.PullRequestCreated) error {
	return nil
}

func (NopHandler) OnPullRequestUpdated(context.Context, event.Repository, *event.RunningInfo, event.PullRequestUpdated) error {
	return nil
}

func (NopHandler) OnPullRequestClosed(context.Context, event.Repository, *event.RunningInfo, int) error {
	return nil
}

func (NopHandler) OnCommentCreated(context.Context, event.Repository, *event.RunningInfo, event.CommentCreated) error {
	return nil
}

func (NopHandler) OnCommentUpdated(context.Context, event.Repository, *event.RunningInfo, event.CommentUpdated) error {
	return nil
}

func (NopHandler) OnCommentDeleted(context.Context, event.Repository, *event.RunningInfo, int64) error {
	return nil
}
