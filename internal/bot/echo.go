package bot

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/kehao95/gh-dispatch/internal/dispatch"
	"github.com/kehao95/gh-dispatch/internal/event"
)

// Echo prints one line per hook call.
type Echo struct {
	mu  sync.Mutex
	out io.Writer
}

var _ dispatch.Handler = (*Echo)(nil)

func NewEcho(out io.Writer) *Echo {
	return &Echo{out: out}
}

func (e *Echo) print(hook dispatch.Hook, repo event.Repository, run *event.RunningInfo, ev interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if run != nil {
		_, err := fmt.Fprintf(e.out, "on_%s: %s run=%d#%d %+v\n", hook, repo, run.RunID, run.RunNumber, ev)
		return err
	}
	_, err := fmt.Fprintf(e.out, "on_%s: %s %+v\n", hook, repo, ev)
	return err
}

func (e *Echo) OnIssueCreated(_ context.Context, repo event.Repository, run *event.RunningInfo, ev event.IssueCreated) error {
	return e.print(dispatch.HookIssueCreated, repo, run, ev)
}

func (e *Echo) OnIssueUpdated(_ context.Context, repo event.Repository, run *event.RunningInfo, ev event.IssueUpdated) error {
	return e.print(dispatch.HookIssueUpdated, repo, run, ev)
}

func (e *Echo) OnIssueClosed(_ context.Context, repo event.Repository, run *event.RunningInfo, issueID int) error {
	return e.print(dispatch.HookIssueClosed, repo, run, issueID)
}

func (e *Echo) OnIssueReopened(_ context.Context, repo event.Repository, run *event.RunningInfo, ev event.IssueReopened) error {
	return e.print(dispatch.HookIssueReopened, repo, run, ev)
}

func (e *Echo) OnPullRequestCreated(_ context.Context, repo event.Repository, run *event.RunningInfo, ev event.PullRequestCreated) error {
	return e.print(dispatch.HookPullRequestCreated, repo, run, ev)
}

func (e *Echo) OnPullRequestUpdated(_ context.Context, repo event.Repository, run *event.RunningInfo, ev event.PullRequestUpdated) error {
	return e.print(dispatch.HookPullRequestUpdated, repo, run, ev)
}

func (e *Echo) OnPullRequestClosed(_ context.Context, repo event.Repository, run *event.RunningInfo, pullRequestID int) error {
	return e.print(dispatch.HookPullRequestClosed, repo, run, pullRequestID)
}

func (e *Echo) OnCommentCreated(_ context.Context, repo event.Repository, run *event.RunningInfo, ev event.CommentCreated) error {
	return e.print(dispatch.HookCommentCreated, repo, run, ev)
}

func (e *Echo) OnCommentUpdated(_ context.Context, repo event.Repository, run *event.RunningInfo, ev event.CommentUpdated) error {
	return e.print(dispatch.HookCommentUpdated, repo, run, ev)
}

func (e *Echo) OnCommentDeleted(_ context.Context, repo event.Repository, run *event.RunningInfo, commentID int64) error {
	return e.print(dispatch.HookCommentDeleted, repo, run, commentID)
}
