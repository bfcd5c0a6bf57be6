package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/kehao95/gh-dispatch/internal/event"
)

// Decoded is a validated payload ready to be handed to a Handler.
type Decoded struct {
	// EventName is the raw discriminator. Family is the path that decoded
	// the payload; they differ for pull requests delivered as issues.
	EventName  string
	Family     Family
	Action     string
	Hook       Hook
	Repository event.Repository
	Running    *event.RunningInfo
	// Event is one of the event records, an int for closed issues and
	// pull requests, or an int64 for deleted comments.
	Event interface{}
}

// Invoke calls the one Handler hook the payload was routed to.
func (d *Decoded) Invoke(ctx context.Context, h Handler) error {
	repo, run := d.Repository, d.Running
	switch d.Hook {
	case HookIssueCreated:
		if ev, ok := d.Event.(event.IssueCreated); ok {
			return h.OnIssueCreated(ctx, repo, run, ev)
		}
	case HookIssueUpdated:
		if ev, ok := d.Event.(event.IssueUpdated); ok {
			return h.OnIssueUpdated(ctx, repo, run, ev)
		}
	case HookIssueClosed:
		if id, ok := d.Event.(int); ok {
			return h.OnIssueClosed(ctx, repo, run, id)
		}
	case HookIssueReopened:
		if ev, ok := d.Event.(event.IssueReopened); ok {
			return h.OnIssueReopened(ctx, repo, run, ev)
		}
	case HookPullRequestCreated:
		if ev, ok := d.Event.(event.PullRequestCreated); ok {
			return h.OnPullRequestCreated(ctx, repo, run, ev)
		}
	case HookPullRequestUpdated:
		if ev, ok := d.Event.(event.PullRequestUpdated); ok {
			return h.OnPullRequestUpdated(ctx, repo, run, ev)
		}
	case HookPullRequestClosed:
		if id, ok := d.Event.(int); ok {
			return h.OnPullRequestClosed(ctx, repo, run, id)
		}
	case HookCommentCreated:
		if ev, ok := d.Event.(event.CommentCreated); ok {
			return h.OnCommentCreated(ctx, repo, run, ev)
		}
	case HookCommentUpdated:
		if ev, ok := d.Event.(event.CommentUpdated); ok {
			return h.OnCommentUpdated(ctx, repo, run, ev)
		}
	case HookCommentDeleted:
		if id, ok := d.Event.(int64); ok {
			return h.OnCommentDeleted(ctx, repo, run, id)
		}
	}
	return fmt.Errorf("dispatch: %s cannot carry %T", d.Hook, d.Event)
}

type decoder struct {
	requireRunningInfo bool
}

// Decode classifies and validates a payload without invoking any
// handler. Running info is optional.
func Decode(raw []byte) (*Decoded, error) {
	return decoder{}.decode(raw)
}

func (dc decoder) decode(raw []byte) (*Decoded, error) {
	doc, err := parseDocument(raw)
	if err != nil {
		return nil, err
	}

	name, family, err := classify(doc)
	if err != nil {
		return nil, err
	}

	action, err := doc.str("event.action")
	if err != nil {
		return nil, within(err, string(family), "")
	}

	var hook Hook
	var ev interface{}
	switch family {
	case FamilyIssues:
		hook, ev, err = decodeIssues(doc, action)
	case FamilyPullRequest:
		hook, ev, err = decodePullRequest(doc, action)
	case FamilyIssueComment:
		hook, ev, err = decodeIssueComment(doc, action)
	}
	if err != nil {
		return nil, within(err, string(family), action)
	}

	repo, err := repository(doc)
	if err != nil {
		return nil, within(err, string(family), action)
	}
	run, err := dc.runningInfo(doc)
	if err != nil {
		return nil, within(err, string(family), action)
	}

	return &Decoded{
		EventName:  name,
		Family:     family,
		Action:     action,
		Hook:       hook,
		Repository: repo,
		Running:    run,
		Event:      ev,
	}, nil
}

func classify(doc document) (string, Family, error) {
	value, ok := doc.lookup("event_name")
	name, isString := value.(string)
	if !ok || !isString {
		return "", "", &DecodeError{Kind: KindUnknownFamily, Path: "event_name", Reason: "missing or not a string"}
	}

	switch Family(name) {
	case FamilyIssues:
		// GitHub reports timeline activity on a pull request's issue
		// shadow as an issues event carrying a pull_request marker.
		if doc.has("event.issue.pull_request") {
			return name, FamilyPullRequest, nil
		}
		return name, FamilyIssues, nil
	case FamilyPullRequest, FamilyIssueComment:
		return name, Family(name), nil
	}
	return "", "", &DecodeError{Kind: KindUnknownFamily, Family: name, Path: "event_name"}
}

func unknownAction(action string) error {
	return &DecodeError{Kind: KindUnknownAction, Action: action, Path: "event.action"}
}

func decodeIssues(doc document, action string) (Hook, interface{}, error) {
	const issue = "event.issue"
	switch action {
	case "opened":
		id, title, body, user, err := content(doc, issue)
		if err != nil {
			return 0, nil, err
		}
		return HookIssueCreated, event.IssueCreated{ID: id, Title: title, Body: body, User: user}, nil
	case "closed":
		id, err := doc.number(issue + ".number")
		if err != nil {
			return 0, nil, err
		}
		return HookIssueClosed, id, nil
	case "updated", "edited":
		update, err := fieldUpdate(doc, issue)
		if err != nil {
			return 0, nil, err
		}
		id, err := doc.number(issue + ".number")
		if err != nil {
			return 0, nil, err
		}
		user, err := doc.str(issue + ".user.login")
		if err != nil {
			return 0, nil, err
		}
		return HookIssueUpdated, event.IssueUpdated{ID: id, Update: update, User: user}, nil
	case "reopened":
		id, title, body, user, err := content(doc, issue)
		if err != nil {
			return 0, nil, err
		}
		return HookIssueReopened, event.IssueReopened{ID: id, Title: title, Body: body, User: user}, nil
	}
	return 0, nil, unknownAction(action)
}

func decodePullRequest(doc document, action string) (Hook, interface{}, error) {
	// Pull requests routed through the issues family only carry the
	// issue-shaped shadow object.
	source := "event.pull_request"
	if !doc.object(source) {
		source = "event.issue"
	}

	switch action {
	case "opened":
		id, title, body, user, err := content(doc, source)
		if err != nil {
			return 0, nil, err
		}
		var ev = event.PullRequestCreated{ID: id, Title: title, Body: body, User: user}
		if ev.FromRepo.Owner, err = doc.str("event.pull_request.head.user.login"); err != nil {
			return 0, nil, err
		}
		if ev.FromRepo.Name, err = doc.str("event.pull_request.head.repo.name"); err != nil {
			return 0, nil, err
		}
		if ev.FromRef, err = doc.str("head_ref"); err != nil {
			return 0, nil, err
		}
		if ev.ToRef, err = doc.str("base_ref"); err != nil {
			return 0, nil, err
		}
		return HookPullRequestCreated, ev, nil
	case "closed":
		id, err := pullRequestNumber(doc)
		if err != nil {
			return 0, nil, err
		}
		return HookPullRequestClosed, id, nil
	case "edited":
		update, err := fieldUpdate(doc, source)
		if err != nil {
			return 0, nil, err
		}
		id, err := pullRequestNumber(doc)
		if err != nil {
			return 0, nil, err
		}
		user, err := doc.str(source + ".user.login")
		if err != nil {
			return 0, nil, err
		}
		return HookPullRequestUpdated, event.PullRequestUpdated{ID: id, Update: update, User: user}, nil
	}
	return 0, nil, unknownAction(action)
}

func decodeIssueComment(doc document, action string) (Hook, interface{}, error) {
	number, err := doc.number("event.issue.number")
	if err != nil {
		return 0, nil, err
	}
	target := event.IssueTarget(number)
	if doc.has("event.issue.pull_request") {
		target = event.PullRequestTarget(number)
	}

	switch action {
	case "created":
		id, err := doc.integer("event.comment.id")
		if err != nil {
			return 0, nil, err
		}
		user, err := doc.str("event.comment.user.login")
		if err != nil {
			return 0, nil, err
		}
		body, err := doc.str("event.comment.body")
		if err != nil {
			return 0, nil, err
		}
		return HookCommentCreated, event.CommentCreated{ID: id, User: user, Target: target, Body: body}, nil
	case "deleted":
		id, err := doc.integer("event.comment.id")
		if err != nil {
			return 0, nil, err
		}
		return HookCommentDeleted, id, nil
	case "edited":
		id, err := doc.integer("event.comment.id")
		if err != nil {
			return 0, nil, err
		}
		user, err := doc.str("event.comment.user.login")
		if err != nil {
			return 0, nil, err
		}
		from, err := doc.firstStr("event.changes.body.from", "event.changes.from")
		if err != nil {
			return 0, nil, err
		}
		to, err := doc.str("event.comment.body")
		if err != nil {
			return 0, nil, err
		}
		return HookCommentUpdated, event.CommentUpdated{ID: id, User: user, Target: target, From: from, To: to}, nil
	}
	return 0, nil, unknownAction(action)
}

func content(doc document, source string) (id int, title, body, user string, err error) {
	if id, err = doc.number(source + ".number"); err != nil {
		return
	}
	if title, err = doc.str(source + ".title"); err != nil {
		return
	}
	if body, err = doc.str(source + ".body"); err != nil {
		return
	}
	user, err = doc.str(source + ".user.login")
	return
}

// fieldUpdate picks body when changes.body is present and title
// otherwise. Older payloads put the previous title under
// changed.body.from.
func fieldUpdate(doc document, source string) (event.FieldUpdate, error) {
	if doc.has("event.changes.body") {
		from, err := doc.str("event.changes.body.from")
		if err != nil {
			return event.FieldUpdate{}, err
		}
		to, err := doc.str(source + ".body")
		if err != nil {
			return event.FieldUpdate{}, err
		}
		return event.BodyUpdate(from, to), nil
	}

	from, err := doc.firstStr("event.changes.title.from", "event.changed.body.from")
	if err != nil {
		return event.FieldUpdate{}, err
	}
	to, err := doc.str(source + ".title")
	if err != nil {
		return event.FieldUpdate{}, err
	}
	return event.TitleUpdate(from, to), nil
}

// pullRequestNumber prefers the shadow issue number. When both objects
// are present they must agree.
func pullRequestNumber(doc document) (int, error) {
	hasIssue := doc.object("event.issue")
	hasPullRequest := doc.object("event.pull_request")
	switch {
	case hasIssue && hasPullRequest:
		shadow, err := doc.number("event.issue.number")
		if err != nil {
			return 0, err
		}
		number, err := doc.number("event.pull_request.number")
		if err != nil {
			return 0, err
		}
		if shadow != number {
			return 0, fieldError("event.issue.number", fmt.Sprintf("%d does not match event.pull_request.number %d", shadow, number))
		}
		return shadow, nil
	case hasIssue:
		return doc.number("event.issue.number")
	default:
		return doc.number("event.pull_request.number")
	}
}

// repository takes the name from the top-level "owner/name" string.
// When the payload also carries repository.owner.login the two owners
// must agree.
func repository(doc document) (event.Repository, error) {
	fullName, err := doc.str("repository")
	if err != nil {
		return event.Repository{}, err
	}
	segments := strings.Split(fullName, "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return event.Repository{}, fieldError("repository", fmt.Sprintf("want owner/name, got %q", fullName))
	}
	owner := segments[0]
	if doc.has("event.repository.owner.login") {
		login, err := doc.str("event.repository.owner.login")
		if err != nil {
			return event.Repository{}, err
		}
		if !strings.EqualFold(owner, login) {
			return event.Repository{}, fieldError("repository", fmt.Sprintf("owner %q does not match event.repository.owner.login %q", owner, login))
		}
		owner = login
	}
	return event.Repository{Owner: owner, Name: segments[1]}, nil
}

func (dc decoder) runningInfo(doc document) (*event.RunningInfo, error) {
	if !doc.has("run_id") && !doc.has("run_number") && !dc.requireRunningInfo {
		return nil, nil
	}
	runID, err := doc.decimal("run_id")
	if err != nil {
		return nil, err
	}
	runNumber, err := doc.decimal("run_number")
	if err != nil {
		return nil, err
	}
	return &event.RunningInfo{RunID: runID, RunNumber: runNumber}, nil
}
