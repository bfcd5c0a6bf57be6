package dispatch

import "fmt"

// Family is the event_name discriminator of a payload.
type Family string

const (
	FamilyIssues       Family = "issues"
	FamilyPullRequest  Family = "pull_request"
	FamilyIssueComment Family = "issue_comment"
)

// Families lists the supported event families.
func Families() []Family {
	return []Family{FamilyIssues, FamilyPullRequest, FamilyIssueComment}
}

// Hook names the Handler method a payload was routed to.
type Hook int

const (
	HookIssueCreated Hook = iota + 1
	HookIssueUpdated
	HookIssueClosed
	HookIssueReopened
	HookPullRequestCreated
	HookPullRequestUpdated
	HookPullRequestClosed
	HookCommentCreated
	HookCommentUpdated
	HookCommentDeleted
)

var hookNames = map[Hook]string{
	HookIssueCreated:       "issue_created",
	HookIssueUpdated:       "issue_updated",
	HookIssueClosed:        "issue_closed",
	HookIssueReopened:      "issue_reopened",
	HookPullRequestCreated: "pull_request_created",
	HookPullRequestUpdated: "pull_request_updated",
	HookPullRequestClosed:  "pull_request_closed",
	HookCommentCreated:     "comment_created",
	HookCommentUpdated:     "comment_updated",
	HookCommentDeleted:     "comment_deleted",
}

func (h Hook) String() string {
	if name, ok := hookNames[h]; ok {
		return name
	}
	return fmt.Sprintf("hook(%d)", int(h))
}

func (h Hook) MarshalText() ([]byte, error) {
	name, ok := hookNames[h]
	if !ok {
		return nil, fmt.Errorf("unknown hook %d", int(h))
	}
	return []byte(name), nil
}

// ParseHook returns the hook with the given name.
func ParseHook(name string) (Hook, bool) {
	for hook, candidate := range hookNames {
		if candidate == name {
			return hook, true
		}
	}
	return 0, false
}
