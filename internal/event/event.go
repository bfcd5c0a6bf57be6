// Package event holds the typed records produced by decoding forge
// activity payloads. Values are built by the dispatcher after every
// field has been validated; handlers never see raw payload data.
package event

import "fmt"

// Repository identifies a forge repository.
type Repository struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// FullName returns the "owner/name" form.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

func (r Repository) String() string {
	return r.FullName()
}

// RunningInfo identifies the CI run that carried an event.
type RunningInfo struct {
	RunID     uint64 `json:"run_id"`
	RunNumber uint64 `json:"run_number"`
}

type IssueCreated struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	User  string `json:"user"`
}

type IssueUpdated struct {
	ID     int         `json:"id"`
	Update FieldUpdate `json:"update"`
	User   string      `json:"user"`
}

type IssueReopened struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	User  string `json:"user"`
}

// PullRequestCreated describes a newly opened merge proposal. FromRepo
// is the head repository, which differs from the event repository for
// pull requests opened from a fork.
type PullRequestCreated struct {
	ID       int        `json:"id"`
	Title    string     `json:"title"`
	Body     string     `json:"body"`
	User     string     `json:"user"`
	FromRepo Repository `json:"from_repo"`
	FromRef  string     `json:"from_ref"`
	ToRef    string     `json:"to_ref"`
}

// CrossRepository reports whether the pull request was opened from a
// repository other than base.
func (e PullRequestCreated) CrossRepository(base Repository) bool {
	return e.FromRepo != base
}

type PullRequestUpdated struct {
	ID     int         `json:"id"`
	Update FieldUpdate `json:"update"`
	User   string      `json:"user"`
}

type CommentCreated struct {
	ID     int64         `json:"id"`
	User   string        `json:"user"`
	Target CommentTarget `json:"target"`
	Body   string        `json:"body"`
}

type CommentUpdated struct {
	ID     int64         `json:"id"`
	User   string        `json:"user"`
	Target CommentTarget `json:"target"`
	From   string        `json:"from"`
	To     string        `json:"to"`
}

func (e CommentUpdated) String() string {
	return fmt.Sprintf("comment %d on %s by %s", e.ID, e.Target, e.User)
}
