package event

import "fmt"

// Field names the single field changed by an update event.
type Field int

const (
	FieldTitle Field = iota + 1
	FieldBody
)

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldBody:
		return "body"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

func (f Field) MarshalText() ([]byte, error) {
	if f != FieldTitle && f != FieldBody {
		return nil, fmt.Errorf("unknown field %d", int(f))
	}
	return []byte(f.String()), nil
}

// FieldUpdate describes exactly one changed field. Construct it with
// TitleUpdate or BodyUpdate.
type FieldUpdate struct {
	Field Field  `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

func TitleUpdate(from, to string) FieldUpdate {
	return FieldUpdate{Field: FieldTitle, From: from, To: to}
}

func BodyUpdate(from, to string) FieldUpdate {
	return FieldUpdate{Field: FieldBody, From: from, To: to}
}

func (u FieldUpdate) IsTitle() bool { return u.Field == FieldTitle }
func (u FieldUpdate) IsBody() bool  { return u.Field == FieldBody }

// TargetKind tells whether a comment was left on an issue or a pull
// request. Forges thread both through the same comment API.
type TargetKind int

const (
	TargetIssue TargetKind = iota + 1
	TargetPullRequest
)

func (k TargetKind) String() string {
	switch k {
	case TargetIssue:
		return "issue"
	case TargetPullRequest:
		return "pull_request"
	default:
		return fmt.Sprintf("target(%d)", int(k))
	}
}

func (k TargetKind) MarshalText() ([]byte, error) {
	if k != TargetIssue && k != TargetPullRequest {
		return nil, fmt.Errorf("unknown comment target kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// CommentTarget is the issue or pull request a comment belongs to.
type CommentTarget struct {
	Kind   TargetKind `json:"kind"`
	Number int        `json:"id"`
}

func IssueTarget(number int) CommentTarget {
	return CommentTarget{Kind: TargetIssue, Number: number}
}

func PullRequestTarget(number int) CommentTarget {
	return CommentTarget{Kind: TargetPullRequest, Number: number}
}

// ID returns the issue or pull request number regardless of kind.
func (t CommentTarget) ID() int {
	return t.Number
}

func (t CommentTarget) IsPullRequest() bool {
	return t.Kind == TargetPullRequest
}

func (t CommentTarget) String() string {
	return fmt.Sprintf("%s #%d", t.Kind, t.Number)
}
