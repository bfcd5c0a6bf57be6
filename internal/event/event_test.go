package event

import (
	"encoding/json"
	"testing"
)

func TestCommentTargetID(t *testing.T) {
	tests := []struct {
		name   string
		target CommentTarget
		want   int
		isPR   bool
	}{
		{name: "issue", target: IssueTarget(42), want: 42},
		{name: "pull request", target: PullRequestTarget(7), want: 7, isPR: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.target.ID(); got != tt.want {
				t.Errorf("ID() = %d, want %d", got, tt.want)
			}
			if got := tt.target.IsPullRequest(); got != tt.isPR {
				t.Errorf("IsPullRequest() = %v, want %v", got, tt.isPR)
			}
		})
	}
}

func TestFieldUpdateConstructorsNameOneField(t *testing.T) {
	title := TitleUpdate("old", "new")
	if !title.IsTitle() || title.IsBody() {
		t.Errorf("TitleUpdate = %+v, want title only", title)
	}
	body := BodyUpdate("a", "b")
	if !body.IsBody() || body.IsTitle() {
		t.Errorf("BodyUpdate = %+v, want body only", body)
	}
}

func TestRepositoryFullName(t *testing.T) {
	repo := Repository{Owner: "acme", Name: "widgets"}
	if got := repo.FullName(); got != "acme/widgets" {
		t.Errorf("FullName() = %q, want %q", got, "acme/widgets")
	}
}

func TestCrossRepository(t *testing.T) {
	base := Repository{Owner: "acme", Name: "widgets"}
	pr := PullRequestCreated{FromRepo: Repository{Owner: "alice", Name: "widgets"}}
	if !pr.CrossRepository(base) {
		t.Error("fork pull request reported as same-repository")
	}
	pr.FromRepo = base
	if pr.CrossRepository(base) {
		t.Error("same-repository pull request reported as cross-repository")
	}
}

func TestVariantsEncodeAsText(t *testing.T) {
	encoded, err := json.Marshal(CommentCreated{ID: 7, User: "alice", Target: PullRequestTarget(3), Body: "hi"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"id":7,"user":"alice","target":{"kind":"pull_request","id":3},"body":"hi"}`
	if string(encoded) != want {
		t.Errorf("encoded = %s, want %s", encoded, want)
	}

	if _, err := json.Marshal(FieldUpdate{}); err == nil {
		t.Error("zero FieldUpdate encoded without error")
	}
}
