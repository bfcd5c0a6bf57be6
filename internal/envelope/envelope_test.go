package envelope

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kehao95/gh-dispatch/internal/dispatch"
	"github.com/kehao95/gh-dispatch/internal/event"
)

const pullRequestWebhook = `{
  "action": "opened",
  "pull_request": {
    "number": 5,
    "title": "Add widget",
    "body": "Adds a widget.",
    "user": {"login": "carol"},
    "head": {"ref": "add-widget", "user": {"login": "carol"}, "repo": {"name": "widgets"}},
    "base": {"ref": "main"}
  },
  "repository": {"full_name": "acme/widgets", "owner": {"login": "acme"}}
}`

func TestFromWebhookLiftsRefs(t *testing.T) {
	env, err := FromWebhook("pull_request", []byte(pullRequestWebhook))
	if err != nil {
		t.Fatalf("FromWebhook: %v", err)
	}
	if env.EventName != "pull_request" || env.Repository != "acme/widgets" {
		t.Errorf("envelope = %+v", env)
	}
	if env.HeadRef != "add-widget" || env.BaseRef != "main" {
		t.Errorf("refs = %q -> %q, want add-widget -> main", env.HeadRef, env.BaseRef)
	}
}

func TestFromWebhookDispatches(t *testing.T) {
	env, err := FromWebhook("pull_request", []byte(pullRequestWebhook))
	if err != nil {
		t.Fatalf("FromWebhook: %v", err)
	}
	raw, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	decoded, err := dispatch.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Hook != dispatch.HookPullRequestCreated {
		t.Fatalf("hook = %s, want %s", decoded.Hook, dispatch.HookPullRequestCreated)
	}
	pr := decoded.Event.(event.PullRequestCreated)
	if pr.FromRef != "add-widget" || pr.ToRef != "main" {
		t.Errorf("refs = %q -> %q", pr.FromRef, pr.ToRef)
	}

	if err := dispatch.New(dispatch.NopHandler{}).Dispatch(context.Background(), raw); err != nil {
		t.Errorf("Dispatch: %v", err)
	}
}

func TestFromWebhookRejectsBadInput(t *testing.T) {
	if _, err := FromWebhook("", []byte(`{}`)); err == nil {
		t.Error("empty event name accepted")
	}
	if _, err := FromWebhook("issues", []byte(`{`)); err == nil {
		t.Error("truncated body accepted")
	}
}

func TestFromWebhookOmitsRefsWithoutPullRequest(t *testing.T) {
	env, err := FromWebhook("issues", []byte(`{"action":"closed","repository":{"full_name":"acme/widgets"}}`))
	if err != nil {
		t.Fatalf("FromWebhook: %v", err)
	}
	raw, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"head_ref", "base_ref", "run_id", "run_number"} {
		if _, ok := fields[key]; ok {
			t.Errorf("envelope carries %s for an issues event", key)
		}
	}
}

func TestFromActionsEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	payload := `{"action":"closed","issue":{"number":9},"repository":{"owner":{"login":"acme"}}}`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	t.Setenv("GITHUB_EVENT_NAME", "issues")
	t.Setenv("GITHUB_EVENT_PATH", path)
	t.Setenv("GITHUB_REPOSITORY", "acme/widgets")
	t.Setenv("GITHUB_HEAD_REF", "")
	t.Setenv("GITHUB_BASE_REF", "")
	t.Setenv("GITHUB_RUN_ID", "1234")
	t.Setenv("GITHUB_RUN_NUMBER", "56")

	env, err := FromActionsEnv()
	if err != nil {
		t.Fatalf("FromActionsEnv: %v", err)
	}
	raw, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := dispatch.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Hook != dispatch.HookIssueClosed || decoded.Event != 9 {
		t.Errorf("decoded %s %v, want issue_closed 9", decoded.Hook, decoded.Event)
	}
	if decoded.Running == nil || decoded.Running.RunID != 1234 || decoded.Running.RunNumber != 56 {
		t.Errorf("running = %+v, want 1234/56", decoded.Running)
	}
}

func TestFromActionsEnvRequiresEvent(t *testing.T) {
	t.Setenv("GITHUB_EVENT_NAME", "")
	if _, err := FromActionsEnv(); err == nil {
		t.Error("missing GITHUB_EVENT_NAME accepted")
	}

	t.Setenv("GITHUB_EVENT_NAME", "issues")
	t.Setenv("GITHUB_EVENT_PATH", filepath.Join(t.TempDir(), "missing.json"))
	if _, err := FromActionsEnv(); err == nil {
		t.Error("missing event file accepted")
	}
}
