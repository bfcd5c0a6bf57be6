package bot

import (
	"bytes"
	"context"
	"testing"

	"github.com/kehao95/gh-dispatch/internal/dispatch"
)

func TestEchoPrintsOneLinePerDispatch(t *testing.T) {
	var out bytes.Buffer
	dispatcher := dispatch.New(NewEcho(&out))

	payloads := []string{
		`{"event_name":"issues","repository":"acme/widgets","event":{"action":"closed","issue":{"number":4}}}`,
		`{"event_name":"issue_comment","repository":"acme/widgets","run_id":"10","run_number":"2",
		  "event":{"action":"deleted","issue":{"number":4},"comment":{"id":99}}}`,
	}
	for _, payload := range payloads {
		if err := dispatcher.Dispatch(context.Background(), []byte(payload)); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
	}

	want := "on_issue_closed: acme/widgets 4\n" +
		"on_comment_deleted: acme/widgets run=10#2 99\n"
	if got := out.String(); got != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
}

func TestEchoSilentOnDecodeFailure(t *testing.T) {
	var out bytes.Buffer
	err := dispatch.New(NewEcho(&out)).Dispatch(context.Background(), []byte(`{"event_name":"push"}`))
	if err == nil {
		t.Fatal("expected decode error")
	}
	if out.Len() != 0 {
		t.Errorf("echo wrote %q for a rejected payload", out.String())
	}
}
