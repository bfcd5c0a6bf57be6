package server

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kehao95/gh-dispatch/internal/event"
)

// truncateText cuts s to at most max bytes without splitting a rune.
func truncateText(s string, max int) (string, bool) {
	if max <= 0 || len(s) <= max {
		return s, false
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}

// truncateEvent bounds the free-text fields of ev and returns the names
// of the fields it shortened.
func truncateEvent(ev interface{}, max int) (interface{}, []string) {
	var cut []string
	clip := func(name string, s *string) {
		var truncated bool
		if *s, truncated = truncateText(*s, max); truncated {
			cut = append(cut, name)
		}
	}

	switch e := ev.(type) {
	case event.IssueCreated:
		clip("title", &e.Title)
		clip("body", &e.Body)
		ev = e
	case event.IssueReopened:
		clip("title", &e.Title)
		clip("body", &e.Body)
		ev = e
	case event.IssueUpdated:
		clip("update.from", &e.Update.From)
		clip("update.to", &e.Update.To)
		ev = e
	case event.PullRequestCreated:
		clip("title", &e.Title)
		clip("body", &e.Body)
		ev = e
	case event.PullRequestUpdated:
		clip("update.from", &e.Update.From)
		clip("update.to", &e.Update.To)
		ev = e
	case event.CommentCreated:
		clip("body", &e.Body)
		ev = e
	case event.CommentUpdated:
		clip("from", &e.From)
		clip("to", &e.To)
		ev = e
	}
	sort.Strings(cut)
	return ev, cut
}

func truncationFields(fields []string) string {
	return strings.Join(fields, ",")
}
