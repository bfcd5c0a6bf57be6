package dispatch

import (
	"errors"
	"strings"
)

// Kind classifies why a payload could not be decoded.
type Kind int

const (
	// KindUnknownFamily: event_name is missing or not a supported family.
	KindUnknownFamily Kind = iota + 1
	// KindUnknownAction: the nested action is outside the family's vocabulary.
	KindUnknownAction
	// KindInvalidField: a required field is absent, null, of the wrong
	// type, or inconsistent with another field.
	KindInvalidField
)

func (k Kind) String() string {
	switch k {
	case KindUnknownFamily:
		return "unknown event family"
	case KindUnknownAction:
		return "unknown action"
	case KindInvalidField:
		return "invalid field"
	default:
		return "decode error"
	}
}

var (
	ErrUnknownFamily = errors.New("unknown event family")
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidField  = errors.New("invalid field")
)

// DecodeError reports a payload that was rejected before any handler
// hook ran.
type DecodeError struct {
	Kind   Kind
	Family string
	Action string
	// Path is the dotted location of the offending field, empty for
	// errors about the document as a whole.
	Path   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("decode")
	if e.Family != "" {
		b.WriteString(" " + e.Family)
		if e.Action != "" {
			b.WriteString("/" + e.Action)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Path != "" {
		b.WriteString(" " + e.Path)
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrUnknownFamily:
		return e.Kind == KindUnknownFamily
	case ErrUnknownAction:
		return e.Kind == KindUnknownAction
	case ErrInvalidField:
		return e.Kind == KindInvalidField
	}
	return false
}

// IsDecodeError reports whether err came from payload decoding rather
// than from a handler hook.
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

func fieldError(path, reason string) *DecodeError {
	return &DecodeError{Kind: KindInvalidField, Path: path, Reason: reason}
}

// within stamps family and action onto an error raised by a lower-level
// lookup that did not know them.
func within(err error, family, action string) error {
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		return err
	}
	if decodeErr.Family == "" {
		decodeErr.Family = family
	}
	if decodeErr.Action == "" {
		decodeErr.Action = action
	}
	return decodeErr
}
