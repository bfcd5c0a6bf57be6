// Package assertion evaluates stream exit conditions against the JSON
// messages broadcast by the server.
//
// An assertion is one of:
//
//	path=value      the scalar at path renders as value
//	path!=value     the scalar at path is present and renders otherwise
//	path=~pattern   the scalar at path matches the regular expression
//	path exists     path resolves to any value
//
// Paths are dot separated; numeric segments index into arrays.
package assertion

import (
	"fmt"
	"regexp"
	"strings"
)

type Operator string

const (
	OpExists   Operator = "exists"
	OpEqual    Operator = "eq"
	OpNotEqual Operator = "ne"
	OpRegex    Operator = "regex"
)

type Assertion struct {
	Path     string
	Operator Operator
	Value    string
	ExitCode int

	pattern *regexp.Regexp
}

func (a Assertion) String() string {
	switch a.Operator {
	case OpExists:
		return a.Path + " exists"
	case OpNotEqual:
		return a.Path + "!=" + a.Value
	case OpRegex:
		return a.Path + "=~" + a.Value
	default:
		return a.Path + "=" + a.Value
	}
}

func Parse(input string, exitCode int) (Assertion, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Assertion{}, fmt.Errorf("assertion cannot be empty")
	}

	idx := strings.IndexByte(trimmed, '=')
	if idx < 0 {
		fields := strings.Fields(trimmed)
		if len(fields) != 2 || fields[1] != string(OpExists) {
			return Assertion{}, fmt.Errorf("expected 'path=value', 'path!=value', 'path=~regex', or 'path exists'")
		}
		return Assertion{Path: fields[0], Operator: OpExists, ExitCode: exitCode}, nil
	}

	op := OpEqual
	pathEnd := idx
	if idx > 0 && trimmed[idx-1] == '!' {
		op = OpNotEqual
		pathEnd = idx - 1
	}
	path := strings.TrimSpace(trimmed[:pathEnd])
	value := strings.TrimSpace(trimmed[idx+1:])
	if path == "" {
		return Assertion{}, fmt.Errorf("missing path before '='")
	}

	if op == OpEqual && strings.HasPrefix(value, "~") {
		expr := strings.TrimSpace(value[1:])
		if expr == "" {
			return Assertion{}, fmt.Errorf("missing regex pattern after '=~'")
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return Assertion{}, fmt.Errorf("compile pattern: %w", err)
		}
		return Assertion{Path: path, Operator: OpRegex, Value: expr, ExitCode: exitCode, pattern: re}, nil
	}
	if value == "" {
		return Assertion{}, fmt.Errorf("missing value after '='")
	}
	return Assertion{Path: path, Operator: op, Value: value, ExitCode: exitCode}, nil
}

func ParseAll(inputs []string, exitCode int) ([]Assertion, error) {
	assertions := make([]Assertion, 0, len(inputs))
	for _, input := range inputs {
		a, err := Parse(input, exitCode)
		if err != nil {
			return nil, fmt.Errorf("invalid assertion %q: %w", input, err)
		}
		assertions = append(assertions, a)
	}
	return assertions, nil
}
