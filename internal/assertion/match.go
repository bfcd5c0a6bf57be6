package assertion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Match reports whether the JSON document data satisfies a.
func (a Assertion) Match(data []byte) (bool, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return false, err
	}
	return a.matchValue(doc)
}

func (a Assertion) matchValue(doc interface{}) (bool, error) {
	value, found := Lookup(doc, a.Path)
	if a.Operator == OpExists {
		return found, nil
	}
	if !found {
		return false, nil
	}
	text, scalar := Scalar(value)
	if !scalar {
		return false, nil
	}

	switch a.Operator {
	case OpEqual:
		return text == a.Value, nil
	case OpNotEqual:
		return text != a.Value, nil
	case OpRegex:
		re := a.pattern
		if re == nil {
			var err error
			if re, err = regexp.Compile(a.Value); err != nil {
				return false, err
			}
		}
		return re.MatchString(text), nil
	default:
		return false, fmt.Errorf("unknown operator %q", a.Operator)
	}
}

// Any returns the first assertion that data satisfies.
func Any(assertions []Assertion, data []byte) (*Assertion, error) {
	if len(assertions) == 0 {
		return nil, nil
	}
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	for i := range assertions {
		ok, err := assertions[i].matchValue(doc)
		if err != nil {
			return nil, err
		}
		if ok {
			return &assertions[i], nil
		}
	}
	return nil, nil
}

// Lookup walks a dot separated path through decoded JSON.
func Lookup(doc interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	current := doc
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, false
		}
		switch node := current.(type) {
		case map[string]interface{}:
			child, ok := node[part]
			if !ok {
				return nil, false
			}
			current = child
		case []interface{}:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	return current, true
}

// Scalar renders a JSON scalar as text. Objects and arrays are not
// scalars.
func Scalar(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	case nil:
		return "null", true
	default:
		return "", false
	}
}
