package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// document is a parsed payload addressed by dotted paths.
type document struct {
	root map[string]interface{}
}

func parseDocument(raw []byte) (document, error) {
	var root map[string]interface{}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&root); err != nil {
		return document{}, &DecodeError{Kind: KindInvalidField, Reason: "payload is not a JSON object", Err: err}
	}
	if root == nil {
		return document{}, &DecodeError{Kind: KindInvalidField, Reason: "payload is null"}
	}
	return document{root: root}, nil
}

func (d document) lookup(path string) (interface{}, bool) {
	var current interface{} = d.root
	for _, part := range strings.Split(path, ".") {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		child, ok := node[part]
		if !ok {
			return nil, false
		}
		current = child
	}
	return current, true
}

// has reports whether the key at path exists, whatever its value.
func (d document) has(path string) bool {
	_, ok := d.lookup(path)
	return ok
}

// object reports whether path holds a JSON object.
func (d document) object(path string) bool {
	value, ok := d.lookup(path)
	if !ok {
		return false
	}
	_, isObject := value.(map[string]interface{})
	return isObject
}

func (d document) str(path string) (string, error) {
	value, ok := d.lookup(path)
	if !ok {
		return "", fieldError(path, "missing")
	}
	s, ok := value.(string)
	if !ok {
		return "", fieldError(path, "want string, got "+jsonType(value))
	}
	return s, nil
}

func (d document) integer(path string) (int64, error) {
	value, ok := d.lookup(path)
	if !ok {
		return 0, fieldError(path, "missing")
	}
	number, ok := value.(json.Number)
	if !ok {
		return 0, fieldError(path, "want number, got "+jsonType(value))
	}
	n, err := strconv.ParseInt(number.String(), 10, 64)
	if err != nil || n < 0 {
		return 0, fieldError(path, fmt.Sprintf("want non-negative integer, got %s", number))
	}
	return n, nil
}

func (d document) number(path string) (int, error) {
	n, err := d.integer(path)
	if err != nil {
		return 0, err
	}
	if int64(int(n)) != n {
		return 0, fieldError(path, "out of range")
	}
	return int(n), nil
}

// decimal reads an unsigned integer transmitted as a decimal string.
func (d document) decimal(path string) (uint64, error) {
	s, err := d.str(path)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fieldError(path, fmt.Sprintf("want decimal string, got %q", s))
	}
	return n, nil
}

// firstStr reads the first of paths that exists. The error names the
// preferred path.
func (d document) firstStr(paths ...string) (string, error) {
	for _, path := range paths {
		if d.has(path) {
			return d.str(path)
		}
	}
	return "", fieldError(paths[0], "missing")
}

func jsonType(value interface{}) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
