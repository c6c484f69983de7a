// Package canonical produces the deterministic byte encoding of signable
// payloads. Every client and the node must agree on these bytes exactly, so
// the rules are strict: object keys sorted lexicographically at every level,
// no whitespace, and amount-bearing fields rendered as decimal strings. This
// is the load-bearing invariant of the whole signature scheme.
package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"github.com/sultan-labs/sultand/internal/core/amount"
)

var (
	// ErrMissingField is returned when a required payload field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrBadAmount is returned when an amount field is not representable as
	// a non-negative 128-bit integer string.
	ErrBadAmount = errors.New("amount is not a non-negative integer string")

	// ErrUnsupportedValue is returned for payload values outside the closed
	// set of signable types.
	ErrUnsupportedValue = errors.New("unsupported payload value type")
)

// Encode serializes a payload into its canonical byte form. Supported value
// types are strings, booleans, signed/unsigned integers, *uint256.Int
// (rendered as a quoted decimal string) and nested map[string]any objects.
// Floats are deliberately rejected: they have no deterministic cross-language
// rendering.
func Encode(payload map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeRequired checks that every field named in required is present, then
// encodes. The signing layer uses it to enforce the fields every request
// type must carry.
func EncodeRequired(payload map[string]any, required []string) ([]byte, error) {
	for _, name := range required {
		if _, ok := payload[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}
	return Encode(payload)
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		return writeObject(buf, val)
	case string:
		return writeString(buf, val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case int:
		fmt.Fprintf(buf, "%d", val)
		return nil
	case int64:
		fmt.Fprintf(buf, "%d", val)
		return nil
	case uint32:
		fmt.Fprintf(buf, "%d", val)
		return nil
	case uint64:
		fmt.Fprintf(buf, "%d", val)
		return nil
	case uint8:
		fmt.Fprintf(buf, "%d", val)
		return nil
	case *uint256.Int:
		if val == nil || !amount.FitsU128(val) {
			return ErrBadAmount
		}
		buf.WriteByte('"')
		buf.WriteString(val.Dec())
		buf.WriteByte('"')
		return nil
	case nil:
		return fmt.Errorf("%w: nil", ErrUnsupportedValue)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

func writeObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeValue(buf, obj[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeString emits a JSON string. HTML escaping is disabled: Python's
// json.dumps and serde_json leave <, > and & untouched, and the encoder must
// match them byte for byte.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	b := tmp.Bytes()
	buf.Write(b[:len(b)-1]) // drop the trailing newline the encoder adds
	return nil
}
