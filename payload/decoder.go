// Package payload decodes the binary property lists stored in the
// notification record table.
//
// A payload is a dictionary. The sending application's bundle identifier is
// under "app" and the delivery time under "date"; title, subtitle and body
// live in the nested "req" dictionary under "titl", "subt" and "body". Every
// field is optional. Only a payload that is not a property list at all, or
// whose top level is not a dictionary, fails to decode.
package payload

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/blurt-dev/blurt/common"
	"howett.net/plist"
)

// Payload keys
const (
	keyApp      = "app"
	keyDate     = "date"
	keyRequest  = "req"
	keyTitle    = "titl"
	keySubtitle = "subt"
	keyBody     = "body"
)

// Kind classifies a decode failure
type Kind int

const (
	KindNotAStructuredPayload Kind = iota + 1
	KindUnexpectedShape
)

func (k Kind) String() string {
	switch k {
	case KindNotAStructuredPayload:
		return "not_a_structured_payload"
	case KindUnexpectedShape:
		return "unexpected_shape"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against a *DecodeError
var (
	ErrNotAStructuredPayload = errors.New("payload is not a property list")
	ErrUnexpectedShape       = errors.New("payload top level is not a dictionary")
)

// DecodeError reports why a row's payload could not be decoded
type DecodeError struct {
	Kind  Kind
	RowID int64
	Raw   []byte
	Err   error // Parser error, if any
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row %d: %s: %v", e.RowID, e.sentinel(), e.Err)
	}
	return fmt.Sprintf("row %d: %s", e.RowID, e.sentinel())
}

// Unwrap exposes the parser error
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *DecodeError) Is(target error) bool {
	return target == e.sentinel()
}

// Hex returns the raw payload hex-encoded for diagnostics
func (e *DecodeError) Hex() string {
	return hex.EncodeToString(e.Raw)
}

func (e *DecodeError) sentinel() error {
	if e.Kind == KindUnexpectedShape {
		return ErrUnexpectedShape
	}
	return ErrNotAStructuredPayload
}

// Decode parses a record payload into a Notification. The notification ID is
// always rowID.
func Decode(data []byte, rowID int64) (common.Notification, error) {
	value, format, err := unmarshal(data)
	if err != nil {
		return common.Notification{}, &DecodeError{
			Kind:  KindNotAStructuredPayload,
			RowID: rowID,
			Raw:   data,
			Err:   err,
		}
	}

	// The text formats accept nearly any byte string as a bare string
	if format != plist.BinaryFormat && format != plist.XMLFormat {
		return common.Notification{}, &DecodeError{
			Kind:  KindNotAStructuredPayload,
			RowID: rowID,
			Raw:   data,
			Err:   fmt.Errorf("unsupported format %s", plist.FormatNames[format]),
		}
	}

	dict, ok := value.(map[string]interface{})
	if !ok {
		return common.Notification{}, &DecodeError{
			Kind:  KindUnexpectedShape,
			RowID: rowID,
			Raw:   data,
		}
	}

	return fromDictionary(dict, rowID), nil
}

// unmarshal turns parser panics on corrupt input into errors
func unmarshal(data []byte) (value interface{}, format int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plist parser panic: %v", r)
		}
	}()

	format, err = plist.Unmarshal(data, &value)
	return value, format, err
}

func fromDictionary(dict map[string]interface{}, rowID int64) common.Notification {
	n := common.Notification{ID: rowID}

	if app, ok := stringValue(dict, keyApp); ok {
		n.BundleID = &app
	}

	if date, ok := numericSeconds(dict[keyDate]); ok {
		n.Date = date
	}

	req, ok := dict[keyRequest].(map[string]interface{})
	if !ok {
		return n
	}

	if title, ok := stringValue(req, keyTitle); ok {
		n.Title = title
	}
	if subtitle, ok := stringValue(req, keySubtitle); ok {
		n.Subtitle = &subtitle
	}
	if body, ok := stringValue(req, keyBody); ok {
		n.Body = body
	}

	return n
}

func stringValue(dict map[string]interface{}, key string) (string, bool) {
	s, ok := dict[key].(string)
	return s, ok
}

// numericSeconds converts a real or integer value to whole seconds,
// truncating toward zero. Out of range values saturate and NaN becomes 0.
func numericSeconds(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return floatSeconds(n), true
	case float32:
		return floatSeconds(float64(n)), true
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return math.MaxInt64, true
		}
		return int64(n), true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func floatSeconds(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}
