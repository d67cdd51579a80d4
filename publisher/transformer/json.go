// Package transformer provides implementations of the publisher.Transformer
// interface for serializing notifications to sink-specific formats.
package transformer

import (
	"encoding/json"

	"github.com/blurt-dev/blurt/cfg"
	"github.com/blurt-dev/blurt/common"
	"github.com/blurt-dev/blurt/publisher"
)

func init() {
	publisher.RegisterTransformer(cfg.FormatJSON, func() publisher.Transformer {
		return NewJSONTransformer()
	})
}

// JSONTransformer emits the notification as a flat JSON object with exactly
// id, title, subtitle, body, date and bundle_id. Absent optional fields are
// null, never omitted.
type JSONTransformer struct{}

// NewJSONTransformer creates a new JSON transformer
func NewJSONTransformer() *JSONTransformer {
	return &JSONTransformer{}
}

// Transform marshals n
func (t *JSONTransformer) Transform(n common.Notification) ([]byte, error) {
	return json.Marshal(n)
}

// ContentType returns application/json
func (t *JSONTransformer) ContentType() string {
	return "application/json"
}
