package transformer

import (
	"github.com/blurt-dev/blurt/cfg"
	"github.com/blurt-dev/blurt/common"
	"github.com/blurt-dev/blurt/encoding"
	"github.com/blurt-dev/blurt/publisher"
)

func init() {
	publisher.RegisterTransformer(cfg.FormatMsgpack, func() publisher.Transformer {
		return NewMsgpackTransformer()
	})
}

// MsgpackTransformer emits the notification as a msgpack map with the same
// keys as the JSON wire format
type MsgpackTransformer struct{}

func NewMsgpackTransformer() *MsgpackTransformer {
	return &MsgpackTransformer{}
}

func (t *MsgpackTransformer) Transform(n common.Notification) ([]byte, error) {
	return encoding.MarshalNotification(n)
}

func (t *MsgpackTransformer) ContentType() string {
	return "application/msgpack"
}
