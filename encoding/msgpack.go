// Package encoding holds the msgpack codec used for binary notification
// payloads. Struct fields are keyed by their json tags so the msgpack and
// JSON wire formats share one set of names.
//
// Marshal and Unmarshal are safe for concurrent use.
package encoding

import (
	"bytes"
	"sync"

	"github.com/blurt-dev/blurt/common"
	"github.com/vmihailenco/msgpack/v5"
)

const structTag = "json"

type pooledEncoder struct {
	buf bytes.Buffer
	enc *msgpack.Encoder
}

var encoderPool = sync.Pool{
	New: func() interface{} {
		pe := &pooledEncoder{}
		pe.enc = msgpack.NewEncoder(&pe.buf)
		pe.enc.SetCustomStructTag(structTag)
		return pe
	},
}

// Marshal encodes v. The returned slice is owned by the caller.
func Marshal(v interface{}) ([]byte, error) {
	pe := encoderPool.Get().(*pooledEncoder)
	defer encoderPool.Put(pe)
	pe.buf.Reset()

	if err := pe.enc.Encode(v); err != nil {
		return nil, err
	}

	out := make([]byte, pe.buf.Len())
	copy(out, pe.buf.Bytes())
	return out, nil
}

// Unmarshal decodes data into v. Strings decoded into interface{} stay Go
// strings rather than []byte.
func Unmarshal(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag(structTag)
	dec.UseLooseInterfaceDecoding(true)

	return dec.Decode(v)
}

// MarshalNotification encodes a single notification
func MarshalNotification(n common.Notification) ([]byte, error) {
	return Marshal(&n)
}

// UnmarshalNotification decodes a payload produced by MarshalNotification
func UnmarshalNotification(data []byte) (common.Notification, error) {
	var n common.Notification
	if err := Unmarshal(data, &n); err != nil {
		return common.Notification{}, err
	}
	return n, nil
}
