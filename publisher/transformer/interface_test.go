package transformer

import (
	"github.com/blurt-dev/blurt/publisher"
)

// Compile-time interface verification
var (
	_ publisher.Transformer = (*JSONTransformer)(nil)
	_ publisher.Transformer = (*MsgpackTransformer)(nil)
)
