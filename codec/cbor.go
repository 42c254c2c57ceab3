package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/ripley/value"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// CBOR encodes a value tree as canonical CBOR. Canonical mode sorts
// map keys, so two equal trees always encode to identical bytes, at
// the price of object insertion order: decoded objects carry their
// entries in sorted order. Integer widths normalize to the decoder's
// choice of int64 or uint64.
type CBOR struct{}

// Name returns "cbor".
func (CBOR) Name() string { return "cbor" }

// Encode renders the tree as canonical CBOR bytes.
func (CBOR) Encode(v value.Value) ([]byte, error) {
	n, err := value.ToNative(v)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(n)
}

// Decode parses CBOR bytes into a tree.
func (CBOR) Decode(data []byte) (value.Value, error) {
	var n any
	if err := cbor.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("codec: decode cbor: %w", err)
	}
	return value.FromNative(n)
}
