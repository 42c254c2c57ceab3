// Package codec translates generic value trees to and from byte
// encodings. Two codecs are registered by default: "json" and "cbor".
// Codecs carry the tree shape, not native Go types; pair them with the
// engine to move typed objects across a wire.
package codec

import (
	"sort"
	"strings"
	"sync"

	"github.com/chazu/ripley/value"
)

// Codec encodes a value tree to bytes and decodes it back.
type Codec interface {
	// Name returns the codec's registry name, lowercase.
	Name() string

	// Encode renders the tree as bytes.
	Encode(v value.Value) ([]byte, error)

	// Decode parses bytes into a tree.
	Decode(data []byte) (value.Value, error)
}

var (
	regMu  sync.RWMutex
	codecs = make(map[string]Codec)
)

// Register makes c available under its name, replacing any previous
// codec with the same name. It's thread-safe for concurrent access.
func Register(c Codec) {
	regMu.Lock()
	codecs[strings.ToLower(c.Name())] = c
	regMu.Unlock()
}

// ByName returns the codec registered under name, case-insensitively.
func ByName(name string) (Codec, bool) {
	regMu.RLock()
	c, ok := codecs[strings.ToLower(name)]
	regMu.RUnlock()
	return c, ok
}

// Names returns the registered codec names, sorted.
func Names() []string {
	regMu.RLock()
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	regMu.RUnlock()
	sort.Strings(names)
	return names
}

func init() {
	Register(JSON{})
	Register(CBOR{})
}
