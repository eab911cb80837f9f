package cache

import (
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// Key derives a deterministic cache key from a namespace prefix plus the
// positional and named arguments of the call being memoized.
//
// The canonical representation is: prefix, each positional argument in call
// order, then "name:value" for each named argument sorted by name, joined with
// ":". Sorting makes the key independent of named-argument ordering. The joined
// string is compressed with FNV-1a 128 (key compression only, not security) and
// tagged with a fixed "cache:" namespace so derived keys never collide with
// other key families in the shared store.
func Key(prefix string, args []any, kwargs map[string]any) string {
	parts := make([]string, 0, 1+len(args)+len(kwargs))
	parts = append(parts, prefix)
	for _, arg := range args {
		parts = append(parts, fmt.Sprint(arg))
	}
	if len(kwargs) > 0 {
		names := make([]string, 0, len(kwargs))
		for name := range kwargs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s:%v", name, kwargs[name]))
		}
	}

	h := fnv.New128a()
	_, _ = h.Write([]byte(strings.Join(parts, ":")))
	return "cache:" + hex.EncodeToString(h.Sum(nil))
}
