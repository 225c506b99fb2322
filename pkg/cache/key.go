package cache

import (
	"fmt"
	"sort"
	"strings"
)

// KeyPrefix starts every options cache key.
const KeyPrefix = "netsendo:options"

// CacheKey identifies one load-options result.
type CacheKey struct {
	// Scope is the credential fingerprint
	Scope string

	// Method is the load-options method name (e.g. "getLists")
	Method string

	// Args are the method's arguments (e.g. {"list": "12"})
	Args map[string]string
}

// String generates a deterministic cache key string.
// Format: netsendo:options:scope:method:arg1=val1:arg2=val2
//
// Example:
//
//	netsendo:options:3f2a9c1b0d4e:getSubscribersWithPhone:list=12
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if k.Scope != "" {
		parts = append(parts, k.Scope)
	}
	if k.Method != "" {
		parts = append(parts, k.Method)
	}

	if len(k.Args) > 0 {
		names := make([]string, 0, len(k.Args))
		for name := range k.Args {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Args[name]))
		}
	}

	return strings.Join(parts, ":")
}

// scopePattern matches every key of one scope.
func scopePattern(scope string) string {
	return KeyPrefix + ":" + scope + ":*"
}
