package engine

import (
	"sort"
	"strings"
)

// AliasPath applies a rename mapping to a dotted module path. Keys that match
// the whole path or a dot-bounded prefix are replaced first (longest key
// wins); single-segment keys then rename the components that were not
// already replaced.
func AliasPath(path string, rename map[string]string) string {
	if len(rename) == 0 {
		return path
	}
	keys := make([]string, 0, len(rename))
	for k := range rename {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	head, rest := "", path
	for _, from := range keys {
		if path == from || strings.HasPrefix(path, from+".") {
			head = rename[from]
			rest = strings.TrimPrefix(path[len(from):], ".")
			break
		}
	}
	if rest != "" {
		parts := strings.Split(rest, ".")
		for i, p := range parts {
			if to, ok := rename[p]; ok {
				parts[i] = to
			}
		}
		rest = strings.Join(parts, ".")
	}
	switch {
	case head == "":
		return rest
	case rest == "":
		return head
	default:
		return head + "." + rest
	}
}

// ResolveModules maps each lens alias to the native module path that carries
// it under rename. Native paths are also reachable under their own name.
// The second result lists aliases that did not resolve.
func ResolveModules(native []string, rename map[string]string, aliases ...string) (map[string]string, []string) {
	byAlias := make(map[string]string, len(native)*2)
	for _, p := range native {
		byAlias[p] = p
	}
	for _, p := range native {
		byAlias[AliasPath(p, rename)] = p
	}
	out := make(map[string]string, len(aliases))
	var missing []string
	for _, a := range aliases {
		if p, ok := byAlias[a]; ok {
			out[a] = p
			continue
		}
		missing = append(missing, a)
	}
	return out, missing
}
