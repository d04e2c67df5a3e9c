package engine

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

func loadExcludePatterns(inline []string, files []string) ([]string, error) {
	out := make([]string, 0, len(inline))
	for _, p := range inline {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
		out = append(out, p)
	}
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read exclude file: %w", err)
		}
		for i, line := range strings.Split(string(b), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if !doublestar.ValidatePattern(line) {
				return nil, fmt.Errorf("%s:%d: invalid exclude pattern %q", f, i+1, line)
			}
			out = append(out, line)
		}
	}
	return out, nil
}

// matchExclude reports whether name or one of its parent directories
// matches a pattern. Patterns without a slash also match a bare base name,
// so "*.tmp" excludes tmp files at any depth.
func matchExclude(patterns []string, name string) bool {
	if len(patterns) == 0 {
		return false
	}
	name = strings.TrimSuffix(strings.TrimPrefix(name, "./"), "/")
	for candidate := name; candidate != "" && candidate != "." && candidate != "/"; candidate = path.Dir(candidate) {
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, candidate); ok {
				return true
			}
			if !strings.Contains(p, "/") {
				if ok, _ := doublestar.Match(p, path.Base(candidate)); ok {
					return true
				}
			}
		}
	}
	return false
}

// shouldSkipMember reports whether name is outside the members named on
// the command line. A member selects itself, everything below it, and
// anything its glob matches.
func shouldSkipMember(members []string, name string) bool {
	if len(members) == 0 {
		return false
	}
	clean := strings.TrimSuffix(name, "/")
	for _, m := range members {
		m = strings.TrimSuffix(m, "/")
		if clean == m || strings.HasPrefix(clean, m+"/") {
			return false
		}
		if ok, _ := doublestar.Match(m, clean); ok {
			return false
		}
	}
	return true
}
