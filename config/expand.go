package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// ErrMissingEnv is returned when a path references an unset variable.
var ErrMissingEnv = errors.New("config: missing environment variables")

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandPath expands $VAR and ${VAR} in s. A ${VAR} whose variable is unset
// is an error rather than an empty string; $$ yields a literal $.
func expandPath(s string) (string, error) {
	const dollar = "\x00ITEMOPS_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	missing := make(map[string]struct{})
	for _, m := range envRef.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(m[1]); !ok {
			missing[m[1]] = struct{}{}
		}
	}
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(keys, ", "))
	}

	return strings.ReplaceAll(os.ExpandEnv(s), dollar, "$"), nil
}

// expandPaths expands every file path in c.
func (c *Config) expandPaths() error {
	for _, p := range []*string{
		&c.Files.Groups,
		&c.Files.GUIDFilters,
		&c.Files.HandlerOrdering,
		&c.Files.Catalog,
		&c.State.Path,
	} {
		out, err := expandPath(*p)
		if err != nil {
			return err
		}
		*p = out
	}
	return nil
}
