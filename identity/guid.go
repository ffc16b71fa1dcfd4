package identity

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jonwraymond/itemops/cache"
	"github.com/jonwraymond/itemops/item"
)

// ErrInvalidGUIDFilter is returned for unreadable GUID filter lines.
var ErrInvalidGUIDFilter = errors.New("identity: invalid guid filter")

// GUIDFilter projects the records of one strId onto a few metadata paths.
// Paths are kept in the order they were declared; each is a dotted list of
// map keys and slice indexes relative to the record root.
type GUIDFilter struct {
	StrID string
	Paths [][]string
}

// ParseGUIDFilters reads the line format
//
//	strId,path.to.field,list.0.field
//
// Blank lines and lines starting with # are ignored. A later line for the
// same strId replaces the earlier one; duplicate paths within a line are
// kept once. Unreadable lines are skipped: the filters from every other
// line are returned together with the joined line errors.
func ParseGUIDFilters(r io.Reader) ([]GUIDFilter, error) {
	var (
		filters []GUIDFilter
		errs    []error
		index   = make(map[string]int)
	)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		f, err := parseGUIDLine(text)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if i, seen := index[f.StrID]; seen {
			filters[i] = f
			continue
		}
		index[f.StrID] = len(filters)
		filters = append(filters, f)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("identity: read guid filters: %w", err))
	}
	return filters, errors.Join(errs...)
}

func parseGUIDLine(text string) (GUIDFilter, error) {
	parts := strings.Split(text, ",")
	strID := strings.TrimSpace(parts[0])
	if strID == "" {
		return GUIDFilter{}, fmt.Errorf("%w: %q has no strId", ErrInvalidGUIDFilter, text)
	}

	f := GUIDFilter{StrID: strID}
	seen := make(map[string]bool)
	for _, raw := range parts[1:] {
		path := strings.TrimSpace(raw)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		f.Paths = append(f.Paths, strings.Split(path, "."))
	}
	return f, nil
}

// project builds the tuple key for a record. Traversal stops at the first
// step that cannot be taken and keeps the node reached so far: a missing
// map key yields nothing for that path, while a bad slice index or a step
// into a scalar keeps the slice or scalar itself.
func (f GUIDFilter) project(r item.Record) string {
	parts := []string{f.StrID}

	for _, path := range f.Paths {
		var local any = map[string]any(r)
	walk:
		for _, seg := range path {
			switch node := local.(type) {
			case map[string]any:
				local = node[seg]
			case []any:
				next, ok := item.Step(node, seg)
				if !ok {
					break walk
				}
				local = next
			default:
				break walk
			}
		}

		if local == nil {
			continue
		}
		if s, err := cache.CanonicalString(local); err == nil {
			parts = append(parts, s)
		}
	}

	return "[" + strings.Join(parts, ", ") + "]"
}
