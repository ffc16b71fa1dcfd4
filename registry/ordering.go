package registry

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrInvalidOrdering is returned for unreadable ordering lines.
var ErrInvalidOrdering = errors.New("registry: invalid ordering line")

// ParseOrdering reads "handlerID,priority" lines. Blank lines and lines
// starting with # are ignored; a later line for the same handler wins.
// Invalid lines are skipped and returned joined alongside the valid
// entries.
func ParseOrdering(rd io.Reader) (map[string]int, error) {
	ordering := make(map[string]int)
	var errs []error

	scanner := bufio.NewScanner(rd)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		id, raw, ok := strings.Cut(text, ",")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			errs = append(errs, fmt.Errorf("%w %d: %q", ErrInvalidOrdering, line, text))
			continue
		}
		priority, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			errs = append(errs, fmt.Errorf("%w %d: %q: %w", ErrInvalidOrdering, line, text, err))
			continue
		}
		ordering[id] = priority
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("registry: read ordering: %w", err))
	}
	return ordering, errors.Join(errs...)
}

// LoadOrdering replaces the handler ordering with the entries read from rd.
// Valid entries are installed even when some lines are rejected.
func (r *Registry) LoadOrdering(rd io.Reader) error {
	ordering, err := ParseOrdering(rd)
	r.SetOrdering(ordering)
	return err
}

// SetOrdering replaces the handler ordering.
func (r *Registry) SetOrdering(ordering map[string]int) {
	next := make(map[string]int, len(ordering))
	for id, p := range ordering {
		next[id] = p
	}

	r.mu.Lock()
	r.ordering = next
	r.mu.Unlock()
}

// Priority returns the priority of a handler, 0 when unlisted.
func (r *Registry) Priority(handlerID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ordering[handlerID]
}

// Compare orders handler IDs by priority, then lexically.
func (r *Registry) Compare(a, b string) int {
	r.mu.RLock()
	pa, pb := r.ordering[a], r.ordering[b]
	r.mu.RUnlock()

	if c := cmp.Compare(pa, pb); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
