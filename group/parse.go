package group

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonwraymond/itemops/item"
)

const directivePrefix = ";"

type directive struct {
	DisplayName     *string `json:"displayName"`
	UnlocalizedName *string `json:"unlocalizedName"`
	Expanded        *bool   `json:"expanded"`
}

// lineFault is a definition line that was skipped.
type lineFault struct {
	Line int
	Text string
	Err  error
}

func (f lineFault) Error() string {
	return fmt.Sprintf("line %d %q: %v", f.Line, f.Text, f.Err)
}

func (f lineFault) Unwrap() error { return f.Err }

// parseDefinitions builds groups from definition lines. Directives
// accumulate on the pending group until a filter line completes it; a
// malformed line is reported and skipped without resetting the pending
// group.
func parseDefinitions(lines []string, tr Translator) ([]Group, []lineFault) {
	var (
		groups  []Group
		faults  []lineFault
		pending Group
	)

	for i, raw := range lines {
		text := strings.TrimSpace(raw)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if body, ok := strings.CutPrefix(text, directivePrefix); ok {
			if err := applyDirective(&pending, strings.TrimSpace(body), tr); err != nil {
				faults = append(faults, lineFault{Line: i + 1, Text: raw, Err: err})
			}
			continue
		}

		f, err := item.ParseFilter(text)
		if err != nil {
			faults = append(faults, lineFault{Line: i + 1, Text: raw, Err: err})
			continue
		}

		pending.ID = NewID(text)
		pending.Filter = f
		if item.IsDegenerate(f) {
			faults = append(faults, lineFault{
				Line: i + 1,
				Text: raw,
				Err:  fmt.Errorf("%w: filter matches everything or nothing", ErrInvalidDefinition),
			})
		} else {
			groups = append(groups, pending)
		}
		pending = Group{}
	}

	return groups, faults
}

func applyDirective(g *Group, body string, tr Translator) error {
	var d directive
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return fmt.Errorf("%w: directive: %w", ErrInvalidDefinition, err)
	}

	if d.DisplayName != nil {
		g.DisplayName = *d.DisplayName
	}
	if d.UnlocalizedName != nil {
		if name := tr.Translate(*d.UnlocalizedName); name != *d.UnlocalizedName {
			g.DisplayName = name
		}
	}
	if d.Expanded != nil {
		g.Expanded = *d.Expanded
	}
	return nil
}
