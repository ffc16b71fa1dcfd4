package group

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jonwraymond/itemops/item"
)

// StateKey is the persistence key of the expand/collapse state map.
const StateKey = "collapsibleitems"

// NoGroup is the index reported for unclassified items.
const NoGroup = -1

// Sentinel errors for group operations.
var (
	ErrInvalidDefinition = errors.New("group: invalid definition")
	ErrUnknownGroup      = errors.New("group: index out of range")
)

// Mode selects what a preset does with the items it matches.
type Mode int

const (
	// ModeHide removes matching items from the catalog view. Such presets
	// never produce groups.
	ModeHide Mode = iota
	// ModeGroup collapses matching items into a group.
	ModeGroup
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	switch m {
	case ModeHide:
		return "hide"
	case ModeGroup:
		return "group"
	default:
		return "unknown"
	}
}

// ParseMode maps a mode name to its Mode. The empty string selects
// ModeGroup.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "group":
		return ModeGroup, nil
	case "hide":
		return ModeHide, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidDefinition, s)
	}
}

// Preset is a user-defined item set.
type Preset struct {
	Name    string
	Items   []string
	Filter  item.Filter
	Mode    Mode
	Enabled bool
}

// filter returns the preset's filter, or one built from its item
// expressions when none was set. Unparseable items are skipped.
func (p Preset) filter() item.Filter {
	if p.Filter != nil {
		return p.Filter
	}
	filters := make([]item.Filter, 0, len(p.Items))
	for _, expr := range p.Items {
		if f, err := item.ParseFilter(expr); err == nil {
			filters = append(filters, f)
		}
	}
	return item.AnyOf(filters...)
}

// Group is one classification bucket.
type Group struct {
	ID          string
	Filter      item.Filter
	Expanded    bool
	DisplayName string
}

// Translator resolves localization keys. It returns the key unchanged when
// no translation exists.
type Translator interface {
	Translate(key string) string
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(key string) string

// Translate implements Translator.
func (f TranslatorFunc) Translate(key string) string { return f(key) }

type identityTranslator struct{}

func (identityTranslator) Translate(key string) string { return key }

// NewID derives the stable group ID for a definition string.
func NewID(definition string) string {
	return uuid.NewMD5(uuid.Nil, []byte(definition)).String()
}

func presetID(p Preset) string {
	return NewID("[" + strings.Join(p.Items, ", ") + "]")
}
