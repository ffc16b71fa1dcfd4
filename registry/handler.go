package registry

import "github.com/jonwraymond/itemops/item"

// Default handler dimensions.
const (
	DefaultHeight     = 65
	DefaultWidth      = 166
	DefaultMaxPerPage = 1
)

// Image is a texture region used as a handler icon.
type Image struct {
	Resource string
	X, Y     int
	Width    int
	Height   int
}

// HandlerInfo describes how a recipe handler is presented.
type HandlerInfo struct {
	HandlerID     string
	ModName       string
	ModID         string
	ModRequired   bool
	ExcludedModID string

	// Exactly one of Image and Item is set when the handler has an icon.
	Image *Image
	Item  *item.Variant

	YShift            int
	Height            int
	Width             int
	MaxRecipesPerPage int
}

// NewHandlerInfo returns an info with default dimensions.
func NewHandlerInfo(handlerID, modName, modID string) HandlerInfo {
	return HandlerInfo{
		HandlerID:         handlerID,
		ModName:           modName,
		ModID:             modID,
		Height:            DefaultHeight,
		Width:             DefaultWidth,
		MaxRecipesPerPage: DefaultMaxPerPage,
	}
}

// HasIcon reports whether an image or item icon is set.
func (h HandlerInfo) HasIcon() bool {
	return h.Image != nil || h.Item != nil
}

// CatalystInfo is an item that enables a catalyst handler, such as a
// furnace for smelting recipes.
type CatalystInfo struct {
	Item     item.Variant
	Priority int
}

// ModLoader reports which mods are present.
type ModLoader interface {
	IsLoaded(modID string) bool
}

// ModSet is a ModLoader over a fixed set of mod IDs.
type ModSet map[string]bool

// IsLoaded implements ModLoader.
func (s ModSet) IsLoaded(modID string) bool { return s[modID] }

// NewModSet builds a ModSet from IDs.
func NewModSet(ids ...string) ModSet {
	s := make(ModSet, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// ItemLookup resolves an item name and its serialized metadata.
type ItemLookup func(name, nbt string) (item.Variant, bool)
