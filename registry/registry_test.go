package registry

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/itemops/item"
	"github.com/jonwraymond/itemops/observe"
)

func msg(key string, values map[string]any) Message {
	return Message{Key: key, Sender: "testmod", Values: values}
}

func TestRegistry_RegisterHandlerInfo(t *testing.T) {
	ctx := context.Background()
	r := New()

	err := r.Process(ctx, msg(RegisterHandlerInfo, map[string]any{
		"handlerID":         "mod.crusher",
		"modName":           "Test Mod",
		"modId":             "testmod",
		"imageResource":     "testmod:textures/crusher.png",
		"imageX":            4,
		"imageY":            8,
		"imageWidth":        16,
		"imageHeight":       16,
		"itemName":          "testmod:crusher",
		"yShift":            6,
		"handlerHeight":     120,
		"maxRecipesPerPage": 3,
	}))
	require.NoError(t, err)

	info, ok := r.Handler("mod.crusher")
	require.True(t, ok)
	assert.Equal(t, "Test Mod", info.ModName)
	require.NotNil(t, info.Image)
	assert.Equal(t, Image{Resource: "testmod:textures/crusher.png", X: 4, Y: 8, Width: 16, Height: 16}, *info.Image)
	assert.Nil(t, info.Item, "image takes precedence over item")
	assert.Equal(t, 6, info.YShift)
	assert.Equal(t, 120, info.Height)
	assert.Equal(t, DefaultWidth, info.Width)
	assert.Equal(t, 3, info.MaxRecipesPerPage)
}

func TestRegistry_HandlerItemIconAndDefaults(t *testing.T) {
	r := New()
	require.NoError(t, r.Process(context.Background(), msg(RegisterHandlerInfo, map[string]any{
		"handlerID": "mod.tank",
		"modName":   "Test Mod",
		"modId":     "testmod",
		"itemName":  "testmod:tank",
		"nbtInfo":   "{Fluid: {FluidName: water}}",
	})))

	info, ok := r.Handler("mod.tank")
	require.True(t, ok)
	require.NotNil(t, info.Item)
	assert.Equal(t, "testmod:tank", info.Item.Type)
	assert.Equal(t, map[string]any{"FluidName": "water"}, info.Item.Tag["Fluid"])
	assert.Equal(t, DefaultHeight, info.Height)
	assert.Equal(t, DefaultMaxPerPage, info.MaxRecipesPerPage)
}

func TestRegistry_InvalidDimensionsKeepDefaults(t *testing.T) {
	r := New()
	require.NoError(t, r.Process(context.Background(), msg(RegisterHandlerInfo, map[string]any{
		"handlerID":     "mod.tank",
		"modName":       "Test Mod",
		"modId":         "testmod",
		"handlerHeight": 90,
		"handlerWidth":  "wide",
	})))

	info, _ := r.Handler("mod.tank")
	assert.Equal(t, DefaultHeight, info.Height)
	assert.Equal(t, DefaultWidth, info.Width)
}

func TestRegistry_DeprecatedHandlerKey(t *testing.T) {
	var buf bytes.Buffer
	r := New(WithLogger(observe.NewLoggerWithWriter("debug", &buf)))

	require.NoError(t, r.Process(context.Background(), msg(RegisterHandlerInfo, map[string]any{
		"handler": "legacy.id",
		"modName": "Old Mod",
		"modId":   "oldmod",
	})))

	_, ok := r.Handler("legacy.id")
	assert.True(t, ok)
	assert.Contains(t, buf.String(), "deprecated message field")
}

func TestRegistry_RejectedMessages(t *testing.T) {
	r := New()
	err := r.Process(context.Background(),
		Message{Key: RegisterHandlerInfo, Sender: "nomap"},
		msg(RegisterHandlerInfo, map[string]any{"handlerID": "x", "modName": "X"}),
		msg(RegisterCatalystInfo, map[string]any{"itemName": "mod:furnace"}),
		msg(RegisterCatalystInfo, map[string]any{"catalystHandlerID": "smelting"}),
		msg(RegisterCatalystInfo, map[string]any{"catalystHandlerID": "smelting", "itemName": "mod:furnace", "nbtInfo": "{unclosed"}),
		msg("", map[string]any{"handlerID": "ignored"}),
		msg("somethingElse", map[string]any{}),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.ErrorIs(t, err, ErrUnknownItem)
	assert.Empty(t, r.Handlers())
	assert.Empty(t, r.Catalysts("smelting"))
}

func TestRegistry_ModChecks(t *testing.T) {
	r := New(WithModLoader(NewModSet("present", "rival")))
	base := func(id string, extra map[string]any) Message {
		values := map[string]any{"handlerID": id, "modName": "M", "modId": "present"}
		for k, v := range extra {
			values[k] = v
		}
		return msg(RegisterHandlerInfo, values)
	}

	require.NoError(t, r.Process(context.Background(),
		base("kept", map[string]any{"modRequired": true}),
		base("missing", map[string]any{"modRequired": true, "modId": "absent"}),
		base("excluded", map[string]any{"excludedModId": "rival"}),
		base("notExcluded", map[string]any{"excludedModId": "absent"}),
		base("optional", map[string]any{"modId": "absent"}),
	))

	var ids []string
	for _, h := range r.Handlers() {
		ids = append(ids, h.HandlerID)
	}
	assert.Equal(t, []string{"kept", "notExcluded", "optional"}, ids)
}

func TestRegistry_RemoveHandler(t *testing.T) {
	ctx := context.Background()
	r := New()
	require.NoError(t, r.Process(ctx,
		msg(RegisterHandlerInfo, map[string]any{"handlerID": "a", "modName": "M", "modId": "m"}),
		msg(RemoveHandlerInfo, map[string]any{"handler": "a"}),
	))

	_, ok := r.Handler("a")
	assert.False(t, ok)
	assert.True(t, r.Removed("a"))

	err := r.Process(ctx, msg(RemoveHandlerInfo, map[string]any{}))
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestRegistry_Catalysts(t *testing.T) {
	ctx := context.Background()
	r := New()
	require.NoError(t, r.Process(ctx,
		msg(RegisterCatalystInfo, map[string]any{"catalystHandlerID": "smelting", "itemName": "mod:furnace"}),
		msg(RegisterCatalystInfo, map[string]any{"handlerID": "smelting", "itemName": "mod:blast_furnace", "priority": 5}),
		msg(RegisterCatalystInfo, map[string]any{"catalystHandlerID": "smelting", "itemName": "mod:campfire", "priority": -1}),
		Message{Key: RegisterCatalystInfo, Sender: "other", Values: map[string]any{"catalystHandlerID": "smelting", "itemName": "mod:smoker"}},
	))

	got := r.Catalysts("smelting")
	types := make([]string, len(got))
	for i, c := range got {
		types[i] = c.Item.Type
	}
	assert.Equal(t, []string{"mod:blast_furnace", "mod:furnace", "mod:smoker", "mod:campfire"}, types)
	assert.Equal(t, []string{"other", "testmod"}, r.Senders())

	require.NoError(t, r.Process(ctx,
		msg(RemoveCatalystInfo, map[string]any{"catalystHandlerID": "smelting", "itemName": "mod:furnace"}),
	))
	got = r.Catalysts("smelting")
	assert.Len(t, got, 3)
	assert.False(t, slices.ContainsFunc(got, func(c CatalystInfo) bool { return c.Item.Type == "mod:furnace" }))
}

func TestRegistry_CatalystModChecks(t *testing.T) {
	r := New(WithModLoader(NewModSet("rival")))
	require.NoError(t, r.Process(context.Background(),
		msg(RegisterCatalystInfo, map[string]any{"catalystHandlerID": "h", "itemName": "a:x", "modId": "absent", "modRequired": true}),
		msg(RegisterCatalystInfo, map[string]any{"catalystHandlerID": "h", "itemName": "a:y", "excludedModId": "rival"}),
		msg(RegisterCatalystInfo, map[string]any{"catalystHandlerID": "h", "itemName": "a:z", "modRequired": true}),
	))

	got := r.Catalysts("h")
	require.Len(t, got, 1)
	assert.Equal(t, "a:z", got[0].Item.Type)
}

func TestParseOrdering(t *testing.T) {
	ordering, err := ParseOrdering(strings.NewReader(`
# priorities
smelting,-10
mod.crusher, 5
bad line
,3
mod.crusher,7
mod.press,high
`))
	require.ErrorIs(t, err, ErrInvalidOrdering)
	assert.Contains(t, err.Error(), `line 5: "bad line"`)
	assert.Equal(t, map[string]int{"smelting": -10, "mod.crusher": 7}, ordering)
}

func TestRegistry_Compare(t *testing.T) {
	r := New()
	err := r.LoadOrdering(strings.NewReader("late,10\nearly,-5\n"))
	require.NoError(t, err)

	ids := []string{"late", "b", "a", "early"}
	slices.SortStableFunc(ids, r.Compare)
	assert.Equal(t, []string{"early", "a", "b", "late"}, ids)
	assert.Equal(t, 10, r.Priority("late"))
	assert.Zero(t, r.Priority("unknown"))

	r.SetOrdering(nil)
	assert.Zero(t, r.Priority("late"))
}

func TestParseItem(t *testing.T) {
	v, ok := ParseItem("mod:cell", `{"Fluid": {"FluidName": "lava", "Amount": 1000}}`)
	require.True(t, ok)
	assert.Equal(t, item.Variant{Type: "mod:cell", Count: 1, Tag: map[string]any{
		"Fluid": map[string]any{"FluidName": "lava", "Amount": 1000},
	}}, v)

	v, ok = ParseItem("mod:cell", "")
	require.True(t, ok)
	assert.Nil(t, v.Tag)

	_, ok = ParseItem("", "")
	assert.False(t, ok)
}
