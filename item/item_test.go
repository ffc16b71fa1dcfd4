package item

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestKey_IgnoresCount(t *testing.T) {
	a := New("minecraft:stone", 0).WithCount(1)
	b := New("minecraft:stone", 0).WithCount(64)

	ka, err := Key(a)
	require.NoError(t, err)
	kb, err := Key(b)
	require.NoError(t, err)
	require.Equal(t, ka, kb, "count must not affect the content key")
}

func TestKey_DistinguishesDamageAndTag(t *testing.T) {
	base, err := Key(New("minecraft:wool", 0))
	require.NoError(t, err)

	damaged, err := Key(New("minecraft:wool", 3))
	require.NoError(t, err)
	require.NotEqual(t, base, damaged)

	tagged, err := Key(New("minecraft:wool", 0).WithTag(map[string]any{"color": "red"}))
	require.NoError(t, err)
	require.NotEqual(t, base, tagged)
}

func TestKey_EmptyTagEqualsNoTag(t *testing.T) {
	a, err := Key(New("minecraft:stone", 0))
	require.NoError(t, err)
	b, err := Key(New("minecraft:stone", 0).WithTag(map[string]any{}))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestKey_RejectsZeroVariant(t *testing.T) {
	_, err := Key(Variant{})
	require.ErrorIs(t, err, ErrEmptyType)
}

func TestKey_DeterministicProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		typ := rapid.StringMatching(`[a-z]{1,8}:[a-z_]{1,12}`).Draw(rt, "type")
		damage := rapid.IntRange(0, 32767).Draw(rt, "damage")
		keys := rapid.SliceOfDistinct(rapid.StringMatching(`[a-zA-Z]{1,6}`), func(s string) string { return s }).Draw(rt, "keys")

		tag := make(map[string]any, len(keys))
		for i, k := range keys {
			tag[k] = i
		}
		v := New(typ, damage).WithTag(tag)

		first, err := Key(v)
		require.NoError(rt, err)
		second, err := Key(v.WithTag(cloneTag(tag)))
		require.NoError(rt, err)
		require.Equal(rt, first, second)
	})
}

func cloneTag(tag map[string]any) map[string]any {
	out := make(map[string]any, len(tag))
	for k, v := range tag {
		out[k] = v
	}
	return out
}

func TestRecord_CloneIsDeep(t *testing.T) {
	r := Record{
		KeyID: "minecraft:bucket",
		KeyTag: map[string]any{
			"list": []any{map[string]any{"a": 1}},
		},
	}

	c := r.Clone()
	c[KeyTag].(map[string]any)["list"].([]any)[0].(map[string]any)["a"] = 2

	inner := r[KeyTag].(map[string]any)["list"].([]any)[0].(map[string]any)
	require.Equal(t, 1, inner["a"], "mutating the clone must not touch the original")
}

func TestRecord_Equal(t *testing.T) {
	a := Record{"id": "x", "Damage": 2}
	b := Record{"Damage": 2.0, "id": "x"}
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(Record{"id": "y", "Damage": 2}))
	require.False(t, a.Equal(nil))
	require.True(t, Record(nil).Equal(nil))
}

func TestToInt(t *testing.T) {
	tests := []struct {
		in   any
		want int64
		ok   bool
	}{
		{3, 3, true},
		{int32(7), 7, true},
		{float64(4), 4, true},
		{4.5, 0, false},
		{"12", 12, true},
		{"x", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToInt(tt.in)
		require.Equal(t, tt.ok, ok, "ToInt(%v) ok", tt.in)
		if tt.ok {
			require.Equal(t, tt.want, got, "ToInt(%v)", tt.in)
		}
	}
}

func TestLookup(t *testing.T) {
	tree := map[string]any{
		"Fluid": map[string]any{"FluidName": "water"},
		"Items": []any{map[string]any{"id": "a"}, map[string]any{"id": "b"}},
	}

	got, ok := Lookup(tree, []string{"Fluid", "FluidName"})
	require.True(t, ok)
	require.Equal(t, "water", got)

	got, ok = Lookup(tree, []string{"Items", "1", "id"})
	require.True(t, ok)
	require.Equal(t, "b", got)

	_, ok = Lookup(tree, []string{"Items", "9"})
	require.False(t, ok)
	_, ok = Lookup(tree, []string{"Fluid", "FluidName", "deeper"})
	require.False(t, ok)
}
