package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/itemops/item"
)

func TestDefaultStrategy_RoundTrip(t *testing.T) {
	s := DefaultStrategy{}
	v := item.New("mod:ingot", 3).WithCount(16).WithTag(map[string]any{"quality": "fine"})

	rec, ok := s.ToRecord(v, true)
	require.True(t, ok)
	assert.Equal(t, "mod:ingot", rec[item.KeyStrID])
	assert.Equal(t, 16, rec[item.KeyCount])

	back, ok := s.FromRecord(rec)
	require.True(t, ok)
	assert.Equal(t, v, back)

	rec, ok = s.ToRecord(v, false)
	require.True(t, ok)
	assert.NotContains(t, rec, item.KeyCount)
}

func TestDefaultStrategy_FromRecordFallsBackToID(t *testing.T) {
	v, ok := DefaultStrategy{}.FromRecord(item.Record{item.KeyID: "mod:dust", item.KeyDamage: float64(2)})
	require.True(t, ok)
	assert.Equal(t, item.Variant{Type: "mod:dust", Count: 1, Damage: 2}, v)

	_, ok = DefaultStrategy{}.FromRecord(item.Record{item.KeyDamage: 2})
	assert.False(t, ok)
}

func TestDefaultStrategy_Fluid(t *testing.T) {
	s := DefaultStrategy{}

	_, ok := s.Fluid(item.New("mod:bucket", 0))
	assert.False(t, ok)

	_, ok = s.Fluid(item.New("mod:bucket", 0).WithTag(map[string]any{"Fluid": map[string]any{"Amount": 1000}}))
	assert.False(t, ok, "fluid without a name")

	fluid, ok := s.Fluid(item.New("mod:bucket", 0).WithTag(map[string]any{
		"Fluid": map[string]any{"FluidName": "water", "Amount": 1000},
	}))
	require.True(t, ok)
	assert.Equal(t, item.Record{"FluidName": "water", "Amount": 1000}, fluid)
}

func TestFluidDisplayStrategy(t *testing.T) {
	s := FluidDisplayStrategy{Type: "mod:fluid_display"}
	v := item.New("mod:fluid_display", 0).WithCount(250).WithTag(map[string]any{"FluidName": "lava", "Shade": 4})

	rec, ok := s.ToRecord(v, false)
	require.True(t, ok)
	assert.Equal(t, item.Record{item.KeyStrID: "mod:fluid_display", "fluid": "lava"}, rec)

	back, ok := s.FromRecord(rec)
	require.True(t, ok)
	assert.Equal(t, "lava", back.Tag["FluidName"])

	fluid, ok := s.Fluid(v)
	require.True(t, ok)
	assert.Equal(t, item.Record{"FluidName": "lava", "Amount": 250}, fluid)

	_, ok = s.ToRecord(item.New("mod:other", 0), false)
	assert.False(t, ok)
	_, ok = s.FromRecord(item.Record{item.KeyStrID: "mod:other", "fluid": "lava"})
	assert.False(t, ok)
}
