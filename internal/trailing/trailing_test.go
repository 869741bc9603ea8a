package trailing

import (
	"testing"

	"crossbot/internal/state"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newEngine() *Engine {
	return New(d("0.02"), state.NewAnchors())
}

func TestLongStopFiresAtStopLevel(t *testing.T) {
	engine := newEngine()

	first := engine.Update("OWL", 100, d("100"))
	assert.Equal(t, TrailingLong, first.State)
	assert.True(t, first.Anchor.Equal(d("100")))

	second := engine.Update("OWL", 100, d("105"))
	assert.False(t, second.Flatten)
	assert.True(t, second.Anchor.Equal(d("105")))
	assert.True(t, second.StopLevel.Equal(d("102.9")))

	third := engine.Update("OWL", 100, d("102.91"))
	assert.False(t, third.Flatten)

	fired := engine.Update("OWL", 100, d("102.9"))
	require.True(t, fired.Flatten)
	assert.Equal(t, Flat, fired.State)
	assert.True(t, fired.Released.Reference.Equal(d("105")))
	assert.Equal(t, Flat, engine.State("OWL"))
}

func TestLongStopFiresBelowStopLevel(t *testing.T) {
	engine := newEngine()
	for _, price := range []string{"100", "105"} {
		require.False(t, engine.Update("OWL", 1, d(price)).Flatten)
	}
	assert.True(t, engine.Update("OWL", 1, d("102.8")).Flatten)
}

func TestShortStopMirrorsLong(t *testing.T) {
	engine := newEngine()

	assert.Equal(t, TrailingShort, engine.Update("CROW", -500, d("50")).State)
	lowered := engine.Update("CROW", -500, d("45"))
	assert.True(t, lowered.Anchor.Equal(d("45")))
	assert.True(t, lowered.StopLevel.Equal(d("45.9")))

	assert.False(t, engine.Update("CROW", -500, d("45.89")).Flatten)
	assert.True(t, engine.Update("CROW", -500, d("45.9")).Flatten)
}

func TestAnchorIsMonotonic(t *testing.T) {
	engine := New(d("0.5"), state.NewAnchors())

	prev := d("0")
	for _, price := range []string{"10", "12", "11", "13", "12.5", "14", "9"} {
		decision := engine.Update("DOVE", 10, d(price))
		require.False(t, decision.Flatten)
		assert.True(t, decision.Anchor.GreaterThanOrEqual(prev), "anchor fell at %s", price)
		prev = decision.Anchor
	}

	prev = d("1000")
	for _, price := range []string{"10", "8", "9", "7", "7.5", "6", "8.9"} {
		decision := engine.Update("DUCK", -10, d(price))
		require.False(t, decision.Flatten)
		assert.True(t, decision.Anchor.LessThanOrEqual(prev), "anchor rose at %s", price)
		prev = decision.Anchor
	}
}

func TestRepeatedUpdateIsIdempotent(t *testing.T) {
	engine := newEngine()
	engine.Update("OWL", 100, d("105"))

	for i := 0; i < 5; i++ {
		decision := engine.Update("OWL", 100, d("104"))
		assert.False(t, decision.Flatten)
		assert.True(t, decision.Anchor.Equal(d("105")))
	}
}

func TestFlatPositionClearsAnchor(t *testing.T) {
	engine := newEngine()
	engine.Update("OWL", 100, d("105"))

	decision := engine.Update("OWL", 0, d("90"))
	assert.Equal(t, Flat, decision.State)
	assert.False(t, decision.Flatten)
	_, ok := engine.Anchor("OWL")
	assert.False(t, ok)

	reopened := engine.Update("OWL", 100, d("90"))
	assert.True(t, reopened.Anchor.Equal(d("90")))
}

func TestSideFlipRestartsTrail(t *testing.T) {
	engine := newEngine()
	engine.Update("OWL", 100, d("105"))

	decision := engine.Update("OWL", -100, d("101"))
	assert.Equal(t, TrailingShort, decision.State)
	assert.False(t, decision.Flatten)
	assert.True(t, decision.Anchor.Equal(d("101")))
}

func TestReinstateRestoresReleasedAnchor(t *testing.T) {
	engine := newEngine()
	engine.Update("OWL", 100, d("105"))
	fired := engine.Update("OWL", 100, d("100"))
	require.True(t, fired.Flatten)

	engine.Reinstate("OWL", fired.Released)
	anchor, ok := engine.Anchor("OWL")
	require.True(t, ok)
	assert.True(t, anchor.Equal(d("105")))

	again := engine.Update("OWL", 100, d("100"))
	assert.True(t, again.Flatten)
}

func TestReinstateKeepsNewerAnchor(t *testing.T) {
	engine := newEngine()
	engine.Update("OWL", 100, d("120"))

	engine.Reinstate("OWL", state.Anchor{Side: state.Long, Reference: d("105")})
	anchor, ok := engine.Anchor("OWL")
	require.True(t, ok)
	assert.True(t, anchor.Equal(d("120")))
}

func TestReleaseOnlyMatchingSide(t *testing.T) {
	engine := newEngine()
	engine.Update("OWL", 100, d("105"))

	engine.Release("OWL", state.Anchor{Side: state.Short})
	assert.Equal(t, TrailingLong, engine.State("OWL"))

	engine.Release("OWL", state.Anchor{Side: state.Long})
	assert.Equal(t, Flat, engine.State("OWL"))
	assert.Empty(t, engine.Anchors().Snapshot())
}
