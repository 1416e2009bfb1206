package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liqtrade/riskengine/pkg/types"
)

func TestPyramidingConstructionValidation(t *testing.T) {
	_, err := NewPyramidingConstraint(-1, 0.5)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPyramidingConstraint(3, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPyramidingConstraint(3, 1.5)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	c, err := NewPyramidingConstraint(3, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 3, c.MaxPyramidAdds())
}

func TestPyramidingInitialEntryPasses(t *testing.T) {
	c, err := NewPyramidingConstraint(3, 0.5)
	require.NoError(t, err)

	result := c.Apply([]*types.OrderIntent{buyIntent("AAPL", "100", 1)}, cashPortfolio("100000"), barsMarket(), DefaultConfig())

	assert.Len(t, result.Orders, 1)
	assert.Empty(t, result.Rejected)
	// Apply never counts adds; only RecordFill does
	assert.Equal(t, 0, c.State("AAPL").AddCount)
}

func TestPyramidingLimitReached(t *testing.T) {
	c, err := NewPyramidingConstraint(3, 0.5)
	require.NoError(t, err)

	c.SetState("AAPL", PyramidingState{AddCount: 3, InitialQuantity: d("100"), TotalAdded: d("150")})

	portfolio := heldPortfolio("75000",
		types.Position{Symbol: "AAPL", Quantity: d("250"), AveragePrice: d("100"), CurrentPrice: d("100")},
	)
	market := barsMarket(testBar("AAPL", "100", "101", "99", "100"))

	result := c.Apply([]*types.OrderIntent{buyIntent("AAPL", "50", 1)}, portfolio, market, DefaultConfig())

	assert.Empty(t, result.Orders)
	require.Len(t, result.Rejected, 1)
	assert.Contains(t, result.Rejected[0].Reason, "Pyramiding limit reached")
}

func TestPyramidingAddScaledToMaxAddPct(t *testing.T) {
	c, err := NewPyramidingConstraint(3, 0.5)
	require.NoError(t, err)

	c.SetState("AAPL", PyramidingState{AddCount: 1, InitialQuantity: d("100")})

	portfolio := heldPortfolio("75000",
		types.Position{Symbol: "AAPL", Quantity: d("150"), AveragePrice: d("100"), CurrentPrice: d("100")},
	)

	// Add of 80 exceeds 50% of initial 100: scaled to 50
	result := c.Apply([]*types.OrderIntent{buyIntent("AAPL", "80", 1)}, portfolio, barsMarket(), DefaultConfig())

	require.Len(t, result.Orders, 1)
	assert.True(t, result.Orders[0].Quantity.Equal(d("50")))
	require.Len(t, result.Rejected, 1)
	assert.True(t, result.Rejected[0].Scaled())
}

func TestPyramidingAddWithinLimitPasses(t *testing.T) {
	c, err := NewPyramidingConstraint(3, 0.5)
	require.NoError(t, err)

	c.SetState("AAPL", PyramidingState{AddCount: 1, InitialQuantity: d("100")})

	portfolio := heldPortfolio("75000",
		types.Position{Symbol: "AAPL", Quantity: d("150"), AveragePrice: d("100"), CurrentPrice: d("100")},
	)

	result := c.Apply([]*types.OrderIntent{buyIntent("AAPL", "40", 1)}, portfolio, barsMarket(), DefaultConfig())

	require.Len(t, result.Orders, 1)
	assert.True(t, result.Orders[0].Quantity.Equal(d("40")))
	assert.Empty(t, result.Rejected)
}

func TestPyramidingRiskReducingPassesAndResetOnClose(t *testing.T) {
	c, err := NewPyramidingConstraint(3, 0.5)
	require.NoError(t, err)

	c.SetState("AAPL", PyramidingState{AddCount: 2, InitialQuantity: d("100")})

	portfolio := heldPortfolio("75000",
		types.Position{Symbol: "AAPL", Quantity: d("150"), AveragePrice: d("100"), CurrentPrice: d("100")},
	)

	// Partial sell passes, state survives
	result := c.Apply([]*types.OrderIntent{sellIntent("AAPL", "50")}, portfolio, barsMarket(), DefaultConfig())
	assert.Len(t, result.Orders, 1)
	assert.Equal(t, 2, c.State("AAPL").AddCount)

	// Full close passes and resets state
	result = c.Apply([]*types.OrderIntent{sellIntent("AAPL", "150")}, portfolio, barsMarket(), DefaultConfig())
	assert.Len(t, result.Orders, 1)
	assert.Equal(t, 0, c.State("AAPL").AddCount)
	assert.True(t, c.State("AAPL").InitialQuantity.IsZero())
}

func TestPyramidingShortSide(t *testing.T) {
	c, err := NewPyramidingConstraint(1, 0.5)
	require.NoError(t, err)

	c.SetState("AAPL", PyramidingState{AddCount: 1, InitialQuantity: d("100")})

	portfolio := heldPortfolio("125000",
		types.Position{Symbol: "AAPL", Quantity: d("-150"), AveragePrice: d("100"), CurrentPrice: d("100")},
	)

	// Sell extends the short: counts as an add and hits the limit
	result := c.Apply([]*types.OrderIntent{sellIntent("AAPL", "50")}, portfolio, barsMarket(), DefaultConfig())
	assert.Empty(t, result.Orders)
	require.Len(t, result.Rejected, 1)

	// Buy covers the short: risk-reducing, passes
	result = c.Apply([]*types.OrderIntent{buyIntent("AAPL", "50", 1)}, portfolio, barsMarket(), DefaultConfig())
	assert.Len(t, result.Orders, 1)
}

func TestPyramidingRecordFill(t *testing.T) {
	c, err := NewPyramidingConstraint(3, 0.5)
	require.NoError(t, err)

	c.RecordFill("AAPL", d("100"), false)
	st := c.State("AAPL")
	assert.Equal(t, 0, st.AddCount)
	assert.True(t, st.InitialQuantity.Equal(d("100")))

	c.RecordFill("AAPL", d("50"), true)
	c.RecordFill("AAPL", d("30"), true)
	st = c.State("AAPL")
	assert.Equal(t, 2, st.AddCount)
	assert.True(t, st.TotalAdded.Equal(d("80")))
}

func TestPyramidingSnapshotRoundTrip(t *testing.T) {
	c, err := NewPyramidingConstraint(3, 0.5)
	require.NoError(t, err)
	c.RecordFill("AAPL", d("100"), false)
	c.RecordFill("AAPL", d("50"), true)

	snapshot := c.Snapshot()
	require.Contains(t, snapshot, "AAPL")

	restored, err := NewPyramidingConstraint(3, 0.5)
	require.NoError(t, err)
	for symbol, st := range snapshot {
		restored.SetState(symbol, st)
	}

	assert.Equal(t, 1, restored.State("AAPL").AddCount)
	assert.True(t, restored.State("AAPL").InitialQuantity.Equal(decimal.NewFromInt(100)))
}
