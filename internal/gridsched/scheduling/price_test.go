package scheduling

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadStepsStayBounded(t *testing.T) {
	s := newStore(0)
	res := localResource(s, "R1", 5, t0)

	assert.Equal(t, 0.0, res.Load)
	StepLoadUp(res)
	assert.InDelta(t, 0.1, res.Load, 1e-9)

	for i := 0; i < 1000; i++ {
		StepLoadUp(res)
	}
	assert.LessOrEqual(t, res.Load, 1.0)
	assert.Greater(t, res.Load, 0.99)

	for i := 0; i < 1000; i++ {
		StepLoadDown(res)
	}
	assert.GreaterOrEqual(t, res.Load, 0.0)
	assert.Less(t, res.Load, 0.01)
}

func TestPriceNeverBelowMinimum(t *testing.T) {
	cfg := testConfig()
	s := newStore(0)
	res := localResource(s, "R1", 5, t0)

	// Empty history falls back to the minimum.
	UpdatePrice(res, cfg)
	assert.Equal(t, 5.0, res.CurPrice)

	// A window of cheap trades cannot push the price under the floor.
	res.PriceHist.Push(1)
	res.PriceHist.Push(2)
	res.Load = 0
	UpdatePrice(res, cfg)
	assert.Equal(t, 5.0, res.CurPrice)
}

func TestPriceConvergesTowardBuyerLimit(t *testing.T) {
	cfg := testConfig()
	s := newStore(0)
	res := localResource(s, "R1", 5, t0)

	// Steady demand at max_price 10: each round one fresh job, a schedule
	// attempt and a price update. The price climbs out of min_price and
	// settles in a band around the buyers' limit.
	now := t0
	var prices []float64
	for i := 0; i < 200; i++ {
		now = now.Add(time.Second)
		q := queueOf(queuedJob(fmt.Sprintf("a-%010d", i), 10, now))
		Schedule(q, s, res, now, cfg)
		UpdatePrice(res, cfg)
		prices = append(prices, res.CurPrice)
	}

	for _, p := range prices[150:] {
		assert.GreaterOrEqual(t, p, res.MinPrice)
		assert.LessOrEqual(t, p, 10.0+cfg.PricePressure)
		assert.Greater(t, p, 8.0, "price failed to approach the buyer limit")
	}
}

func TestRecordDelaySmoothing(t *testing.T) {
	s := newStore(0)
	res := localResource(s, "R1", 5, t0)

	RecordDelay(res, 100)
	assert.Equal(t, 100.0, res.ExpectedDelay)

	RecordDelay(res, 200)
	assert.InDelta(t, 110.0, res.ExpectedDelay, 1e-9)
}
