package scheduling

import (
	"github.com/vgrid/gridsched/internal/gridsched/configuration"
	"github.com/vgrid/gridsched/internal/gridsched/infostore"
)

// StepLoadUp raises resource load after a successful schedule. The load
// multiplier acts as a smoothing coefficient, so load stays in [0,1].
func StepLoadUp(res *infostore.ResourceStatus) {
	res.Load += res.LoadMultiplier * (1 - res.Load)
}

// StepLoadDown lowers resource load after an empty reply.
func StepLoadDown(res *infostore.ResourceStatus) {
	res.Load -= res.LoadMultiplier * res.Load
}

// UpdatePrice sets the current price from the recent paid-price window plus
// additive load pressure. A resource under constant full load raises its
// price; an idle one drops toward its minimum.
func UpdatePrice(res *infostore.ResourceStatus, cfg configuration.SchedulingConfig) {
	mean := res.PriceHist.MeanTail(cfg.PriceHistoryWindow, res.MinPrice)
	price := mean + cfg.PricePressure*res.Load
	if price < res.MinPrice {
		price = res.MinPrice
	}
	res.CurPrice = price
}

// RecordDelay folds one observed turnaround into the resource's expected
// delay estimate.
func RecordDelay(res *infostore.ResourceStatus, delaySeconds float64) {
	if res.ExpectedDelay == 0 {
		res.ExpectedDelay = delaySeconds
		return
	}
	res.ExpectedDelay = (1-res.LoadMultiplier)*res.ExpectedDelay + res.LoadMultiplier*delaySeconds
}
