package quantities

import "fmt"

// Named quantity sets, ordered by cost. Each label includes everything
// the cheaper labels include.
const (
	LabelEconomy  = "economy"
	LabelBusiness = "business"
	LabelFull     = "full"
)

// Economy returns the quantities cheap enough to track every few steps:
// everything computable from the batch gradient and per-sample gradient
// statistics.
func Economy(schedule Schedule) []Quantity {
	return []Quantity{
		NewLoss(schedule),
		NewGradNorm(schedule),
		NewDistance(schedule),
		NewNormTest(schedule),
		NewInnerProductTest(schedule),
		NewOrthogonalityTest(schedule),
		NewGradHist1d(schedule),
		NewAlpha(schedule),
		NewTime(schedule),
	}
}

// Business returns the economy set plus second-order diagonal quantities.
func Business(schedule Schedule) []Quantity {
	return append(Economy(schedule),
		NewTrace(schedule),
		NewTICDiag(schedule),
		NewMeanGSNR(schedule),
		NewEarlyStopping(schedule),
	)
}

// Full returns every built-in quantity, including the ones requiring a
// retained graph.
func Full(schedule Schedule) []Quantity {
	return append(Business(schedule),
		NewTICTrace(schedule),
		NewGradHist2d(schedule),
		NewMaxEV(schedule),
	)
}

// Configured resolves a set label to its quantities.
func Configured(label string, schedule Schedule) ([]Quantity, error) {
	switch label {
	case LabelEconomy:
		return Economy(schedule), nil
	case LabelBusiness:
		return Business(schedule), nil
	case LabelFull:
		return Full(schedule), nil
	default:
		return nil, fmt.Errorf("unknown quantity set %q (want %q, %q or %q)",
			label, LabelEconomy, LabelBusiness, LabelFull)
	}
}
