package domain

import "slices"

// ErrorBands is the residual table logged next to a model: prediction
// ranges (Min, Max] and the standard deviation observed in each range.
type ErrorBands struct {
	Min []float64
	Max []float64
	Std []float64
}

// StdFor returns the deviation for prediction x. Values at or below the lowest
// bound use the first band, values above the highest bound use the last,
// and anything else uses the band with Min < x <= Max. A value falling in a
// gap between bands uses the next band up.
func (b ErrorBands) StdFor(x float64) float64 {
	if x <= slices.Min(b.Min) {
		return b.Std[0]
	}
	if x > slices.Max(b.Max) {
		return b.Std[len(b.Std)-1]
	}
	for i := range b.Std {
		if x > b.Min[i] && x <= b.Max[i] {
			return b.Std[i]
		}
	}
	for i := range b.Std {
		if x <= b.Max[i] {
			return b.Std[i]
		}
	}
	return b.Std[len(b.Std)-1]
}

// Prediction is the response of a batch scoring run: one entry per input
// row, in input order.
type Prediction struct {
	Date           []string  `json:"Date"`
	TCHSolairePred []float64 `json:"TCH_solaire_pred"`
	Error          []float64 `json:"Error"`
}
