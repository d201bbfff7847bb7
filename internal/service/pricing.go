package service

// ModelRates holds per-1000-token dollar rates for one generation model.
type ModelRates struct {
	InputPer1K  float64
	OutputPer1K float64
}

// PriceTable maps model names to their token rates.
type PriceTable map[string]ModelRates

// DefaultPriceTable covers the models the service is expected to bill for.
// Rates are dollars per 1000 tokens.
func DefaultPriceTable() PriceTable {
	return PriceTable{
		"gpt-3.5-class": {InputPer1K: 0.002, OutputPer1K: 0.005},
		"gpt-3.5-turbo": {InputPer1K: 0.002, OutputPer1K: 0.005},
		"gpt-4o-mini":   {InputPer1K: 0.00015, OutputPer1K: 0.0006},
		"gpt-4o":        {InputPer1K: 0.0025, OutputPer1K: 0.01},
	}
}

// Cost returns the dollar cost for one completion and whether the model is
// registered. Unknown models cost 0.0; callers log the anomaly, billing
// reconciliation flags it later.
func (t PriceTable) Cost(model string, promptTokens, completionTokens int) (float64, bool) {
	rates, ok := t[model]
	if !ok {
		return 0.0, false
	}
	return float64(promptTokens)/1000*rates.InputPer1K +
		float64(completionTokens)/1000*rates.OutputPer1K, true
}
