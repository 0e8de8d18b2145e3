package extract

import (
	"time"

	"github.com/shopspring/decimal"
)

// Per-million-token USD rates for the extraction model.
var (
	inputRatePerMillion  = decimal.NewFromFloat(3.00)
	outputRatePerMillion = decimal.NewFromFloat(15.00)

	million = decimal.NewFromInt(1_000_000)
)

// costPlaces is the currency precision for cost fields.
const costPlaces = 6

// NewCostRecord converts token counts into a monetary estimate at the fixed
// per-token rates.
func NewCostRecord(inputTokens, outputTokens int64) CostRecord {
	inputCost := decimal.NewFromInt(inputTokens).Mul(inputRatePerMillion).Div(million).Round(costPlaces)
	outputCost := decimal.NewFromInt(outputTokens).Mul(outputRatePerMillion).Div(million).Round(costPlaces)

	return CostRecord{
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		InputCostUSD:  inputCost,
		OutputCostUSD: outputCost,
		TotalCostUSD:  inputCost.Add(outputCost).Round(costPlaces),
		Timestamp:     time.Now().UTC(),
	}
}

// sumCosts adds b into a field by field. Aggregation is plain addition of
// token counts and cost amounts; the total is re-derived from the parts.
func sumCosts(a, b CostRecord) CostRecord {
	out := CostRecord{
		InputTokens:   a.InputTokens + b.InputTokens,
		OutputTokens:  a.OutputTokens + b.OutputTokens,
		InputCostUSD:  a.InputCostUSD.Add(b.InputCostUSD).Round(costPlaces),
		OutputCostUSD: a.OutputCostUSD.Add(b.OutputCostUSD).Round(costPlaces),
		Timestamp:     time.Now().UTC(),
	}
	out.TotalCostUSD = out.InputCostUSD.Add(out.OutputCostUSD).Round(costPlaces)
	return out
}
