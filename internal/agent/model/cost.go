package model

import "strings"

// Pricing is USD per one million input and output tokens.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

var pricingTable = map[string]Pricing{
	"gemini-2.5-pro":        {InputPerM: 1.25, OutputPerM: 10.00},
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
	"gpt-4o-mini":           {InputPerM: 0.15, OutputPerM: 0.60},
	"gpt-4o":                {InputPerM: 2.50, OutputPerM: 10.00},
	"gpt-4.1-mini":          {InputPerM: 0.40, OutputPerM: 1.60},
}

// ResolvePricing looks up a model's price. Dated or preview variants such as
// "gpt-4o-mini-2024-07-18" resolve to their longest known prefix; unknown
// models cost zero.
func ResolvePricing(modelName string) Pricing {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if p, ok := pricingTable[name]; ok {
		return p
	}
	best := ""
	for known := range pricingTable {
		if strings.HasPrefix(name, known+"-") && len(known) > len(best) {
			best = known
		}
	}
	return pricingTable[best]
}

// UsageCost is the USD cost of one generation call.
type UsageCost struct {
	Input  float64
	Output float64
}

func (c UsageCost) Total() float64 { return c.Input + c.Output }

// Cost prices u with p. A nil usage costs nothing.
func (u *TokenUsage) Cost(p Pricing) UsageCost {
	if u == nil {
		return UsageCost{}
	}
	return UsageCost{
		Input:  p.InputPerM * float64(u.PromptTokens) / 1_000_000.0,
		Output: p.OutputPerM * float64(u.CompletionTokens) / 1_000_000.0,
	}
}
