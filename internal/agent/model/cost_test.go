package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/charliechat-core/server/internal/agent/model"
)

func TestResolvePricing(t *testing.T) {
	assert.Equal(t, model.Pricing{InputPerM: 0.30, OutputPerM: 2.50}, model.ResolvePricing("gemini-2.5-flash"))
	assert.Equal(t, model.Pricing{InputPerM: 0.10, OutputPerM: 0.40}, model.ResolvePricing("gemini-2.5-flash-lite"))
	assert.Equal(t, model.Pricing{InputPerM: 0.15, OutputPerM: 0.60}, model.ResolvePricing("gpt-4o-mini-2024-07-18"))
	assert.Equal(t, model.Pricing{}, model.ResolvePricing("some-local-model"))
}

func TestTokenUsageCost(t *testing.T) {
	u := &model.TokenUsage{PromptTokens: 2_000_000, CompletionTokens: 1_000_000}
	c := u.Cost(model.Pricing{InputPerM: 0.5, OutputPerM: 2})
	assert.InDelta(t, 1.0, c.Input, 1e-9)
	assert.InDelta(t, 2.0, c.Output, 1e-9)
	assert.InDelta(t, 3.0, c.Total(), 1e-9)

	var none *model.TokenUsage
	assert.Zero(t, none.Cost(model.Pricing{InputPerM: 1, OutputPerM: 1}).Total())
}
