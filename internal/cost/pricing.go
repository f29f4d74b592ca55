// Package cost turns token usage into money. The pricing table is built once at
// startup and shared read-only by every request.
package cost

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rate is the price in USD per one million tokens.
type Rate struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

var defaultRates = map[string]Rate{
	"gpt-5.1":    {Input: 1.25, Output: 10.00},
	"gpt-5":      {Input: 1.25, Output: 10.00},
	"gpt-5-mini": {Input: 0.25, Output: 2.00},
	"gpt-5-nano": {Input: 0.05, Output: 0.40},
	"gpt-5-pro":  {Input: 15.00, Output: 120.00},

	"gpt-4.1":      {Input: 2.00, Output: 8.00},
	"gpt-4.1-mini": {Input: 0.40, Output: 1.60},
	"gpt-4.1-nano": {Input: 0.10, Output: 0.40},

	"gpt-4-turbo":   {Input: 10.00, Output: 30.00},
	"gpt-4":         {Input: 30.00, Output: 60.00},
	"gpt-4o":        {Input: 2.50, Output: 10.00},
	"gpt-4o-mini":   {Input: 0.15, Output: 0.60},
	"gpt-3.5-turbo": {Input: 0.50, Output: 1.50},

	"gpt-5.1-codex":      {Input: 1.25, Output: 10.00},
	"gpt-5-codex":        {Input: 1.25, Output: 10.00},
	"gpt-5.1-codex-mini": {Input: 0.25, Output: 2.00},
	"codex-mini-latest":  {Input: 0.25, Output: 2.00},
}

// DefaultRates returns a copy of the built-in rate map.
func DefaultRates() map[string]Rate {
	rates := make(map[string]Rate, len(defaultRates))
	for model, rate := range defaultRates {
		rates[model] = rate
	}
	return rates
}

// PricingTable maps model identifiers to rates. Unknown models are priced at the
// fallback model's rate so billing always yields a number.
type PricingTable struct {
	rates         map[string]Rate
	fallback      Rate
	fallbackModel string
}

func NewPricingTable(rates map[string]Rate, fallbackModel string) (*PricingTable, error) {
	fallback, ok := rates[fallbackModel]
	if !ok {
		return nil, fmt.Errorf("fallback model %q has no rate", fallbackModel)
	}

	own := make(map[string]Rate, len(rates))
	for model, rate := range rates {
		own[model] = rate
	}

	return &PricingTable{
		rates:         own,
		fallback:      fallback,
		fallbackModel: fallbackModel,
	}, nil
}

// Rate returns the rate applied to model and whether the model was known.
func (p *PricingTable) Rate(model string) (Rate, bool) {
	if rate, ok := p.rates[model]; ok {
		return rate, true
	}
	return p.fallback, false
}

func (p *PricingTable) FallbackModel() string {
	return p.fallbackModel
}

// Cost returns the USD cost of a completion. Negative token counts are clamped to zero.
func (p *PricingTable) Cost(model string, promptTokens, completionTokens int) float64 {
	rate, _ := p.Rate(model)

	inputCost := float64(max(promptTokens, 0)) / 1_000_000 * rate.Input
	outputCost := float64(max(completionTokens, 0)) / 1_000_000 * rate.Output

	return inputCost + outputCost
}

type rateFile struct {
	Models map[string]Rate `yaml:"models"`
}

// LoadRates reads a YAML rate file of the form
//
//	models:
//	  gpt-4o: {input: 2.5, output: 10}
func LoadRates(path string) (map[string]Rate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file: %w", err)
	}

	var file rateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pricing file: %w", err)
	}

	if len(file.Models) == 0 {
		return nil, fmt.Errorf("pricing file %s defines no models", path)
	}

	for model, rate := range file.Models {
		if rate.Input < 0 || rate.Output < 0 {
			return nil, fmt.Errorf("pricing file: negative rate for %s", model)
		}
	}

	return file.Models, nil
}
