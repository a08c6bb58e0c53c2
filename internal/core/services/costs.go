package services

import (
	"context"
	"fmt"
	"maps"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/postsmith/internal/core/domain"
	"github.com/custodia-labs/postsmith/internal/core/ports/driven"
	"github.com/custodia-labs/postsmith/internal/core/ports/driving"
	"github.com/custodia-labs/postsmith/internal/logger"
)

// Ensure Accountant implements the interface.
var _ driving.CostService = (*Accountant)(nil)

// charsPerToken is the rough ratio used for embedding cost estimates.
const charsPerToken = 4

// DefaultPricing returns the built-in USD price table.
func DefaultPricing() map[string]domain.ModelPrice {
	return map[string]domain.ModelPrice{
		"text-embedding-3-small":   {InputPer1K: 0.00002},
		"text-embedding-3-large":   {InputPer1K: 0.00013},
		"text-embedding-ada-002":   {InputPer1K: 0.0001},
		"gpt-4o":                   {InputPer1K: 0.0025, OutputPer1K: 0.01},
		"gpt-4o-mini":              {InputPer1K: 0.00015, OutputPer1K: 0.0006},
		"claude-3-5-sonnet-latest": {InputPer1K: 0.003, OutputPer1K: 0.015},
		"claude-3-5-haiku-latest":  {InputPer1K: 0.0008, OutputPer1K: 0.004},
		"dall-e-3":                 {PerImage: 0.04},
		"dall-e-2":                 {PerImage: 0.02},
	}
}

// Accountant converts provider usage into money and writes ledger entries.
type Accountant struct {
	ledger driven.CostLedger
	prices map[string]domain.ModelPrice
	now    func() time.Time
}

// NewAccountant creates an accountant. Overrides replace built-in prices per model.
// A nil ledger disables recording; costs are still computed.
func NewAccountant(ledger driven.CostLedger, overrides map[string]domain.ModelPrice) *Accountant {
	prices := DefaultPricing()
	maps.Copy(prices, overrides)
	return &Accountant{
		ledger: ledger,
		prices: prices,
		now:    time.Now,
	}
}

// Price returns the cost of the usage. Unknown models cost nothing.
func (a *Accountant) Price(op domain.Operation, model string, usage domain.Usage) float64 {
	p, ok := a.prices[model]
	if !ok {
		logger.Warn("no price for model %q, recording zero cost", model)
		return 0
	}
	switch op {
	case domain.OperationImage:
		return p.PerImage * float64(usage.InputUnits)
	default:
		return p.InputPer1K*float64(usage.InputUnits)/1000 + p.OutputPer1K*float64(usage.OutputUnits)/1000
	}
}

// Record prices the usage and appends a ledger entry.
// Ledger failures are logged and never fail the caller.
func (a *Accountant) Record(
	ctx context.Context,
	ownerID string,
	op domain.Operation,
	model string,
	usage domain.Usage,
	metadata map[string]string,
) float64 {
	cost := a.Price(op, model, usage)
	if a.ledger == nil {
		return cost
	}

	entry := domain.CostEntry{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Operation:   op,
		InputUnits:  usage.InputUnits,
		OutputUnits: usage.OutputUnits,
		TotalUnits:  usage.Total(),
		Cost:        cost,
		Model:       model,
		Metadata:    metadata,
		Timestamp:   a.now().UTC(),
	}
	if err := a.ledger.Append(ctx, entry); err != nil {
		logger.Warn("cost ledger write failed for %s/%s: %v", op, model, err)
	}
	return cost
}

// EstimateTokens approximates the token count of the texts.
func EstimateTokens(texts []string) int64 {
	var chars int
	for _, t := range texts {
		chars += utf8.RuneCountInString(t)
	}
	return int64((chars + charsPerToken - 1) / charsPerToken)
}

// EstimateEmbedding returns the estimated cost of embedding the texts,
// whether or not the call has been made.
func (a *Accountant) EstimateEmbedding(model string, texts []string) float64 {
	return a.Price(domain.OperationEmbedding, model, domain.Usage{InputUnits: EstimateTokens(texts)})
}

// Summary aggregates an owner's ledger entries since the given time.
func (a *Accountant) Summary(ctx context.Context, ownerID string, since time.Time) ([]domain.CostSummaryRow, error) {
	if a.ledger == nil {
		return nil, nil
	}
	rows, err := a.ledger.Summarise(ctx, ownerID, since)
	if err != nil {
		return nil, fmt.Errorf("summarise costs: %w", err)
	}
	return rows, nil
}
