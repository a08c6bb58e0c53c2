package domain

import "time"

// Operation is a billable operation type.
type Operation string

// Billable operations.
const (
	OperationEmbedding  Operation = "embedding"
	OperationCompletion Operation = "completion"
	OperationImage      Operation = "image_generation"
)

// Usage is the raw usage reported by a provider.
// For images InputUnits counts generated images.
type Usage struct {
	InputUnits  int64
	OutputUnits int64
}

// Total returns input plus output units.
func (u Usage) Total() int64 {
	return u.InputUnits + u.OutputUnits
}

// Add returns the sum of two usages.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputUnits:  u.InputUnits + other.InputUnits,
		OutputUnits: u.OutputUnits + other.OutputUnits,
	}
}

// ModelPrice is the price of one model in USD.
type ModelPrice struct {
	// InputPer1K is charged per thousand input tokens.
	InputPer1K float64

	// OutputPer1K is charged per thousand output tokens.
	OutputPer1K float64

	// PerImage is charged per generated image.
	PerImage float64
}

// CostEntry is one append-only cost ledger line.
type CostEntry struct {
	ID          string            `json:"id"`
	OwnerID     string            `json:"ownerId"`
	Operation   Operation         `json:"operation"`
	InputUnits  int64             `json:"inputUnits"`
	OutputUnits int64             `json:"outputUnits"`
	TotalUnits  int64             `json:"totalUnits"`
	Cost        float64           `json:"cost"`
	Model       string            `json:"model"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// CostSummaryRow aggregates ledger entries for one operation and model.
type CostSummaryRow struct {
	Operation  Operation `json:"operation"`
	Model      string    `json:"model"`
	Entries    int       `json:"entries"`
	TotalUnits int64     `json:"totalUnits"`
	Cost       float64   `json:"cost"`
}
