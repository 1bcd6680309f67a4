package harvest

import (
	"context"

	"github.com/shopspring/decimal"
)

// VerificationParams contains the tunable thresholds of the verification
// state machine.
type VerificationParams struct {
	// Approve votes required to transition a report to verified
	ApproveThreshold int
	// Reject votes required to transition a report to rejected
	RejectThreshold int
	// Reward paid to the report owner on verification, in native token units
	RewardAmount decimal.Decimal
}

// DefaultVerificationParams returns the community defaults.
func DefaultVerificationParams() VerificationParams {
	return VerificationParams{
		ApproveThreshold: 3,
		RejectThreshold:  3,
		RewardAmount:     decimal.NewFromFloat(0.01),
	}
}

// Config contains instantiation parameters for the verification service
type Config struct {
	// Thresholds and reward for the verification state machine
	Params VerificationParams
	// Size of the settlement worker pool
	NumWorkers uint
	// Capacity of the settlement job queue
	JobQueueSize int
	// Base URL used to build the metadata URIs handed to the minter
	MetadataBaseURL string
	// Context used during service initialization
	Context context.Context
}

func (c Config) normalize() Config {
	if c.Params.ApproveThreshold <= 0 {
		c.Params.ApproveThreshold = DefaultVerificationParams().ApproveThreshold
	}
	if c.Params.RejectThreshold <= 0 {
		c.Params.RejectThreshold = DefaultVerificationParams().RejectThreshold
	}
	if c.Params.RewardAmount.LessThanOrEqual(decimal.Zero) {
		c.Params.RewardAmount = DefaultVerificationParams().RewardAmount
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.JobQueueSize <= 0 {
		c.JobQueueSize = defaultJobQueueSize
	}
	if c.Context == nil {
		c.Context = context.Background()
	}
	return c
}
