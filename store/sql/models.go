package sql

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Lingaraj-Patil/farm-yield/types"
)

// reportRow is the flat scan target for harvest.reports; jsonb columns come
// back as raw bytes and numerics as text so both drivers scan identically.
type reportRow struct {
	ID                string    `db:"id"`
	ShortID           string    `db:"short_id"`
	OwnerWallet       string    `db:"owner_wallet"`
	CropType          string    `db:"crop_type"`
	QuantityValue     float64   `db:"quantity_value"`
	QuantityUnit      string    `db:"quantity_unit"`
	Latitude          float64   `db:"latitude"`
	Longitude         float64   `db:"longitude"`
	District          string    `db:"district"`
	Province          string    `db:"province"`
	Village           string    `db:"village"`
	Images            []byte    `db:"images"`
	Metadata          []byte    `db:"metadata"`
	Status            string    `db:"status"`
	ApproveVotes      int       `db:"approve_votes"`
	RejectVotes       int       `db:"reject_votes"`
	Voters            []byte    `db:"voters"`
	VerifiedBy        string    `db:"verified_by"`
	RejectionReason   string    `db:"rejection_reason"`
	MintTxSignature   string    `db:"mint_tx_signature"`
	TreeAddress       string    `db:"tree_address"`
	RewardTxSignature string    `db:"reward_tx_signature"`
	RewardAmount      string    `db:"reward_amount"`
	Version           uint64    `db:"version"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (r *reportRow) toReport() (*types.Report, error) {
	report := &types.Report{
		ID:      r.ID,
		ShortID: r.ShortID,
		Owner:   r.OwnerWallet,

		CropType: r.CropType,
		Quantity: types.Quantity{Value: r.QuantityValue, Unit: r.QuantityUnit},
		Location: types.Location{
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Address: types.Address{
				District: r.District,
				Province: r.Province,
				Village:  r.Village,
			},
		},

		Status: types.ReportStatus(r.Status),
		Tally:  types.Tally{Approve: r.ApproveVotes, Reject: r.RejectVotes},

		VerifiedBy:        r.VerifiedBy,
		RejectionReason:   r.RejectionReason,
		MintTxSignature:   r.MintTxSignature,
		TreeAddress:       r.TreeAddress,
		RewardTxSignature: r.RewardTxSignature,

		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.Images) > 0 {
		if err := json.Unmarshal(r.Images, &report.Images); err != nil {
			return nil, fmt.Errorf("decoding report images: %w", err)
		}
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &report.Metadata); err != nil {
			return nil, fmt.Errorf("decoding report metadata: %w", err)
		}
	}
	if len(r.Voters) > 0 {
		if err := json.Unmarshal(r.Voters, &report.Voters); err != nil {
			return nil, fmt.Errorf("decoding report voters: %w", err)
		}
	}
	if r.RewardAmount != "" {
		amount, err := decimal.NewFromString(r.RewardAmount)
		if err != nil {
			return nil, fmt.Errorf("decoding reward amount: %w", err)
		}
		report.RewardAmount = amount
	}
	return report, nil
}

// userRow is the flat scan target for harvest.users.
type userRow struct {
	WalletAddress   string    `db:"wallet_address"`
	Username        string    `db:"username"`
	TotalReports    int       `db:"total_reports"`
	VerifiedReports int       `db:"verified_reports"`
	TotalEarned     string    `db:"total_earned"`
	ReputationScore int       `db:"reputation_score"`
	Badges          []byte    `db:"badges"`
	JoinedAt        time.Time `db:"joined_at"`
	LastActive      time.Time `db:"last_active"`
}

func (r *userRow) toUser() (*types.User, error) {
	user := &types.User{
		WalletAddress:   r.WalletAddress,
		Username:        r.Username,
		TotalReports:    r.TotalReports,
		VerifiedReports: r.VerifiedReports,
		ReputationScore: r.ReputationScore,
		JoinedAt:        r.JoinedAt,
		LastActive:      r.LastActive,
	}
	if len(r.Badges) > 0 {
		if err := json.Unmarshal(r.Badges, &user.Badges); err != nil {
			return nil, fmt.Errorf("decoding user badges: %w", err)
		}
	}
	if r.TotalEarned != "" {
		earned, err := decimal.NewFromString(r.TotalEarned)
		if err != nil {
			return nil, fmt.Errorf("decoding user earnings: %w", err)
		}
		user.TotalEarned = earned
	}
	return user, nil
}

// voteRow is the flat scan target for harvest.votes.
type voteRow struct {
	ReportID    string    `db:"report_id"`
	VoterWallet string    `db:"voter_wallet"`
	Decision    string    `db:"decision"`
	Comment     string    `db:"comment"`
	TxSignature string    `db:"tx_signature"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *voteRow) toVote() *types.Vote {
	return &types.Vote{
		ReportID:    r.ReportID,
		VoterWallet: r.VoterWallet,
		Decision:    types.VoteDecision(r.Decision),
		Comment:     r.Comment,
		TxSignature: r.TxSignature,
		CreatedAt:   r.CreatedAt,
	}
}

// transactionRow is the flat scan target for harvest.transactions.
type transactionRow struct {
	TxSignature string    `db:"tx_signature"`
	TxType      string    `db:"tx_type"`
	FromWallet  string    `db:"from_wallet"`
	ToWallet    string    `db:"to_wallet"`
	Amount      string    `db:"amount"`
	ReportID    string    `db:"report_id"`
	Description string    `db:"description"`
	Status      string    `db:"status"`
	BlockTime   time.Time `db:"block_time"`
	Slot        uint64    `db:"slot"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *transactionRow) toTransaction() (*types.Transaction, error) {
	tx := &types.Transaction{
		Signature:   r.TxSignature,
		Type:        types.TxType(r.TxType),
		FromWallet:  r.FromWallet,
		ToWallet:    r.ToWallet,
		ReportID:    r.ReportID,
		Description: r.Description,
		Status:      types.TxStatus(r.Status),
		BlockTime:   r.BlockTime,
		Slot:        r.Slot,
		CreatedAt:   r.CreatedAt,
	}
	if r.Amount != "" {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("decoding transaction amount: %w", err)
		}
		tx.Amount = amount
	}
	return tx, nil
}
