// Package types defines the core data model shared by the verification
// service and its storage and chain collaborators.
package types

import (
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// ReportStatus is the lifecycle state of a crop report.
type ReportStatus string

const (
	StatusPending  ReportStatus = "pending"
	StatusVerified ReportStatus = "verified"
	StatusRejected ReportStatus = "rejected"
)

// Terminal reports never change status again.
func (s ReportStatus) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// VoteDecision is a single voter's verdict on a report.
type VoteDecision string

const (
	VoteApprove VoteDecision = "approve"
	VoteReject  VoteDecision = "reject"
)

func (d VoteDecision) Valid() bool {
	return d == VoteApprove || d == VoteReject
}

// BadgeType identifies a one-time-per-user achievement.
type BadgeType string

const (
	BadgeFirstReport    BadgeType = "first_report"
	BadgeVerified10     BadgeType = "verified_10"
	BadgeTopContributor BadgeType = "top_contributor"
)

// NormalizeWallet strips the whitespace that wallet strings commonly pick up
// in transit. Comparison is done case-insensitively via SameWallet.
func NormalizeWallet(addr string) string {
	return strings.TrimSpace(addr)
}

// SameWallet reports whether two wallet strings identify the same account.
func SameWallet(a, b string) bool {
	return strings.EqualFold(NormalizeWallet(a), NormalizeWallet(b))
}

// ValidWallet checks that addr is a base58 string decoding to a 32-byte
// public key.
func ValidWallet(addr string) bool {
	raw, err := base58.Decode(NormalizeWallet(addr))
	return err == nil && len(raw) == 32
}

// Quantity is a harvested amount with its unit.
type Quantity struct {
	Value float64 `json:"value" db:"quantity_value"`
	Unit  string  `json:"unit" db:"quantity_unit"`
}

// Address is the administrative breakdown of a report location.
type Address struct {
	District string `json:"district"`
	Province string `json:"province"`
	Village  string `json:"village,omitempty"`
}

// Location is a geographic point plus its address breakdown.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   Address `json:"address"`
}

// ImageRef is a content-addressed reference to an uploaded report image.
type ImageRef struct {
	CID        string    `json:"cid"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Validate checks the reference parses as a CID.
func (r ImageRef) Validate() error {
	_, err := cid.Decode(r.CID)
	return err
}

// AgronomyMetadata carries the optional agronomy fields of a submission.
type AgronomyMetadata struct {
	SoilType    string     `json:"soilType,omitempty"`
	Irrigation  string     `json:"irrigation,omitempty"`
	HarvestDate *time.Time `json:"harvestDate,omitempty"`
	MarketPrice *float64   `json:"marketPrice,omitempty"`
}

// VoterEntry records one wallet's decision inside a report.
type VoterEntry struct {
	Wallet   string       `json:"wallet"`
	Decision VoteDecision `json:"decision"`
	VotedAt  time.Time    `json:"votedAt"`
}

// Tally is the running approve/reject count on a report.
type Tally struct {
	Approve int `json:"approve" db:"approve_votes"`
	Reject  int `json:"reject" db:"reject_votes"`
}

// Report is a farmer-submitted harvest record moving through community
// verification. Mutated only by the verification service (votes, status)
// and the settlement pass (receipt fields).
type Report struct {
	ID      string `json:"id" db:"id"`
	ShortID string `json:"reportId" db:"short_id"`
	Owner   string `json:"farmerWallet" db:"owner_wallet"`

	CropType string           `json:"cropType" db:"crop_type"`
	Quantity Quantity         `json:"quantity"`
	Location Location         `json:"location"`
	Images   []ImageRef       `json:"images,omitempty"`
	Metadata AgronomyMetadata `json:"metadata"`

	Status ReportStatus `json:"status" db:"status"`
	Tally  Tally        `json:"votes"`
	Voters []VoterEntry `json:"voters,omitempty"`

	VerifiedBy      string `json:"verifiedBy,omitempty" db:"verified_by"`
	RejectionReason string `json:"rejectionReason,omitempty" db:"rejection_reason"`

	// Settlement receipt fields, empty until the corresponding external
	// operation succeeds.
	MintTxSignature   string          `json:"mintTxSignature,omitempty" db:"mint_tx_signature"`
	TreeAddress       string          `json:"treeAddress,omitempty" db:"tree_address"`
	RewardTxSignature string          `json:"rewardTxSignature,omitempty" db:"reward_tx_signature"`
	RewardAmount      decimal.Decimal `json:"rewardAmount" db:"reward_amount"`

	// Version guards optimistic-concurrency updates; bumped on every write.
	Version   uint64    `json:"-" db:"version"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// HasVoted reports whether wallet already appears in the voter set.
func (r *Report) HasVoted(wallet string) bool {
	for _, v := range r.Voters {
		if SameWallet(v.Wallet, wallet) {
			return true
		}
	}
	return false
}

// Region renders the "district, province" label used in mint metadata.
func (r *Report) Region() string {
	parts := make([]string, 0, 2)
	if r.Location.Address.District != "" {
		parts = append(parts, r.Location.Address.District)
	}
	if r.Location.Address.Province != "" {
		parts = append(parts, r.Location.Address.Province)
	}
	return strings.Join(parts, ", ")
}

// Vote is one immutable ledger entry; (ReportID, VoterWallet) is unique.
type Vote struct {
	ReportID    string       `json:"reportId" db:"report_id"`
	VoterWallet string       `json:"voterWallet" db:"voter_wallet"`
	Decision    VoteDecision `json:"decision" db:"decision"`
	Comment     string       `json:"comment,omitempty" db:"comment"`
	TxSignature string       `json:"txSignature,omitempty" db:"tx_signature"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
}

// Badge is a one-time achievement on a user profile. MintRef stays empty
// when the external badge mint failed; presence of the badge does not
// depend on it.
type Badge struct {
	Type     BadgeType `json:"type"`
	EarnedAt time.Time `json:"earnedAt"`
	MintRef  string    `json:"cnftMint,omitempty"`
}

// User is a lazily-created per-wallet profile with aggregate counters.
type User struct {
	WalletAddress   string          `json:"walletAddress" db:"wallet_address"`
	Username        string          `json:"username" db:"username"`
	TotalReports    int             `json:"totalReports" db:"total_reports"`
	VerifiedReports int             `json:"verifiedReports" db:"verified_reports"`
	TotalEarned     decimal.Decimal `json:"totalEarned" db:"total_earned"`
	ReputationScore int             `json:"reputationScore" db:"reputation_score"`
	Badges          []Badge         `json:"badges,omitempty"`
	JoinedAt        time.Time       `json:"joinedAt" db:"joined_at"`
	LastActive      time.Time       `json:"lastActive" db:"last_active"`
}

// HasBadge reports whether the user already holds a badge of type t.
func (u *User) HasBadge(t BadgeType) bool {
	for _, b := range u.Badges {
		if b.Type == t {
			return true
		}
	}
	return false
}

// RecalculateReputation recomputes the verified/total percentage score.
func (u *User) RecalculateReputation() int {
	if u.TotalReports == 0 {
		u.ReputationScore = 0
		return 0
	}
	ratio := float64(u.VerifiedReports) / float64(u.TotalReports) * 100
	u.ReputationScore = int(ratio + 0.5)
	return u.ReputationScore
}

// DefaultUsername derives the placeholder profile name from a wallet.
func DefaultUsername(wallet string) string {
	w := NormalizeWallet(wallet)
	if len(w) > 6 {
		w = w[:6]
	}
	return "Farmer_" + w
}

// TxType classifies an on-chain transaction captured in history.
type TxType string

const (
	TxMintCNFT TxType = "mint_cnft"
	TxReward   TxType = "reward"
	TxVote     TxType = "vote"
	TxBadge    TxType = "badge"
	TxUnknown  TxType = "unknown"
)

// TxStatus is the confirmation state of a captured transaction.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// Transaction is an ingested on-chain transaction keyed by its signature.
// Webhook redelivery makes writes idempotent upserts on Signature.
type Transaction struct {
	Signature   string          `json:"txSignature" db:"tx_signature"`
	Type        TxType          `json:"type" db:"tx_type"`
	FromWallet  string          `json:"fromWallet,omitempty" db:"from_wallet"`
	ToWallet    string          `json:"toWallet" db:"to_wallet"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	ReportID    string          `json:"reportId,omitempty" db:"report_id"`
	Description string          `json:"description,omitempty" db:"description"`
	Status      TxStatus        `json:"status" db:"status"`
	BlockTime   time.Time       `json:"blockTime" db:"block_time"`
	Slot        uint64          `json:"slot,omitempty" db:"slot"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// VoteResult is what the vote operation returns to the caller; settlement
// side effects complete independently.
type VoteResult struct {
	ReportID string       `json:"reportId"`
	ShortID  string       `json:"shortId"`
	Status   ReportStatus `json:"status"`
	Tally    Tally        `json:"votes"`
}
