// Package chain defines the settlement collaborators: reward payment, report
// NFT minting and badge minting. The service depends on the interfaces only;
// wallet cryptography and transaction construction live behind the RPC
// endpoint the Client talks to.
package chain

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Lingaraj-Patil/farm-yield/types"
)

// RewardReceipt is the confirmation of a reward transfer.
type RewardReceipt struct {
	Signature string          `json:"txSignature"`
	Amount    decimal.Decimal `json:"amount"`
}

// MintReceipt is the confirmation of a compressed-NFT mint.
type MintReceipt struct {
	Signature   string `json:"txSignature"`
	TreeAddress string `json:"treeAddress"`
	AssetID     string `json:"assetId,omitempty"`
}

// Payer transfers the verification reward to a wallet.
type Payer interface {
	SendReward(ctx context.Context, toWallet string, amount decimal.Decimal, memo string) (RewardReceipt, error)
}

// Minter mints the report NFT; metadataURI must dereference to the report's
// metadata document.
type Minter interface {
	MintReportNFT(ctx context.Context, ownerWallet, metadataURI string) (MintReceipt, error)
}

// BadgeMinter mints an achievement badge NFT.
type BadgeMinter interface {
	MintBadge(ctx context.Context, ownerWallet string, badge types.BadgeType) (MintReceipt, error)
}
