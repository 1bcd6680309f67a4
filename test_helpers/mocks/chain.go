// Package mocks provides hand-written chain collaborators for service tests.
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Lingaraj-Patil/farm-yield/chain"
	"github.com/Lingaraj-Patil/farm-yield/types"
)

var _ chain.Payer = &Payer{}
var _ chain.Minter = &Minter{}
var _ chain.BadgeMinter = &BadgeMinter{}

// Payer is a mock reward payer recording every transfer.
type Payer struct {
	mu      sync.Mutex
	Err     error
	Rewards []RewardCall
}

type RewardCall struct {
	ToWallet string
	Amount   decimal.Decimal
	Memo     string
}

func (p *Payer) SendReward(_ context.Context, toWallet string, amount decimal.Decimal, memo string) (chain.RewardReceipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return chain.RewardReceipt{}, p.Err
	}
	p.Rewards = append(p.Rewards, RewardCall{ToWallet: toWallet, Amount: amount, Memo: memo})
	return chain.RewardReceipt{
		Signature: fmt.Sprintf("reward-sig-%d", len(p.Rewards)),
		Amount:    amount,
	}, nil
}

// Calls returns a snapshot of the recorded transfers.
func (p *Payer) Calls() []RewardCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]RewardCall(nil), p.Rewards...)
}

// Minter is a mock report NFT minter recording every mint.
type Minter struct {
	mu    sync.Mutex
	Err   error
	Mints []MintCall
}

type MintCall struct {
	OwnerWallet string
	MetadataURI string
}

func (m *Minter) MintReportNFT(_ context.Context, ownerWallet, metadataURI string) (chain.MintReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return chain.MintReceipt{}, m.Err
	}
	m.Mints = append(m.Mints, MintCall{OwnerWallet: ownerWallet, MetadataURI: metadataURI})
	return chain.MintReceipt{
		Signature:   fmt.Sprintf("mint-sig-%d", len(m.Mints)),
		TreeAddress: "tree-address",
	}, nil
}

// Calls returns a snapshot of the recorded mints.
func (m *Minter) Calls() []MintCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MintCall(nil), m.Mints...)
}

// BadgeMinter is a mock badge minter recording every mint.
type BadgeMinter struct {
	mu     sync.Mutex
	Err    error
	Badges []BadgeCall
}

type BadgeCall struct {
	OwnerWallet string
	Badge       types.BadgeType
}

func (b *BadgeMinter) MintBadge(_ context.Context, ownerWallet string, badge types.BadgeType) (chain.MintReceipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return chain.MintReceipt{}, b.Err
	}
	b.Badges = append(b.Badges, BadgeCall{OwnerWallet: ownerWallet, Badge: badge})
	return chain.MintReceipt{
		Signature: fmt.Sprintf("badge-sig-%d", len(b.Badges)),
	}, nil
}

// Calls returns a snapshot of the recorded badge mints.
func (b *BadgeMinter) Calls() []BadgeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]BadgeCall(nil), b.Badges...)
}
