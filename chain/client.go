package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Lingaraj-Patil/farm-yield/types"
	"github.com/Lingaraj-Patil/farm-yield/utils/log"
)

const defaultRequestTimeout = 30 * time.Second

// ClientConfig holds params for the settlement RPC endpoint.
type ClientConfig struct {
	Endpoint  string
	AuthToken string
	Timeout   time.Duration
}

var _ Payer = &Client{}
var _ Minter = &Client{}
var _ BadgeMinter = &Client{}

// Client satisfies Payer, Minter and BadgeMinter against a JSON RPC service
// that holds the treasury keypair and merkle tree. Every call is bounded by
// the configured timeout on top of the caller's context.
type Client struct {
	endpoint  string
	authToken string
	timeout   time.Duration
	http      *http.Client
	logger    log.Logger
}

func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		endpoint:  config.Endpoint,
		authToken: config.AuthToken,
		timeout:   timeout,
		http:      &http.Client{Timeout: timeout},
		logger:    log.DefaultLogger.New("module", "chain"),
	}
}

type rewardRequest struct {
	ToWallet string `json:"toWallet"`
	Amount   string `json:"amount"`
	Memo     string `json:"memo,omitempty"`
}

type mintRequest struct {
	OwnerWallet string `json:"ownerWallet"`
	MetadataURI string `json:"metadataUri"`
}

type badgeRequest struct {
	OwnerWallet string `json:"ownerWallet"`
	Badge       string `json:"badge"`
}

// SendReward satisfies Payer.
func (c *Client) SendReward(ctx context.Context, toWallet string, amount decimal.Decimal, memo string) (RewardReceipt, error) {
	var receipt RewardReceipt
	err := c.post(ctx, "/v1/reward", rewardRequest{
		ToWallet: toWallet,
		Amount:   amount.String(),
		Memo:     memo,
	}, &receipt)
	if err != nil {
		return RewardReceipt{}, err
	}
	if receipt.Amount.IsZero() {
		receipt.Amount = amount
	}
	return receipt, nil
}

// MintReportNFT satisfies Minter.
func (c *Client) MintReportNFT(ctx context.Context, ownerWallet, metadataURI string) (MintReceipt, error) {
	var receipt MintReceipt
	err := c.post(ctx, "/v1/mint", mintRequest{
		OwnerWallet: ownerWallet,
		MetadataURI: metadataURI,
	}, &receipt)
	if err != nil {
		return MintReceipt{}, err
	}
	return receipt, nil
}

// MintBadge satisfies BadgeMinter.
func (c *Client) MintBadge(ctx context.Context, ownerWallet string, badge types.BadgeType) (MintReceipt, error) {
	var receipt MintReceipt
	err := c.post(ctx, "/v1/badge", badgeRequest{
		OwnerWallet: ownerWallet,
		Badge:       string(badge),
	}, &receipt)
	if err != nil {
		return MintReceipt{}, err
	}
	return receipt, nil
}

func (c *Client) post(ctx context.Context, path string, payload, result interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("settlement rpc %s: %w", path, err)
	}
	defer resp.Body.Close()
	c.logger.Trace("settlement rpc call", "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("settlement rpc %s: status %d: %s", path, resp.StatusCode, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
