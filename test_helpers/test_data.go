// Package test_helpers provides shared fixtures for service and store tests.
package test_helpers

import (
	"time"

	"github.com/google/uuid"

	"github.com/Lingaraj-Patil/farm-yield/types"
)

// Well-known 32-byte base58 addresses, valid wallet strings.
const (
	OwnerWallet = "So11111111111111111111111111111111111111112"
	Voter1      = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Voter2      = "Vote111111111111111111111111111111111111111"
	Voter3      = "Stake11111111111111111111111111111111111111"
	Voter4      = "SysvarRent111111111111111111111111111111111"
	Voter5      = "SysvarC1ock11111111111111111111111111111111"
)

// ImageCID is a valid CIDv0 usable in image references.
const ImageCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

// PendingReport builds a pending report owned by owner.
func PendingReport(owner string) *types.Report {
	id := uuid.New().String()
	now := time.Now().UTC()
	return &types.Report{
		ID:       id,
		ShortID:  "RPT-" + id[:8],
		Owner:    owner,
		CropType: "rice",
		Quantity: types.Quantity{Value: 500, Unit: "kg"},
		Location: types.Location{
			Latitude:  19.076,
			Longitude: 72.8777,
			Address: types.Address{
				District: "Thane",
				Province: "Maharashtra",
				Village:  "Padgha",
			},
		},
		Images: []types.ImageRef{
			{CID: ImageCID, URL: "https://ipfs.io/ipfs/" + ImageCID, UploadedAt: now},
		},
		Status:    types.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
