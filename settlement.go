package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lingaraj-Patil/farm-yield/store"
	"github.com/Lingaraj-Patil/farm-yield/store/metrics"
	"github.com/Lingaraj-Patil/farm-yield/types"
)

func (sv *Service) runJob(ctx context.Context, job settlementJob) {
	defer metrics.ReportAndUpdateDuration("settlement job finished", time.Now(), sv.logger, metrics.VerifierMetrics.SettlementTimer)
	switch job.kind {
	case jobSettleVerified:
		sv.settleVerified(ctx, job.reportID)
	case jobMintReport:
		sv.mintReport(ctx, job.reportID)
	case jobMintBadge:
		sv.mintBadge(ctx, job.wallet, job.badge)
	default:
		sv.logger.Error("unknown settlement job kind", "kind", job.kind)
	}
}

// settleVerified runs the settlement pass for a verified report: reward
// transfer, report NFT mint, receipt write-back. Each step is independently
// guarded on its recorded signature so redelivery stays at-most-once.
func (sv *Service) settleVerified(ctx context.Context, reportID string) {
	report, err := sv.store.GetReport(ctx, reportID)
	if err != nil {
		sv.logger.Error("settlement could not load report", "report", reportID, "error", err)
		return
	}
	if report.Status != types.StatusVerified {
		sv.logger.Warn("settlement skipped, report not verified", "report", report.ShortID, "status", report.Status)
		return
	}

	if report.RewardTxSignature == "" {
		receipt, err := sv.payer.SendReward(ctx, report.Owner, sv.params.RewardAmount,
			fmt.Sprintf("Harvest report %s verified", report.ShortID))
		if err != nil {
			metrics.VerifierMetrics.RewardFailuresCounter.Inc()
			sv.logger.Error("reward transfer failed", "report", report.ShortID, "owner", report.Owner, "error", err)
		} else {
			report.RewardTxSignature = receipt.Signature
			report.RewardAmount = receipt.Amount
			sv.logger.Info("reward sent", "report", report.ShortID, "owner", report.Owner,
				"amount", receipt.Amount, "signature", receipt.Signature)
			sv.recordSettlementTx(ctx, &types.Transaction{
				Signature:   receipt.Signature,
				Type:        types.TxReward,
				ToWallet:    report.Owner,
				Amount:      receipt.Amount,
				ReportID:    report.ID,
				Description: fmt.Sprintf("Verification reward for report %s", report.ShortID),
				Status:      types.TxConfirmed,
			})
			if err := sv.creditReward(ctx, report.Owner, receipt.Amount); err != nil {
				sv.logger.Error("failed to credit reward to profile", "owner", report.Owner, "error", err)
			}
		}
	}

	if report.MintTxSignature == "" {
		receipt, err := sv.minter.MintReportNFT(ctx, report.Owner, sv.metadataURI(report))
		if err != nil {
			metrics.VerifierMetrics.MintFailuresCounter.Inc()
			sv.logger.Error("report NFT mint failed", "report", report.ShortID, "error", err)
		} else {
			report.MintTxSignature = receipt.Signature
			report.TreeAddress = receipt.TreeAddress
			sv.recordSettlementTx(ctx, &types.Transaction{
				Signature:   receipt.Signature,
				Type:        types.TxMintCNFT,
				ToWallet:    report.Owner,
				ReportID:    report.ID,
				Description: fmt.Sprintf("Minted NFT for report %s", report.ShortID),
				Status:      types.TxConfirmed,
			})
		}
	}

	if err := sv.writeReceipts(ctx, report); err != nil {
		sv.logger.Error("failed to persist settlement receipts", "report", report.ShortID, "error", err)
	}
}

// mintReport mints the report NFT at submission time, guarded on the
// recorded mint signature.
func (sv *Service) mintReport(ctx context.Context, reportID string) {
	report, err := sv.store.GetReport(ctx, reportID)
	if err != nil {
		sv.logger.Error("mint could not load report", "report", reportID, "error", err)
		return
	}
	if report.MintTxSignature != "" {
		return
	}
	receipt, err := sv.minter.MintReportNFT(ctx, report.Owner, sv.metadataURI(report))
	if err != nil {
		metrics.VerifierMetrics.MintFailuresCounter.Inc()
		sv.logger.Error("report NFT mint failed", "report", report.ShortID, "error", err)
		return
	}
	report.MintTxSignature = receipt.Signature
	report.TreeAddress = receipt.TreeAddress
	sv.recordSettlementTx(ctx, &types.Transaction{
		Signature:   receipt.Signature,
		Type:        types.TxMintCNFT,
		ToWallet:    report.Owner,
		ReportID:    report.ID,
		Description: fmt.Sprintf("Minted NFT for report %s", report.ShortID),
		Status:      types.TxConfirmed,
	})
	if err := sv.writeReceipts(ctx, report); err != nil {
		sv.logger.Error("failed to persist mint receipt", "report", report.ShortID, "error", err)
	}
}

// mintBadge mints an achievement badge NFT and records the mint reference on
// the profile. The badge itself was already awarded; a failed mint leaves
// MintRef empty.
func (sv *Service) mintBadge(ctx context.Context, wallet string, badge types.BadgeType) {
	receipt, err := sv.badges.MintBadge(ctx, wallet, badge)
	if err != nil {
		metrics.VerifierMetrics.MintFailuresCounter.Inc()
		sv.logger.Error("badge mint failed", "wallet", wallet, "badge", badge, "error", err)
		return
	}
	sv.recordSettlementTx(ctx, &types.Transaction{
		Signature:   receipt.Signature,
		Type:        types.TxBadge,
		ToWallet:    wallet,
		Description: fmt.Sprintf("Minted %s badge", badge),
		Status:      types.TxConfirmed,
	})

	if _, err := sv.store.MutateUser(ctx, wallet, func(user *types.User) error {
		for i := range user.Badges {
			if user.Badges[i].Type == badge {
				user.Badges[i].MintRef = receipt.Signature
				break
			}
		}
		return nil
	}); err != nil {
		sv.logger.Error("failed to record badge mint reference", "wallet", wallet, "badge", badge, "error", err)
	}
}

// writeReceipts persists the receipt fields, re-reading and re-applying them
// when a vote landed on the report concurrently.
func (sv *Service) writeReceipts(ctx context.Context, report *types.Report) error {
	mintSig, tree := report.MintTxSignature, report.TreeAddress
	rewardSig, rewardAmount := report.RewardTxSignature, report.RewardAmount

	var err error
	for attempt := 0; attempt < sv.maxRetry; attempt++ {
		err = sv.store.UpdateReport(ctx, report)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
		metrics.VerifierMetrics.ConflictRetriesCounter.Inc()
		report, err = sv.store.GetReport(ctx, report.ID)
		if err != nil {
			return err
		}
		if mintSig != "" {
			report.MintTxSignature = mintSig
			report.TreeAddress = tree
		}
		if rewardSig != "" {
			report.RewardTxSignature = rewardSig
			report.RewardAmount = rewardAmount
		}
	}
	return err
}

func (sv *Service) recordSettlementTx(ctx context.Context, tx *types.Transaction) {
	if err := sv.store.RecordOrUpdateTransaction(ctx, tx); err != nil {
		sv.logger.Error("failed to record settlement transaction", "signature", tx.Signature, "error", err)
	}
}

// metadataURI builds the URL the minter dereferences for the report's
// metadata document.
func (sv *Service) metadataURI(report *types.Report) string {
	return fmt.Sprintf("%s/api/reports/%s/metadata", sv.metadataBaseURL, report.ShortID)
}
