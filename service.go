// Package harvest implements the community crop-report verification and
// reward service: report submission, one-vote-per-wallet verification with
// configurable thresholds, and asynchronous settlement of rewards, report
// NFTs and achievement badges.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Lingaraj-Patil/farm-yield/chain"
	"github.com/Lingaraj-Patil/farm-yield/store"
	"github.com/Lingaraj-Patil/farm-yield/store/metrics"
	"github.com/Lingaraj-Patil/farm-yield/types"
	"github.com/Lingaraj-Patil/farm-yield/utils/log"
)

const (
	defaultRetryLimit   = 3 // retry limit once a concurrent report update is detected.
	defaultNumWorkers   = 4
	defaultJobQueueSize = 256

	rejectionReason = "Community rejected"

	maxReportImages = 5

	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

type jobKind int

const (
	jobSettleVerified jobKind = iota
	jobMintReport
	jobMintBadge
)

// settlementJob is one fire-and-forget unit handed to the worker pool.
type settlementJob struct {
	kind     jobKind
	reportID string
	wallet   string
	badge    types.BadgeType
}

// Service is the verification service
type Service struct {
	store  store.Store
	payer  chain.Payer
	minter chain.Minter
	badges chain.BadgeMinter

	params          VerificationParams
	metadataBaseURL string
	// Number of retry for report updates aborted by concurrent writers.
	maxRetry   int
	numWorkers uint

	jobs chan settlementJob
	// Used to signal shutdown of the service
	QuitChan chan bool
	group    *errgroup.Group
	ctx      context.Context

	logger log.Logger
}

// NewService creates a verification service from the given collaborators.
func NewService(cfg Config, st store.Store, payer chain.Payer, minter chain.Minter, badges chain.BadgeMinter) *Service {
	cfg = cfg.normalize()
	return &Service{
		store:           st,
		payer:           payer,
		minter:          minter,
		badges:          badges,
		params:          cfg.Params,
		metadataBaseURL: strings.TrimRight(cfg.MetadataBaseURL, "/"),
		maxRetry:        defaultRetryLimit,
		numWorkers:      cfg.NumWorkers,
		jobs:            make(chan settlementJob, cfg.JobQueueSize),
		QuitChan:        make(chan bool),
		ctx:             cfg.Context,
		logger:          log.New("module", "harvest"),
	}
}

// Start is used to begin the service
func (sv *Service) Start() error {
	sv.logger.Info("Starting verification service",
		"workers", sv.numWorkers,
		"approveThreshold", sv.params.ApproveThreshold,
		"rejectThreshold", sv.params.RejectThreshold,
		"reward", sv.params.RewardAmount)
	group, ctx := errgroup.WithContext(sv.ctx)
	sv.group = group
	for i := uint(0); i < sv.numWorkers; i++ {
		group.Go(func() error {
			sv.settlementWorker(ctx)
			return nil
		})
	}
	return nil
}

// Stop is used to close down the service
func (sv *Service) Stop() error {
	sv.logger.Info("Stopping verification service")
	close(sv.QuitChan)
	if sv.group != nil {
		_ = sv.group.Wait()
	}
	return sv.store.Close()
}

func (sv *Service) settlementWorker(ctx context.Context) {
	for {
		select {
		case job := <-sv.jobs:
			sv.runJob(ctx, job)
		case <-sv.QuitChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// dispatch queues a settlement job; the caller's operation has already
// succeeded, so a shutdown only drops the async side effects.
func (sv *Service) dispatch(job settlementJob) {
	select {
	case sv.jobs <- job:
		metrics.VerifierMetrics.SettlementJobsCounter.Inc()
	case <-sv.QuitChan:
		sv.logger.Warn("service stopping, dropping settlement job", "report", job.reportID, "kind", job.kind)
	}
}

// SubmitRequest carries a new report submission. Owner is resolved from the
// caller's identity, never from the payload.
type SubmitRequest struct {
	Owner    string                 `json:"-"`
	CropType string                 `json:"cropType"`
	Quantity types.Quantity         `json:"quantity"`
	Location types.Location         `json:"location"`
	Images   []types.ImageRef       `json:"images"`
	Metadata types.AgronomyMetadata `json:"metadata"`
}

// SubmitReport validates and persists a new pending report, bumps the
// owner's submission stats, and queues the report NFT mint.
func (sv *Service) SubmitReport(ctx context.Context, req SubmitRequest) (*types.Report, error) {
	owner := types.NormalizeWallet(req.Owner)
	switch {
	case !types.ValidWallet(owner):
		return nil, fmt.Errorf("%w: invalid owner wallet", types.ErrInvalidInput)
	case req.CropType == "":
		return nil, fmt.Errorf("%w: missing crop type", types.ErrInvalidInput)
	case req.Quantity.Value <= 0:
		return nil, fmt.Errorf("%w: quantity must be positive", types.ErrInvalidInput)
	case req.Location.Latitude == 0 && req.Location.Longitude == 0:
		return nil, fmt.Errorf("%w: missing location coordinates", types.ErrInvalidInput)
	case len(req.Images) > maxReportImages:
		return nil, fmt.Errorf("%w: at most %d images", types.ErrInvalidInput, maxReportImages)
	}
	for _, img := range req.Images {
		if err := img.Validate(); err != nil {
			return nil, fmt.Errorf("%w: bad image reference %s: %v", types.ErrInvalidInput, img.CID, err)
		}
	}
	if req.Quantity.Unit == "" {
		req.Quantity.Unit = "kg"
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	report := &types.Report{
		ID:        id,
		ShortID:   "RPT-" + strings.ToUpper(strings.ReplaceAll(id, "-", "")[:8]),
		Owner:     owner,
		CropType:  req.CropType,
		Quantity:  req.Quantity,
		Location:  req.Location,
		Images:    req.Images,
		Metadata:  req.Metadata,
		Status:    types.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := sv.store.CreateReport(ctx, report); err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidInput, err)
		}
		return nil, err
	}
	sv.logger.Debug("report submitted", "report", report.ShortID, "owner", owner, "crop", req.CropType)

	awarded, err := sv.onReportSubmitted(ctx, owner)
	if err != nil {
		sv.logger.Error("failed to update submitter stats", "owner", owner, "error", err)
	}
	for _, badge := range awarded {
		sv.dispatch(settlementJob{kind: jobMintBadge, wallet: owner, badge: badge})
	}
	sv.dispatch(settlementJob{kind: jobMintReport, reportID: report.ID})
	return report, nil
}

// ApplyVote records one wallet's decision on a pending report and evaluates
// the verification thresholds. The returned result reflects the committed
// state; settlement side effects complete asynchronously.
func (sv *Service) ApplyVote(ctx context.Context, reportID, voter string, decision types.VoteDecision, comment, txSignature string) (*types.VoteResult, error) {
	defer metrics.ReportAndUpdateDuration("applied vote", time.Now(), sv.logger, metrics.VerifierMetrics.ApplyVoteTimer)

	if !decision.Valid() {
		return nil, fmt.Errorf("%w: unknown decision %q", types.ErrInvalidInput, decision)
	}
	voter = types.NormalizeWallet(voter)
	if voter == "" {
		return nil, fmt.Errorf("%w: missing voter wallet", types.ErrInvalidInput)
	}

	for attempt := 0; attempt < sv.maxRetry; attempt++ {
		report, err := sv.store.GetReport(ctx, reportID)
		if err != nil {
			return nil, err
		}
		// Lifecycle failures still return the committed state so the caller
		// can refresh its view of the report.
		if report.Status.Terminal() {
			return voteState(report), fmt.Errorf("%w: report %s is %s", types.ErrAlreadyFinalized, report.ShortID, report.Status)
		}
		if types.SameWallet(report.Owner, voter) {
			return nil, fmt.Errorf("%w: %s owns report %s", types.ErrSelfVote, voter, report.ShortID)
		}
		if report.HasVoted(voter) {
			return voteState(report), fmt.Errorf("%w: %s already voted on %s", types.ErrAlreadyVoted, voter, report.ShortID)
		}
		committed := voteState(report)

		now := time.Now().UTC()
		report.Voters = append(report.Voters, types.VoterEntry{Wallet: voter, Decision: decision, VotedAt: now})
		if decision == types.VoteApprove {
			report.Tally.Approve++
		} else {
			report.Tally.Reject++
		}

		// Approve is evaluated first; reject only applies while the report
		// is still pending.
		verified := false
		if report.Tally.Approve >= sv.params.ApproveThreshold {
			report.Status = types.StatusVerified
			report.VerifiedBy = voter
			verified = true
		} else if report.Tally.Reject >= sv.params.RejectThreshold {
			report.Status = types.StatusRejected
			report.RejectionReason = rejectionReason
		}

		vote := &types.Vote{
			ReportID:    report.ID,
			VoterWallet: voter,
			Decision:    decision,
			Comment:     comment,
			TxSignature: txSignature,
			CreatedAt:   now,
		}
		err = sv.store.ApplyVote(ctx, report, vote)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrDuplicateVote):
			metrics.VerifierMetrics.DuplicateVotesCounter.Inc()
			return committed, fmt.Errorf("%w: %s already voted on %s", types.ErrAlreadyVoted, voter, report.ShortID)
		case errors.Is(err, store.ErrConflict):
			metrics.VerifierMetrics.ConflictRetriesCounter.Inc()
			sv.logger.Debug("vote lost a concurrent report update, retrying",
				"report", report.ID, "attempt", attempt+1)
			continue
		default:
			return nil, err
		}

		metrics.VerifierMetrics.VotesCounter.Inc()
		if txSignature != "" {
			sv.captureVoteTransaction(ctx, report, vote)
		}
		if verified {
			metrics.VerifierMetrics.VerifiedCounter.Inc()
			sv.logger.Info("report verified by community", "report", report.ShortID, "owner", report.Owner)
			if err := sv.onReportVerified(ctx, report.Owner); err != nil {
				sv.logger.Error("failed to update owner verification stats", "owner", report.Owner, "error", err)
			}
			sv.dispatch(settlementJob{kind: jobSettleVerified, reportID: report.ID})
		} else if report.Status == types.StatusRejected {
			metrics.VerifierMetrics.RejectedCounter.Inc()
			sv.logger.Info("report rejected by community", "report", report.ShortID)
		}

		return voteState(report), nil
	}
	return nil, fmt.Errorf("%w: vote on %s gave up after %d attempts", store.ErrConflict, reportID, sv.maxRetry)
}

// voteState snapshots a report's lifecycle state as a vote response.
func voteState(report *types.Report) *types.VoteResult {
	return &types.VoteResult{
		ReportID: report.ID,
		ShortID:  report.ShortID,
		Status:   report.Status,
		Tally:    report.Tally,
	}
}

// captureVoteTransaction upserts the external vote transaction into history;
// it is best-effort and never fails the vote.
func (sv *Service) captureVoteTransaction(ctx context.Context, report *types.Report, vote *types.Vote) {
	tx := &types.Transaction{
		Signature:   vote.TxSignature,
		Type:        types.TxVote,
		FromWallet:  vote.VoterWallet,
		ReportID:    report.ID,
		Description: fmt.Sprintf("Vote %s on report %s", vote.Decision, report.ShortID),
		Status:      types.TxConfirmed,
		CreatedAt:   vote.CreatedAt,
	}
	if err := sv.store.RecordOrUpdateTransaction(ctx, tx); err != nil {
		sv.logger.Error("failed to capture vote transaction", "signature", vote.TxSignature, "error", err)
	}
}

// Report fetches a report by id or short code.
func (sv *Service) Report(ctx context.Context, id string) (*types.Report, error) {
	return sv.store.GetReport(ctx, id)
}

// Reports returns a filtered page of reports plus the total match count.
func (sv *Service) Reports(ctx context.Context, filter store.ReportFilter) ([]*types.Report, int, error) {
	return sv.store.ListReports(ctx, filter)
}

// ReportVotes lists the vote ledger for a report, oldest first.
func (sv *Service) ReportVotes(ctx context.Context, id string) ([]*types.Vote, error) {
	report, err := sv.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return sv.store.VotesFor(ctx, report.ID)
}

// RegionSummary returns the per-region per-crop aggregation for the map view.
func (sv *Service) RegionSummary(ctx context.Context) ([]store.RegionStat, error) {
	return sv.store.AggregatedRegions(ctx)
}

// Profile returns the (lazily created) user profile for wallet.
func (sv *Service) Profile(ctx context.Context, wallet string) (*types.User, error) {
	return sv.store.EnsureUser(ctx, wallet)
}

// Leaderboard returns the top profiles ranked by the requested column.
func (sv *Service) Leaderboard(ctx context.Context, by store.LeaderboardSort, limit int) ([]*types.User, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}
	return sv.store.TopUsers(ctx, by, limit)
}

// WalletTransactions lists captured transactions touching wallet.
func (sv *Service) WalletTransactions(ctx context.Context, wallet string) ([]*types.Transaction, error) {
	return sv.store.UserTransactions(ctx, wallet)
}

// IngestTransaction upserts an externally observed transaction, e.g. from a
// webhook delivery.
func (sv *Service) IngestTransaction(ctx context.Context, tx *types.Transaction) error {
	return sv.store.RecordOrUpdateTransaction(ctx, tx)
}
