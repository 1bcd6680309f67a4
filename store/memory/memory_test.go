package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Lingaraj-Patil/farm-yield/store"
	"github.com/Lingaraj-Patil/farm-yield/test_helpers"
	"github.com/Lingaraj-Patil/farm-yield/types"
)

func TestReportCRUD(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	report := test_helpers.PendingReport(test_helpers.OwnerWallet)

	require.NoError(t, s.CreateReport(ctx, report))
	require.ErrorIs(t, s.CreateReport(ctx, report), store.ErrConflict)

	byID, err := s.GetReport(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, report.ID, byID.ID)

	byShort, err := s.GetReport(ctx, report.ShortID)
	require.NoError(t, err)
	require.Equal(t, report.ID, byShort.ID)

	_, err = s.GetReport(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateReportValidation(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	report := test_helpers.PendingReport(test_helpers.OwnerWallet)
	report.Owner = " "
	require.ErrorIs(t, s.CreateReport(ctx, report), store.ErrInvalidInput)

	report = test_helpers.PendingReport(test_helpers.OwnerWallet)
	report.Quantity.Value = 0
	require.ErrorIs(t, s.CreateReport(ctx, report), store.ErrInvalidInput)
}

func TestUpdateReportVersionGuard(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	report := test_helpers.PendingReport(test_helpers.OwnerWallet)
	require.NoError(t, s.CreateReport(ctx, report))

	first, err := s.GetReport(ctx, report.ID)
	require.NoError(t, err)
	second, err := s.GetReport(ctx, report.ID)
	require.NoError(t, err)

	first.Tally.Approve = 1
	require.NoError(t, s.UpdateReport(ctx, first))
	require.Equal(t, uint64(1), first.Version, "successful update bumps the caller's copy")

	second.Tally.Reject = 1
	require.ErrorIs(t, s.UpdateReport(ctx, second), store.ErrConflict)

	stored, err := s.GetReport(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.Tally.Approve)
	require.Zero(t, stored.Tally.Reject)
}

func TestApplyVoteAtomicity(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	report := test_helpers.PendingReport(test_helpers.OwnerWallet)
	require.NoError(t, s.CreateReport(ctx, report))

	loaded, err := s.GetReport(ctx, report.ID)
	require.NoError(t, err)
	loaded.Tally.Approve = 1
	vote := &types.Vote{
		ReportID:    report.ID,
		VoterWallet: test_helpers.Voter1,
		Decision:    types.VoteApprove,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.ApplyVote(ctx, loaded, vote))

	// same voter again: duplicate, report untouched
	dup := *vote
	again, err := s.GetReport(ctx, report.ID)
	require.NoError(t, err)
	again.Tally.Approve = 2
	require.ErrorIs(t, s.ApplyVote(ctx, again, &dup), store.ErrDuplicateVote)

	stored, err := s.GetReport(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.Tally.Approve)

	// stale version: conflict, and the ledger keeps a single entry
	stale, err := s.GetReport(ctx, report.ID)
	require.NoError(t, err)
	stale.Version = 0
	otherVote := &types.Vote{ReportID: report.ID, VoterWallet: test_helpers.Voter2, Decision: types.VoteReject}
	require.ErrorIs(t, s.ApplyVote(ctx, stale, otherVote), store.ErrConflict)

	votes, err := s.VotesFor(ctx, report.ID)
	require.NoError(t, err)
	require.Len(t, votes, 1)
}

func TestListReportsFiltering(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	rice := test_helpers.PendingReport(test_helpers.OwnerWallet)
	require.NoError(t, s.CreateReport(ctx, rice))

	wheat := test_helpers.PendingReport(test_helpers.Voter1)
	wheat.CropType = "wheat"
	wheat.Location.Address.Province = "Punjab"
	wheat.Location.Address.District = "Ludhiana"
	wheat.Status = types.StatusVerified
	require.NoError(t, s.CreateReport(ctx, wheat))

	all, total, err := s.ListReports(ctx, store.ReportFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, all, 2)

	verified, total, err := s.ListReports(ctx, store.ReportFilter{Status: "verified"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, wheat.ID, verified[0].ID)

	byOwner, total, err := s.ListReports(ctx, store.ReportFilter{Owner: test_helpers.OwnerWallet})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, rice.ID, byOwner[0].ID)

	byRegion, _, err := s.ListReports(ctx, store.ReportFilter{Province: "Punjab", District: "Ludhiana"})
	require.NoError(t, err)
	require.Len(t, byRegion, 1)

	paged, total, err := s.ListReports(ctx, store.ReportFilter{Limit: 1, Page: 2})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, paged, 1)

	empty, total, err := s.ListReports(ctx, store.ReportFilter{Limit: 1, Page: 5})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Empty(t, empty)
}

func TestAggregatedRegions(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first := test_helpers.PendingReport(test_helpers.OwnerWallet)
	require.NoError(t, s.CreateReport(ctx, first))

	second := test_helpers.PendingReport(test_helpers.Voter1)
	second.Status = types.StatusVerified
	second.Quantity.Value = 250
	require.NoError(t, s.CreateReport(ctx, second))

	other := test_helpers.PendingReport(test_helpers.Voter2)
	other.CropType = "wheat"
	require.NoError(t, s.CreateReport(ctx, other))

	stats, err := s.AggregatedRegions(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	byCrop := map[string]store.RegionStat{}
	for _, stat := range stats {
		byCrop[stat.CropType] = stat
	}
	rice := byCrop["rice"]
	require.Equal(t, 2, rice.Reports)
	require.Equal(t, 1, rice.VerifiedReports)
	require.Equal(t, 750.0, rice.TotalQuantity)
	require.Equal(t, "Maharashtra", rice.Province)
}

func TestUserLifecycle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.GetUser(ctx, test_helpers.OwnerWallet)
	require.ErrorIs(t, err, store.ErrNotFound)

	user, err := s.EnsureUser(ctx, test_helpers.OwnerWallet)
	require.NoError(t, err)
	require.Equal(t, types.DefaultUsername(test_helpers.OwnerWallet), user.Username)

	again, err := s.EnsureUser(ctx, test_helpers.OwnerWallet)
	require.NoError(t, err)
	require.Equal(t, user.JoinedAt, again.JoinedAt, "ensure is idempotent")

	updated, err := s.MutateUser(ctx, test_helpers.OwnerWallet, func(u *types.User) error {
		u.TotalReports = 3
		u.TotalEarned = decimal.NewFromFloat(0.03)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, updated.TotalReports)

	stored, err := s.GetUser(ctx, test_helpers.OwnerWallet)
	require.NoError(t, err)
	require.Equal(t, 3, stored.TotalReports)
	require.True(t, stored.TotalEarned.Equal(decimal.NewFromFloat(0.03)))

	_, err = s.EnsureUser(ctx, "")
	require.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestMutateUserConcurrentIncrements(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	const writers = 32
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.MutateUser(ctx, test_helpers.OwnerWallet, func(u *types.User) error {
				u.VerifiedReports++
				return nil
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	user, err := s.GetUser(ctx, test_helpers.OwnerWallet)
	require.NoError(t, err)
	require.Equal(t, writers, user.VerifiedReports, "concurrent mutations never lose an increment")
}

func TestTopUsers(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	seed := func(wallet string, total, verified, score int, earned float64) {
		_, err := s.MutateUser(ctx, wallet, func(u *types.User) error {
			u.TotalReports = total
			u.VerifiedReports = verified
			u.ReputationScore = score
			u.TotalEarned = decimal.NewFromFloat(earned)
			return nil
		})
		require.NoError(t, err)
	}
	seed(test_helpers.OwnerWallet, 4, 1, 25, 0.01)
	seed(test_helpers.Voter1, 10, 9, 90, 0.09)
	seed(test_helpers.Voter2, 20, 10, 50, 0.10)

	byReputation, err := s.TopUsers(ctx, store.SortByReputation, 10)
	require.NoError(t, err)
	require.Len(t, byReputation, 3)
	require.Equal(t, test_helpers.Voter1, byReputation[0].WalletAddress)

	byReports, err := s.TopUsers(ctx, store.SortByReports, 2)
	require.NoError(t, err)
	require.Len(t, byReports, 2)
	require.Equal(t, test_helpers.Voter2, byReports[0].WalletAddress)
	require.Equal(t, test_helpers.Voter1, byReports[1].WalletAddress)

	byEarnings, err := s.TopUsers(ctx, store.SortByEarnings, 1)
	require.NoError(t, err)
	require.Len(t, byEarnings, 1)
	require.Equal(t, test_helpers.Voter2, byEarnings[0].WalletAddress)
}

func TestTransactionUpsert(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx := &types.Transaction{
		Signature: "sig-1",
		Type:      types.TxReward,
		ToWallet:  test_helpers.OwnerWallet,
		Amount:    decimal.NewFromFloat(0.01),
		Status:    types.TxPending,
	}
	require.NoError(t, s.RecordOrUpdateTransaction(ctx, tx))

	// redelivery with confirmation updates in place
	update := *tx
	update.Status = types.TxConfirmed
	require.NoError(t, s.RecordOrUpdateTransaction(ctx, &update))

	txs, err := s.UserTransactions(ctx, test_helpers.OwnerWallet)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, types.TxConfirmed, txs[0].Status)

	require.ErrorIs(t, s.RecordOrUpdateTransaction(ctx, &types.Transaction{}), store.ErrInvalidInput)
}
