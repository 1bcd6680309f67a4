package sql

import (
	"context"
	stdsql "database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Lingaraj-Patil/farm-yield/store"
	"github.com/Lingaraj-Patil/farm-yield/store/metrics"
	"github.com/Lingaraj-Patil/farm-yield/test_helpers"
	"github.com/Lingaraj-Patil/farm-yield/types"
)

type fakeResult int64

func (r fakeResult) RowsAffected() (int64, error) { return int64(r), nil }

type execCall struct {
	query string
	args  []interface{}
}

// fakeDB scripts Exec/Get/Select results and records every statement; the
// Begin transaction shares the same script.
type fakeDB struct {
	execs      []execCall
	execRows   []int64 // consumed per Exec call, defaults to 1
	execErr    error
	getErr     error
	selectErr  error
	row        *fakeRow // returned by QueryRow, zero row when unset
	committed  bool
	rolledBack bool
}

// fakeRow scans a scripted userRow into the caller's destinations.
type fakeRow struct {
	user userRow
	err  error
}

func (r *fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	vals := []interface{}{
		r.user.WalletAddress,
		r.user.Username,
		r.user.TotalReports,
		r.user.VerifiedReports,
		r.user.TotalEarned,
		r.user.ReputationScore,
		r.user.Badges,
		r.user.JoinedAt,
		r.user.LastActive,
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = vals[i].(string)
		case *int:
			*p = vals[i].(int)
		case *[]byte:
			*p = vals[i].([]byte)
		case *time.Time:
			*p = vals[i].(time.Time)
		}
	}
	return nil
}

func (f *fakeDB) nextRows() int64 {
	if len(f.execRows) == 0 {
		return 1
	}
	rows := f.execRows[0]
	f.execRows = f.execRows[1:]
	return rows
}

func (f *fakeDB) QueryRow(_ context.Context, query string, args ...interface{}) ScannableRow {
	f.execs = append(f.execs, execCall{query: query, args: args})
	if f.row != nil {
		return f.row
	}
	return &fakeRow{}
}

func (f *fakeDB) Exec(_ context.Context, query string, args ...interface{}) (Result, error) {
	f.execs = append(f.execs, execCall{query: query, args: args})
	if f.execErr != nil {
		return nil, f.execErr
	}
	return fakeResult(f.nextRows()), nil
}

func (f *fakeDB) Select(_ context.Context, _ interface{}, query string, args ...interface{}) error {
	f.execs = append(f.execs, execCall{query: query, args: args})
	return f.selectErr
}

func (f *fakeDB) Get(_ context.Context, _ interface{}, query string, args ...interface{}) error {
	f.execs = append(f.execs, execCall{query: query, args: args})
	return f.getErr
}

func (f *fakeDB) Begin(context.Context) (Tx, error) { return fakeTx{f}, nil }
func (f *fakeDB) Stats() metrics.DbStats            { return nil }
func (f *fakeDB) Context() context.Context          { return context.Background() }
func (f *fakeDB) Close() error                      { return nil }

type fakeTx struct{ db *fakeDB }

func (t fakeTx) QueryRow(ctx context.Context, query string, args ...interface{}) ScannableRow {
	return t.db.QueryRow(ctx, query, args...)
}
func (t fakeTx) Exec(ctx context.Context, query string, args ...interface{}) (Result, error) {
	return t.db.Exec(ctx, query, args...)
}
func (t fakeTx) Commit(context.Context) error   { t.db.committed = true; return nil }
func (t fakeTx) Rollback(context.Context) error { t.db.rolledBack = true; return nil }

func testVote(reportID string) *types.Vote {
	return &types.Vote{
		ReportID:    reportID,
		VoterWallet: test_helpers.Voter1,
		Decision:    types.VoteApprove,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestStatementShapes(t *testing.T) {
	require.Contains(t, getReportStm, "id = $1 OR short_id = $1")
	require.Contains(t, getReportStm, "reward_amount::TEXT")

	require.Contains(t, updateReportStm, "version = version + 1")
	require.Contains(t, updateReportStm, "WHERE id = $1 AND version = $13")

	require.Contains(t, insertVoteStm, "ON CONFLICT (report_id, voter_wallet) DO NOTHING")
	require.Contains(t, upsertTransactionStm, "ON CONFLICT (tx_signature) DO UPDATE")

	require.Contains(t, aggregatedRegionsStm, "GROUP BY province, district, crop_type")

	require.Contains(t, getUserForUpdateStm, "FOR UPDATE")
	require.Contains(t, topUsersStm(store.SortByReputation), "ORDER BY reputation_score DESC")
	require.Contains(t, topUsersStm(store.SortByReports), "ORDER BY total_reports DESC")
	require.Contains(t, topUsersStm(store.SortByEarnings), "ORDER BY total_earned DESC")
}

func TestCreateReportValidation(t *testing.T) {
	db := &fakeDB{}
	s := NewStore(db)
	ctx := context.Background()

	report := test_helpers.PendingReport(test_helpers.OwnerWallet)
	report.CropType = ""
	require.ErrorIs(t, s.CreateReport(ctx, report), store.ErrInvalidInput)
	require.Empty(t, db.execs, "validation failures never reach the database")
}

func TestCreateReportDuplicateID(t *testing.T) {
	db := &fakeDB{execRows: []int64{0}}
	s := NewStore(db)

	report := test_helpers.PendingReport(test_helpers.OwnerWallet)
	require.ErrorIs(t, s.CreateReport(context.Background(), report), store.ErrConflict)
}

func TestGetReportNotFound(t *testing.T) {
	db := &fakeDB{getErr: stdsql.ErrNoRows}
	s := NewStore(db)

	_, err := s.GetReport(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListReportsQueryConstruction(t *testing.T) {
	db := &fakeDB{}
	s := NewStore(db)

	_, _, err := s.ListReports(context.Background(), store.ReportFilter{
		Status:   "pending",
		Province: "Maharashtra",
		Limit:    10,
		Page:     3,
	})
	require.NoError(t, err)
	require.Len(t, db.execs, 2)

	count := db.execs[0]
	require.Contains(t, count.query, "SELECT COUNT(*)")
	require.Contains(t, count.query, "status = $1")
	require.Contains(t, count.query, "province = $2")
	require.Equal(t, []interface{}{"pending", "Maharashtra"}, count.args)

	page := db.execs[1]
	require.Contains(t, page.query, "ORDER BY created_at DESC LIMIT $3 OFFSET $4")
	require.Equal(t, []interface{}{"pending", "Maharashtra", 10, 20}, page.args)
}

func TestUpdateReportConflict(t *testing.T) {
	db := &fakeDB{execRows: []int64{0}}
	s := NewStore(db)

	report := test_helpers.PendingReport(test_helpers.OwnerWallet)
	report.Version = 4
	err := s.UpdateReport(context.Background(), report)
	require.ErrorIs(t, err, store.ErrConflict)
	require.Equal(t, uint64(4), report.Version, "failed update leaves the version untouched")
}

func TestUpdateReportBumpsVersion(t *testing.T) {
	db := &fakeDB{}
	s := NewStore(db)

	report := test_helpers.PendingReport(test_helpers.OwnerWallet)
	report.Version = 4
	require.NoError(t, s.UpdateReport(context.Background(), report))
	require.Equal(t, uint64(5), report.Version)
}

func TestApplyVoteDuplicateRollsBack(t *testing.T) {
	db := &fakeDB{execRows: []int64{0}}
	s := NewStore(db)

	report := test_helpers.PendingReport(test_helpers.OwnerWallet)
	err := s.ApplyVote(context.Background(), report, testVote(report.ID))
	require.ErrorIs(t, err, store.ErrDuplicateVote)
	require.True(t, db.rolledBack)
	require.False(t, db.committed)
	require.Len(t, db.execs, 1, "the report is never touched on a duplicate")
	require.Zero(t, report.Version)
}

func TestApplyVoteVersionConflictRollsBack(t *testing.T) {
	db := &fakeDB{execRows: []int64{1, 0}}
	s := NewStore(db)

	report := test_helpers.PendingReport(test_helpers.OwnerWallet)
	err := s.ApplyVote(context.Background(), report, testVote(report.ID))
	require.ErrorIs(t, err, store.ErrConflict)
	require.True(t, db.rolledBack)
	require.False(t, db.committed)
	require.Zero(t, report.Version)
}

func TestApplyVoteCommits(t *testing.T) {
	db := &fakeDB{}
	s := NewStore(db)

	report := test_helpers.PendingReport(test_helpers.OwnerWallet)
	require.NoError(t, s.ApplyVote(context.Background(), report, testVote(report.ID)))
	require.True(t, db.committed)
	require.False(t, db.rolledBack)
	require.Equal(t, uint64(1), report.Version)

	require.Len(t, db.execs, 2)
	require.True(t, strings.HasPrefix(db.execs[0].query, "INSERT INTO harvest.votes"))
	require.True(t, strings.HasPrefix(db.execs[1].query, "UPDATE harvest.reports"))
}

func TestMutateUserCommitsUnderRowLock(t *testing.T) {
	db := &fakeDB{row: &fakeRow{user: userRow{
		WalletAddress:   test_helpers.OwnerWallet,
		Username:        "farmer_one",
		TotalReports:    3,
		VerifiedReports: 1,
		TotalEarned:     "0.01",
		Badges:          []byte("[]"),
	}}}
	s := NewStore(db)

	user, err := s.MutateUser(context.Background(), test_helpers.OwnerWallet, func(u *types.User) error {
		u.VerifiedReports++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, user.VerifiedReports)
	require.True(t, db.committed)
	require.False(t, db.rolledBack)

	// profile lookup, locked re-read inside the transaction, then the update
	require.Len(t, db.execs, 3)
	require.Equal(t, getUserStm, db.execs[0].query)
	require.Contains(t, db.execs[1].query, "FOR UPDATE")
	require.True(t, strings.HasPrefix(db.execs[2].query, "UPDATE harvest.users"))
	require.Equal(t, 2, db.execs[2].args[3], "the bumped verified count is what gets written")
}

func TestMutateUserErrorRollsBack(t *testing.T) {
	db := &fakeDB{}
	s := NewStore(db)

	boom := errors.New("boom")
	_, err := s.MutateUser(context.Background(), test_helpers.OwnerWallet, func(*types.User) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.True(t, db.rolledBack)
	require.False(t, db.committed)
}

func TestRecordOrUpdateTransactionDefaults(t *testing.T) {
	db := &fakeDB{}
	s := NewStore(db)

	tx := &types.Transaction{Signature: "sig-1"}
	require.NoError(t, s.RecordOrUpdateTransaction(context.Background(), tx))
	require.Equal(t, types.TxUnknown, tx.Type)
	require.Equal(t, types.TxPending, tx.Status)

	require.ErrorIs(t, s.RecordOrUpdateTransaction(context.Background(), &types.Transaction{}), store.ErrInvalidInput)
}
