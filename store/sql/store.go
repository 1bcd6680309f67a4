package sql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Lingaraj-Patil/farm-yield/store"
	"github.com/Lingaraj-Patil/farm-yield/store/metrics"
	"github.com/Lingaraj-Patil/farm-yield/store/schema"
	"github.com/Lingaraj-Patil/farm-yield/types"
)

var _ store.Store = &Store{}

var (
	insertReportStm      = schema.TableReport.PreparedInsert(false)
	insertVoteStm        = schema.TableVote.PreparedInsert(false)
	insertUserStm        = schema.TableUser.PreparedInsert(false)
	upsertTransactionStm = schema.TableTransaction.PreparedInsert(true)

	reportSelectList = selectList(schema.TableReport, map[string]string{
		"reward_amount": "reward_amount::TEXT AS reward_amount",
	})
	userSelectList = selectList(schema.TableUser, map[string]string{
		"total_earned": "total_earned::TEXT AS total_earned",
	})
	transactionSelectList = selectList(schema.TableTransaction, map[string]string{
		"amount": "amount::TEXT AS amount",
	})

	getReportStm = fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 OR short_id = $1",
		reportSelectList, schema.TableReport.Name)

	// version is both the guard and the bump; RowsAffected==0 means another
	// writer committed since the report was loaded.
	updateReportStm = fmt.Sprintf(`UPDATE %s
		SET status = $2, approve_votes = $3, reject_votes = $4, voters = $5,
			verified_by = $6, rejection_reason = $7, mint_tx_signature = $8,
			tree_address = $9, reward_tx_signature = $10, reward_amount = $11,
			updated_at = $12, version = version + 1
		WHERE id = $1 AND version = $13`, schema.TableReport.Name)

	votesForStm = fmt.Sprintf("SELECT %s FROM %s WHERE report_id = $1 ORDER BY created_at ASC",
		selectList(schema.TableVote, nil), schema.TableVote.Name)

	getUserStm = fmt.Sprintf("SELECT %s FROM %s WHERE wallet_address = $1",
		userSelectList, schema.TableUser.Name)

	// the row lock is what serializes concurrent profile mutations; see
	// MutateUser.
	getUserForUpdateStm = getUserStm + " FOR UPDATE"

	updateUserStm = fmt.Sprintf(`UPDATE %s
		SET username = $2, total_reports = $3, verified_reports = $4,
			total_earned = $5, reputation_score = $6, badges = $7, last_active = $8
		WHERE wallet_address = $1`, schema.TableUser.Name)

	userTransactionsStm = fmt.Sprintf(
		"SELECT %s FROM %s WHERE from_wallet = $1 OR to_wallet = $1 ORDER BY created_at DESC",
		transactionSelectList, schema.TableTransaction.Name)

	aggregatedRegionsStm = fmt.Sprintf(`SELECT province, district, crop_type,
			COUNT(*)::INT AS reports,
			COUNT(*) FILTER (WHERE status = 'verified')::INT AS verified_reports,
			COALESCE(SUM(quantity_value), 0)::FLOAT8 AS total_quantity
		FROM %s GROUP BY province, district, crop_type
		ORDER BY province, district, crop_type`, schema.TableReport.Name)
)

// topUsersStm ranks profiles by the requested column; ties break on
// verified count, then wallet for a stable order.
func topUsersStm(by store.LeaderboardSort) string {
	column := "reputation_score"
	switch by {
	case store.SortByReports:
		column = "total_reports"
	case store.SortByEarnings:
		column = "total_earned"
	}
	return fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY %s DESC, verified_reports DESC, wallet_address ASC LIMIT $1",
		userSelectList, schema.TableUser.Name, column)
}

func selectList(tbl schema.Table, casts map[string]string) string {
	cols := tbl.ColumnNames()
	for i, col := range cols {
		if cast, ok := casts[col]; ok {
			cols[i] = cast
		}
	}
	return strings.Join(cols, ", ")
}

// Store implements the durable-store contract on a SQL database.
type Store struct {
	db Database
}

// NewStore returns a Store using the provided database driver.
func NewStore(db Database) *Store {
	return &Store{db: db}
}

// Close satisfies io.Closer.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReportDBMetrics is a reporting function to run as goroutine.
func (s *Store) ReportDBMetrics(delay time.Duration, quit <-chan bool) {
	ticker := time.NewTicker(delay)
	go func() {
		for {
			select {
			case <-ticker.C:
				metrics.DBMetrics.Update(s.db.Stats())
			case <-quit:
				ticker.Stop()
				return
			}
		}
	}()
}

// CreateReport persists a new report record.
func (s *Store) CreateReport(ctx context.Context, report *types.Report) error {
	switch {
	case types.NormalizeWallet(report.Owner) == "":
		return fmt.Errorf("%w: missing owner wallet", store.ErrInvalidInput)
	case report.CropType == "":
		return fmt.Errorf("%w: missing crop type", store.ErrInvalidInput)
	case report.Quantity.Value <= 0:
		return fmt.Errorf("%w: quantity must be positive", store.ErrInvalidInput)
	}

	args, err := reportInsertArgs(report)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(ctx, insertReportStm, args...)
	if err != nil {
		return insertError{schema.TableReport.Name, err, insertReportStm, report.ID}
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: report id %s already exists", store.ErrConflict, report.ID)
	}
	return nil
}

// GetReport fetches by internal id or external short code.
func (s *Store) GetReport(ctx context.Context, id string) (*types.Report, error) {
	var row reportRow
	if err := s.db.Get(ctx, &row, getReportStm, id); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: report %s", store.ErrNotFound, id)
		}
		return nil, err
	}
	return row.toReport()
}

// ListReports returns a filtered page of reports plus the total match count.
func (s *Store) ListReports(ctx context.Context, filter store.ReportFilter) ([]*types.Report, int, error) {
	filter.Normalize()

	var conds []string
	var args []interface{}
	add := func(column string, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("status", filter.Status)
	add("crop_type", filter.CropType)
	add("province", filter.Province)
	add("district", filter.District)
	add("owner_wallet", types.NormalizeWallet(filter.Owner))

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countStm := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", schema.TableReport.Name, where)
	if err := s.db.Get(ctx, &total, countStm, args...); err != nil {
		return nil, 0, err
	}

	pageStm := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		reportSelectList, schema.TableReport.Name, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset())

	var rows []reportRow
	if err := s.db.Select(ctx, &rows, pageStm, args...); err != nil {
		return nil, 0, err
	}
	reports := make([]*types.Report, 0, len(rows))
	for i := range rows {
		report, err := rows[i].toReport()
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, report)
	}
	return reports, total, nil
}

// UpdateReport writes the report guarded by its loaded version.
func (s *Store) UpdateReport(ctx context.Context, report *types.Report) error {
	if err := s.execUpdateReport(ctx, s.db, report); err != nil {
		return err
	}
	report.Version++
	return nil
}

// AggregatedRegions returns per-region per-crop report statistics.
func (s *Store) AggregatedRegions(ctx context.Context) ([]store.RegionStat, error) {
	var stats []store.RegionStat
	if err := s.db.Select(ctx, &stats, aggregatedRegionsStm); err != nil {
		return nil, err
	}
	return stats, nil
}

// ApplyVote commits the vote-ledger insert and the guarded report update as
// one transaction. The insert goes first: a duplicate aborts before the
// report is touched, and a version mismatch rolls the ledger entry back.
func (s *Store) ApplyVote(ctx context.Context, report *types.Report, vote *types.Vote) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			rollback(ctx, tx)
			panic(p)
		} else if err != nil {
			rollback(ctx, tx)
		}
	}()

	var res Result
	res, err = tx.Exec(ctx, insertVoteStm,
		vote.ReportID,
		types.NormalizeWallet(vote.VoterWallet),
		string(vote.Decision),
		vote.Comment,
		vote.TxSignature,
		vote.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("%w: %s on report %s", store.ErrDuplicateVote, vote.VoterWallet, vote.ReportID)
			return err
		}
		err = insertError{schema.TableVote.Name, err, insertVoteStm, vote}
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		err = fmt.Errorf("%w: %s on report %s", store.ErrDuplicateVote, vote.VoterWallet, vote.ReportID)
		return err
	}

	if err = s.execUpdateReport(ctx, tx, report); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		if isRetryable(err) {
			err = fmt.Errorf("%w: %v", store.ErrConflict, err)
		}
		return err
	}
	report.Version++
	return nil
}

// VotesFor lists the ledger entries for a report, oldest first.
func (s *Store) VotesFor(ctx context.Context, reportID string) ([]*types.Vote, error) {
	var rows []voteRow
	if err := s.db.Select(ctx, &rows, votesForStm, reportID); err != nil {
		return nil, err
	}
	votes := make([]*types.Vote, 0, len(rows))
	for i := range rows {
		votes = append(votes, rows[i].toVote())
	}
	return votes, nil
}

// EnsureUser fetches the profile for wallet, creating it if absent.
func (s *Store) EnsureUser(ctx context.Context, wallet string) (*types.User, error) {
	wallet = types.NormalizeWallet(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("%w: missing wallet address", store.ErrInvalidInput)
	}
	user, err := s.GetUser(ctx, wallet)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(ctx, insertUserStm,
		wallet,
		types.DefaultUsername(wallet),
		0, 0, "0", 0,
		[]byte("[]"),
		now, now,
	)
	if err != nil && !isUniqueViolation(err) {
		return nil, insertError{schema.TableUser.Name, err, insertUserStm, wallet}
	}
	// A concurrent EnsureUser may have won the insert; either way the row
	// exists now.
	return s.GetUser(ctx, wallet)
}

// GetUser fetches the profile for wallet.
func (s *Store) GetUser(ctx context.Context, wallet string) (*types.User, error) {
	var row userRow
	if err := s.db.Get(ctx, &row, getUserStm, types.NormalizeWallet(wallet)); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, wallet)
		}
		return nil, err
	}
	return row.toUser()
}

// MutateUser applies mutate to the profile for wallet inside a row-locked
// transaction, creating the profile first if absent. Concurrent mutations of
// one profile serialize on the row lock, so counter bumps are never lost to
// an interleaved read-modify-write.
func (s *Store) MutateUser(ctx context.Context, wallet string, mutate func(*types.User) error) (*types.User, error) {
	wallet = types.NormalizeWallet(wallet)
	if _, err := s.EnsureUser(ctx, wallet); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if p := recover(); p != nil {
			rollback(ctx, tx)
			panic(p)
		} else if err != nil {
			rollback(ctx, tx)
		}
	}()

	var row userRow
	err = tx.QueryRow(ctx, getUserForUpdateStm, wallet).Scan(
		&row.WalletAddress,
		&row.Username,
		&row.TotalReports,
		&row.VerifiedReports,
		&row.TotalEarned,
		&row.ReputationScore,
		&row.Badges,
		&row.JoinedAt,
		&row.LastActive,
	)
	if err != nil {
		if isNoRows(err) {
			err = fmt.Errorf("%w: user %s", store.ErrNotFound, wallet)
		}
		return nil, err
	}
	var user *types.User
	if user, err = row.toUser(); err != nil {
		return nil, err
	}
	if err = mutate(user); err != nil {
		return nil, err
	}

	var badges []byte
	if badges, err = json.Marshal(badgesOrEmpty(user.Badges)); err != nil {
		err = fmt.Errorf("encoding user badges: %w", err)
		return nil, err
	}
	user.LastActive = time.Now().UTC()
	if _, err = tx.Exec(ctx, updateUserStm,
		wallet,
		user.Username,
		user.TotalReports,
		user.VerifiedReports,
		user.TotalEarned.String(),
		user.ReputationScore,
		badges,
		user.LastActive,
	); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return user, nil
}

// TopUsers returns the leaderboard page for the requested ranking.
func (s *Store) TopUsers(ctx context.Context, by store.LeaderboardSort, limit int) ([]*types.User, error) {
	var rows []userRow
	if err := s.db.Select(ctx, &rows, topUsersStm(by), limit); err != nil {
		return nil, err
	}
	users := make([]*types.User, 0, len(rows))
	for i := range rows {
		user, err := rows[i].toUser()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// RecordOrUpdateTransaction upserts a captured transaction by signature.
func (s *Store) RecordOrUpdateTransaction(ctx context.Context, tx *types.Transaction) error {
	if tx.Signature == "" {
		return fmt.Errorf("%w: missing transaction signature", store.ErrInvalidInput)
	}
	if tx.Type == "" {
		tx.Type = types.TxUnknown
	}
	if tx.Status == "" {
		tx.Status = types.TxPending
	}
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, upsertTransactionStm,
		tx.Signature,
		string(tx.Type),
		types.NormalizeWallet(tx.FromWallet),
		types.NormalizeWallet(tx.ToWallet),
		tx.Amount.String(),
		tx.ReportID,
		tx.Description,
		string(tx.Status),
		tx.BlockTime,
		tx.Slot,
		createdAt,
	)
	if err != nil {
		return insertError{schema.TableTransaction.Name, err, upsertTransactionStm, tx.Signature}
	}
	return nil
}

// UserTransactions lists transactions touching wallet, newest first.
func (s *Store) UserTransactions(ctx context.Context, wallet string) ([]*types.Transaction, error) {
	var rows []transactionRow
	if err := s.db.Select(ctx, &rows, userTransactionsStm, types.NormalizeWallet(wallet)); err != nil {
		return nil, err
	}
	txs := make([]*types.Transaction, 0, len(rows))
	for i := range rows {
		tx, err := rows[i].toTransaction()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (Result, error)
}

func (s *Store) execUpdateReport(ctx context.Context, ex execer, report *types.Report) error {
	voters, err := json.Marshal(votersOrEmpty(report.Voters))
	if err != nil {
		return fmt.Errorf("encoding report voters: %w", err)
	}
	res, err := ex.Exec(ctx, updateReportStm,
		report.ID,
		string(report.Status),
		report.Tally.Approve,
		report.Tally.Reject,
		voters,
		report.VerifiedBy,
		report.RejectionReason,
		report.MintTxSignature,
		report.TreeAddress,
		report.RewardTxSignature,
		report.RewardAmount.String(),
		time.Now().UTC(),
		report.Version,
	)
	if err != nil {
		if isRetryable(err) {
			return fmt.Errorf("%w: %v", store.ErrConflict, err)
		}
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: report %s at version %d", store.ErrConflict, report.ID, report.Version)
	}
	return nil
}

func reportInsertArgs(report *types.Report) ([]interface{}, error) {
	images, err := json.Marshal(imagesOrEmpty(report.Images))
	if err != nil {
		return nil, fmt.Errorf("encoding report images: %w", err)
	}
	metadata, err := json.Marshal(report.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding report metadata: %w", err)
	}
	voters, err := json.Marshal(votersOrEmpty(report.Voters))
	if err != nil {
		return nil, fmt.Errorf("encoding report voters: %w", err)
	}
	return []interface{}{
		report.ID,
		report.ShortID,
		types.NormalizeWallet(report.Owner),
		report.CropType,
		report.Quantity.Value,
		report.Quantity.Unit,
		report.Location.Latitude,
		report.Location.Longitude,
		report.Location.Address.District,
		report.Location.Address.Province,
		report.Location.Address.Village,
		images,
		metadata,
		string(report.Status),
		report.Tally.Approve,
		report.Tally.Reject,
		voters,
		report.VerifiedBy,
		report.RejectionReason,
		report.MintTxSignature,
		report.TreeAddress,
		report.RewardTxSignature,
		report.RewardAmount.String(),
		report.Version,
		report.CreatedAt,
		report.UpdatedAt,
	}, nil
}

func imagesOrEmpty(images []types.ImageRef) []types.ImageRef {
	if images == nil {
		return []types.ImageRef{}
	}
	return images
}

func votersOrEmpty(voters []types.VoterEntry) []types.VoterEntry {
	if voters == nil {
		return []types.VoterEntry{}
	}
	return voters
}

func badgesOrEmpty(badges []types.Badge) []types.Badge {
	if badges == nil {
		return []types.Badge{}
	}
	return badges
}
