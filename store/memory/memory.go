// Package memory provides an in-process Store used by tests and by the
// service when it runs without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Lingaraj-Patil/farm-yield/store"
	"github.com/Lingaraj-Patil/farm-yield/types"
)

var _ store.Store = &Store{}

type voteKey struct {
	reportID string
	voter    string
}

// Store keeps everything in maps guarded by a single mutex. The version
// checks mirror the SQL store so concurrency tests exercise the same
// conflict paths.
type Store struct {
	sync.Mutex
	reports      map[string]*types.Report
	shortIndex   map[string]string
	votes        map[voteKey]*types.Vote
	users        map[string]*types.User
	transactions map[string]*types.Transaction
}

func NewStore() *Store {
	return &Store{
		reports:      make(map[string]*types.Report),
		shortIndex:   make(map[string]string),
		votes:        make(map[voteKey]*types.Vote),
		users:        make(map[string]*types.User),
		transactions: make(map[string]*types.Transaction),
	}
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) CreateReport(_ context.Context, report *types.Report) error {
	switch {
	case types.NormalizeWallet(report.Owner) == "":
		return fmt.Errorf("%w: missing owner wallet", store.ErrInvalidInput)
	case report.CropType == "":
		return fmt.Errorf("%w: missing crop type", store.ErrInvalidInput)
	case report.Quantity.Value <= 0:
		return fmt.Errorf("%w: quantity must be positive", store.ErrInvalidInput)
	}
	s.Lock()
	defer s.Unlock()
	if _, exists := s.reports[report.ID]; exists {
		return fmt.Errorf("%w: report id %s already exists", store.ErrConflict, report.ID)
	}
	copied := copyReport(report)
	s.reports[report.ID] = copied
	if report.ShortID != "" {
		s.shortIndex[report.ShortID] = report.ID
	}
	return nil
}

func (s *Store) GetReport(_ context.Context, id string) (*types.Report, error) {
	s.Lock()
	defer s.Unlock()
	report, err := s.lookupReport(id)
	if err != nil {
		return nil, err
	}
	return copyReport(report), nil
}

func (s *Store) ListReports(_ context.Context, filter store.ReportFilter) ([]*types.Report, int, error) {
	filter.Normalize()
	s.Lock()
	defer s.Unlock()

	var matched []*types.Report
	for _, report := range s.reports {
		if filter.Status != "" && string(report.Status) != filter.Status {
			continue
		}
		if filter.CropType != "" && report.CropType != filter.CropType {
			continue
		}
		if filter.Province != "" && report.Location.Address.Province != filter.Province {
			continue
		}
		if filter.District != "" && report.Location.Address.District != filter.District {
			continue
		}
		if filter.Owner != "" && !types.SameWallet(report.Owner, filter.Owner) {
			continue
		}
		matched = append(matched, report)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	offset := filter.Offset()
	if offset >= total {
		return []*types.Report{}, total, nil
	}
	end := offset + filter.Limit
	if end > total {
		end = total
	}
	page := make([]*types.Report, 0, end-offset)
	for _, report := range matched[offset:end] {
		page = append(page, copyReport(report))
	}
	return page, total, nil
}

func (s *Store) UpdateReport(_ context.Context, report *types.Report) error {
	s.Lock()
	defer s.Unlock()
	if err := s.applyReportUpdate(report); err != nil {
		return err
	}
	report.Version++
	return nil
}

func (s *Store) AggregatedRegions(_ context.Context) ([]store.RegionStat, error) {
	s.Lock()
	defer s.Unlock()

	grouped := make(map[string]*store.RegionStat)
	for _, report := range s.reports {
		key := strings.Join([]string{
			report.Location.Address.Province,
			report.Location.Address.District,
			report.CropType,
		}, "\x00")
		stat, ok := grouped[key]
		if !ok {
			stat = &store.RegionStat{
				Province: report.Location.Address.Province,
				District: report.Location.Address.District,
				CropType: report.CropType,
			}
			grouped[key] = stat
		}
		stat.Reports++
		if report.Status == types.StatusVerified {
			stat.VerifiedReports++
		}
		stat.TotalQuantity += report.Quantity.Value
	}

	stats := make([]store.RegionStat, 0, len(grouped))
	for _, stat := range grouped {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Province != stats[j].Province {
			return stats[i].Province < stats[j].Province
		}
		if stats[i].District != stats[j].District {
			return stats[i].District < stats[j].District
		}
		return stats[i].CropType < stats[j].CropType
	})
	return stats, nil
}

func (s *Store) ApplyVote(_ context.Context, report *types.Report, vote *types.Vote) error {
	s.Lock()
	defer s.Unlock()

	key := voteKey{reportID: vote.ReportID, voter: types.NormalizeWallet(vote.VoterWallet)}
	if _, exists := s.votes[key]; exists {
		return fmt.Errorf("%w: %s on report %s", store.ErrDuplicateVote, vote.VoterWallet, vote.ReportID)
	}
	if err := s.applyReportUpdate(report); err != nil {
		return err
	}
	copied := *vote
	s.votes[key] = &copied
	report.Version++
	return nil
}

func (s *Store) VotesFor(_ context.Context, reportID string) ([]*types.Vote, error) {
	s.Lock()
	defer s.Unlock()
	var votes []*types.Vote
	for key, vote := range s.votes {
		if key.reportID != reportID {
			continue
		}
		copied := *vote
		votes = append(votes, &copied)
	}
	sort.Slice(votes, func(i, j int) bool {
		return votes[i].CreatedAt.Before(votes[j].CreatedAt)
	})
	return votes, nil
}

func (s *Store) EnsureUser(_ context.Context, wallet string) (*types.User, error) {
	wallet = types.NormalizeWallet(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("%w: missing wallet address", store.ErrInvalidInput)
	}
	s.Lock()
	defer s.Unlock()
	if user, ok := s.users[wallet]; ok {
		return copyUser(user), nil
	}
	now := time.Now().UTC()
	user := &types.User{
		WalletAddress: wallet,
		Username:      types.DefaultUsername(wallet),
		JoinedAt:      now,
		LastActive:    now,
	}
	s.users[wallet] = user
	return copyUser(user), nil
}

func (s *Store) GetUser(_ context.Context, wallet string) (*types.User, error) {
	s.Lock()
	defer s.Unlock()
	user, ok := s.users[types.NormalizeWallet(wallet)]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, wallet)
	}
	return copyUser(user), nil
}

// MutateUser runs mutate under the store lock, so concurrent mutations of
// one profile serialize and no counter increment is lost.
func (s *Store) MutateUser(_ context.Context, wallet string, mutate func(*types.User) error) (*types.User, error) {
	wallet = types.NormalizeWallet(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("%w: missing wallet address", store.ErrInvalidInput)
	}
	s.Lock()
	defer s.Unlock()
	user, ok := s.users[wallet]
	if !ok {
		now := time.Now().UTC()
		user = &types.User{
			WalletAddress: wallet,
			Username:      types.DefaultUsername(wallet),
			JoinedAt:      now,
			LastActive:    now,
		}
	}
	working := copyUser(user)
	if err := mutate(working); err != nil {
		return nil, err
	}
	working.LastActive = time.Now().UTC()
	s.users[wallet] = working
	return copyUser(working), nil
}

func (s *Store) TopUsers(_ context.Context, by store.LeaderboardSort, limit int) ([]*types.User, error) {
	s.Lock()
	defer s.Unlock()
	users := make([]*types.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, copyUser(user))
	}
	sort.Slice(users, func(i, j int) bool {
		a, b := users[i], users[j]
		switch by {
		case store.SortByReports:
			if a.TotalReports != b.TotalReports {
				return a.TotalReports > b.TotalReports
			}
		case store.SortByEarnings:
			if cmp := a.TotalEarned.Cmp(b.TotalEarned); cmp != 0 {
				return cmp > 0
			}
		default:
			if a.ReputationScore != b.ReputationScore {
				return a.ReputationScore > b.ReputationScore
			}
		}
		if a.VerifiedReports != b.VerifiedReports {
			return a.VerifiedReports > b.VerifiedReports
		}
		return a.WalletAddress < b.WalletAddress
	})
	if limit > 0 && limit < len(users) {
		users = users[:limit]
	}
	return users, nil
}

func (s *Store) RecordOrUpdateTransaction(_ context.Context, tx *types.Transaction) error {
	if tx.Signature == "" {
		return fmt.Errorf("%w: missing transaction signature", store.ErrInvalidInput)
	}
	s.Lock()
	defer s.Unlock()
	copied := *tx
	if copied.Type == "" {
		copied.Type = types.TxUnknown
	}
	if copied.Status == "" {
		copied.Status = types.TxPending
	}
	if copied.CreatedAt.IsZero() {
		if prev, ok := s.transactions[tx.Signature]; ok {
			copied.CreatedAt = prev.CreatedAt
		} else {
			copied.CreatedAt = time.Now().UTC()
		}
	}
	s.transactions[tx.Signature] = &copied
	return nil
}

func (s *Store) UserTransactions(_ context.Context, wallet string) ([]*types.Transaction, error) {
	wallet = types.NormalizeWallet(wallet)
	s.Lock()
	defer s.Unlock()
	var txs []*types.Transaction
	for _, tx := range s.transactions {
		if !types.SameWallet(tx.FromWallet, wallet) && !types.SameWallet(tx.ToWallet, wallet) {
			continue
		}
		copied := *tx
		txs = append(txs, &copied)
	}
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
	return txs, nil
}

// lookupReport resolves id or short code; callers hold the lock.
func (s *Store) lookupReport(id string) (*types.Report, error) {
	if report, ok := s.reports[id]; ok {
		return report, nil
	}
	if full, ok := s.shortIndex[id]; ok {
		return s.reports[full], nil
	}
	return nil, fmt.Errorf("%w: report %s", store.ErrNotFound, id)
}

// applyReportUpdate writes the report back if the caller's version matches
// the stored one; callers hold the lock.
func (s *Store) applyReportUpdate(report *types.Report) error {
	current, ok := s.reports[report.ID]
	if !ok {
		return fmt.Errorf("%w: report %s at version %d", store.ErrConflict, report.ID, report.Version)
	}
	if current.Version != report.Version {
		return fmt.Errorf("%w: report %s at version %d", store.ErrConflict, report.ID, report.Version)
	}
	copied := copyReport(report)
	copied.Version = report.Version + 1
	copied.UpdatedAt = time.Now().UTC()
	s.reports[report.ID] = copied
	return nil
}

func copyReport(report *types.Report) *types.Report {
	copied := *report
	copied.Images = append([]types.ImageRef(nil), report.Images...)
	copied.Voters = append([]types.VoterEntry(nil), report.Voters...)
	return &copied
}

func copyUser(user *types.User) *types.User {
	copied := *user
	copied.Badges = append([]types.Badge(nil), user.Badges...)
	return &copied
}
