package harvest

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thoas/go-funk"

	"github.com/Lingaraj-Patil/farm-yield/types"
)

// onReportSubmitted bumps the owner's submission counters and evaluates the
// badge rules. Returns the badges newly awarded so the caller can queue
// their mints. The whole bump runs inside the store's atomic profile
// mutation, so concurrent submissions never lose a count.
func (sv *Service) onReportSubmitted(ctx context.Context, wallet string) ([]types.BadgeType, error) {
	var awarded []types.BadgeType
	_, err := sv.store.MutateUser(ctx, wallet, func(user *types.User) error {
		user.TotalReports++
		user.RecalculateReputation()
		awarded = evaluateBadges(user)
		return nil
	})
	return awarded, err
}

// onReportVerified bumps the owner's verified counter, recomputes the score
// and queues the mint of any newly earned badge.
func (sv *Service) onReportVerified(ctx context.Context, wallet string) error {
	var awarded []types.BadgeType
	user, err := sv.store.MutateUser(ctx, wallet, func(user *types.User) error {
		user.VerifiedReports++
		user.RecalculateReputation()
		awarded = evaluateBadges(user)
		return nil
	})
	if err != nil {
		return err
	}
	for _, badge := range awarded {
		sv.dispatch(settlementJob{kind: jobMintBadge, wallet: user.WalletAddress, badge: badge})
	}
	return nil
}

// creditReward adds a paid reward to the owner's lifetime earnings.
func (sv *Service) creditReward(ctx context.Context, wallet string, amount decimal.Decimal) error {
	_, err := sv.store.MutateUser(ctx, wallet, func(user *types.User) error {
		user.TotalEarned = user.TotalEarned.Add(amount)
		return nil
	})
	return err
}

// evaluateBadges applies the badge rules in fixed order and appends any
// newly earned badges to the profile. Each badge is awarded at most once.
func evaluateBadges(user *types.User) []types.BadgeType {
	held := funk.Map(user.Badges, func(b types.Badge) types.BadgeType {
		return b.Type
	}).([]types.BadgeType)

	var awarded []types.BadgeType
	award := func(t types.BadgeType) {
		if funk.Contains(held, t) {
			return
		}
		user.Badges = append(user.Badges, types.Badge{Type: t, EarnedAt: time.Now().UTC()})
		held = append(held, t)
		awarded = append(awarded, t)
	}

	if user.TotalReports >= 1 {
		award(types.BadgeFirstReport)
	}
	if user.VerifiedReports >= 10 {
		award(types.BadgeVerified10)
	}
	if user.TotalReports >= 25 {
		award(types.BadgeTopContributor)
	}
	return awarded
}
