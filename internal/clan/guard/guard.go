// Package guard holds the pure membership rules applied before a clan is written.
package guard

import (
	"slices"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clanbot/internal/clan/domain"
)

// Target is a resolved member reference queued for an edit.
type Target struct {
	Ref      string
	MemberID snowflake.ID
}

// EditPlan is the outcome of applying accepted targets to a member list.
type EditPlan struct {
	MemberIDs    []snowflake.ID
	Added        []snowflake.ID
	Removed      []snowflake.ID
	Processed    []string
	NotProcessed []domain.Rejection
}

// CheckSize enforces the member bounds on a resulting clan.
func CheckSize(count int) error {
	switch {
	case count < domain.MinMembers:
		return domain.ErrTooFew
	case count > domain.MaxMembers:
		return domain.ErrTooMany
	default:
		return nil
	}
}

// PlanEdit applies targets to current in order. The leader is never removed and
// no-op adds or removes are dropped without being reported.
func PlanEdit(current []snowflake.ID, leaderID snowflake.ID, action domain.Action, targets []Target) EditPlan {
	plan := EditPlan{MemberIDs: slices.Clone(current)}

	for _, target := range targets {
		switch action {
		case domain.ActionAdd:
			if slices.Contains(plan.MemberIDs, target.MemberID) {
				continue
			}
			plan.MemberIDs = append(plan.MemberIDs, target.MemberID)
			plan.Added = append(plan.Added, target.MemberID)
			plan.Processed = append(plan.Processed, target.Ref)
		case domain.ActionRemove:
			if target.MemberID == leaderID {
				plan.NotProcessed = append(plan.NotProcessed, domain.Rejection{
					Ref:    target.Ref,
					Reason: domain.ReasonLeaderProtected,
				})
				continue
			}
			idx := slices.Index(plan.MemberIDs, target.MemberID)
			if idx < 0 {
				continue
			}
			plan.MemberIDs = slices.Delete(plan.MemberIDs, idx, idx+1)
			plan.Removed = append(plan.Removed, target.MemberID)
			plan.Processed = append(plan.Processed, target.Ref)
		}
	}

	return plan
}

// CheckClan verifies the structural invariants of a clan about to be stored.
func CheckClan(c domain.Clan) error {
	if err := CheckSize(len(c.MemberIDs)); err != nil {
		return err
	}
	if !c.HasMember(c.LeaderID) {
		return domain.ErrInvalidState
	}
	if len(c.ModifierHistory) == 0 {
		return domain.ErrInvalidState
	}
	seen := make(map[snowflake.ID]struct{}, len(c.MemberIDs))
	for _, id := range c.MemberIDs {
		if _, dup := seen[id]; dup {
			return domain.ErrInvalidState
		}
		seen[id] = struct{}{}
	}
	return nil
}
