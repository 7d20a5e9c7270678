package guard

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clanbot/internal/clan/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func ids(values ...int64) []snowflake.ID {
	out := make([]snowflake.ID, 0, len(values))
	for _, v := range values {
		out = append(out, snowflake.ID(v))
	}
	return out
}

func TestCheckSize(t *testing.T) {
	assert.ErrorIs(t, CheckSize(1), domain.ErrTooFew)
	assert.NoError(t, CheckSize(2))
	assert.NoError(t, CheckSize(13))
	assert.ErrorIs(t, CheckSize(14), domain.ErrTooMany)
}

func TestPlanEditRemoveNeverDropsLeader(t *testing.T) {
	current := ids(1, 2, 3)
	plan := PlanEdit(current, 1, domain.ActionRemove, []Target{
		{Ref: "leader", MemberID: 1},
		{Ref: "two", MemberID: 2},
		{Ref: "stranger", MemberID: 9},
	})

	assert.Equal(t, ids(1, 3), plan.MemberIDs)
	assert.Equal(t, ids(2), plan.Removed)
	assert.Equal(t, []string{"two"}, plan.Processed)
	assert.Equal(t, []domain.Rejection{{Ref: "leader", Reason: domain.ReasonLeaderProtected}}, plan.NotProcessed)
	assert.Equal(t, ids(1, 2, 3), current, "input must not be mutated")
}

func TestPlanEditAddSkipsDuplicates(t *testing.T) {
	plan := PlanEdit(ids(1, 2), 1, domain.ActionAdd, []Target{
		{Ref: "two", MemberID: 2},
		{Ref: "three", MemberID: 3},
		{Ref: "three-again", MemberID: 3},
	})

	assert.Equal(t, ids(1, 2, 3), plan.MemberIDs)
	assert.Equal(t, ids(3), plan.Added)
	assert.Equal(t, []string{"three"}, plan.Processed)
	assert.Empty(t, plan.NotProcessed)
}

func TestCheckClan(t *testing.T) {
	valid := domain.Clan{
		LeaderID:        1,
		MemberIDs:       datatypes.JSONSlice[snowflake.ID](ids(1, 2)),
		ModifierHistory: datatypes.JSONSlice[snowflake.ID](ids(1)),
	}
	assert.NoError(t, CheckClan(valid))

	noLeader := valid
	noLeader.LeaderID = 5
	assert.ErrorIs(t, CheckClan(noLeader), domain.ErrInvalidState)

	noHistory := valid
	noHistory.ModifierHistory = nil
	assert.ErrorIs(t, CheckClan(noHistory), domain.ErrInvalidState)

	dup := valid
	dup.MemberIDs = datatypes.JSONSlice[snowflake.ID](ids(1, 1))
	assert.ErrorIs(t, CheckClan(dup), domain.ErrInvalidState)
}
