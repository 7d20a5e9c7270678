package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	Table           = "clans"
	MembershipTable = "clan_memberships"

	MinMembers = 2
	MaxMembers = 13
)

// Clan is a named, tagged group of members scoped to one server.
type Clan struct {
	ID              snowflake.ID                      `gorm:"primaryKey" json:"id"`
	ServerID        snowflake.ID                      `gorm:"not null;index" json:"server_id"`
	LeaderID        snowflake.ID                      `gorm:"not null" json:"leader_id"`
	Name            string                            `gorm:"not null" json:"name"`
	Tag             string                            `gorm:"not null" json:"tag"`
	MemberIDs       datatypes.JSONSlice[snowflake.ID] `gorm:"column:member_ids;not null" json:"member_ids"`
	ModifierHistory datatypes.JSONSlice[snowflake.ID] `gorm:"column:modifier_history;not null" json:"modifier_history"`
	Active          bool                              `gorm:"not null" json:"active"`
	LastUpdatedAt   time.Time                         `gorm:"column:last_updated_at;not null" json:"last_updated_at"`
	Version         int64                             `gorm:"not null" json:"version"`
	CreatedAt       time.Time                         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (c Clan) HasMember(id snowflake.ID) bool {
	return slices.Contains(c.MemberIDs, id)
}

// LastModifier is the member behind the most recent create or edit.
func (c Clan) LastModifier() (snowflake.ID, bool) {
	if len(c.ModifierHistory) == 0 {
		return 0, false
	}
	return c.ModifierHistory[len(c.ModifierHistory)-1], true
}

type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// ParseAction accepts the English and Portuguese command choices.
func ParseAction(raw string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "add", "adicionar":
		return ActionAdd, nil
	case "remove", "remover":
		return ActionRemove, nil
	default:
		return "", ErrInvalidAction
	}
}

// Rejection is one member reference left out of an operation.
type Rejection struct {
	Ref      string `json:"ref"`
	Reason   Reason `json:"reason"`
	ClanName string `json:"clan_name,omitempty"`
}
