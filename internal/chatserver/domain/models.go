package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const Table = "servers"

// Server is the internal identity of a chat community.
type Server struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ExternalRef string       `gorm:"column:external_ref;not null" json:"external_ref"`
	DisplayName string       `gorm:"column:display_name" json:"display_name"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}
