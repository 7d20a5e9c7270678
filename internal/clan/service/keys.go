package service

import (
	"encoding/hex"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
)

func memberKey(serverID, memberID snowflake.ID) string {
	return fmt.Sprintf("clan:%d:member:%d", serverID, memberID)
}

func clanKey(serverID, clanID snowflake.ID) string {
	return fmt.Sprintf("clan:%d:clan:%d", serverID, clanID)
}

func nameKey(serverID snowflake.ID, name string) string {
	return fmt.Sprintf("clan:%d:name:%s", serverID, keyPart(name))
}

func tagKey(serverID snowflake.ID, tag string) string {
	return fmt.Sprintf("clan:%d:tag:%s", serverID, keyPart(tag))
}

// keyPart folds a display string into a lock key segment. Distinct inputs may
// share a segment, which only widens the lock.
func keyPart(value string) string {
	if s := slug.Make(value); s != "" {
		return s
	}
	return hex.EncodeToString([]byte(value))
}
