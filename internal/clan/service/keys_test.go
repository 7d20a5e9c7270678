package service

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestLockKeys(t *testing.T) {
	server := snowflake.ID(7)

	assert.Equal(t, "clan:7:member:42", memberKey(server, 42))
	assert.Equal(t, "clan:7:clan:9", clanKey(server, 9))
	assert.Equal(t, "clan:7:name:lobos-do-norte", nameKey(server, "Lobos do Norte"))
	assert.Equal(t, "clan:7:tag:lbn", tagKey(server, "LBN"))
}

func TestKeyPartFallsBackToHex(t *testing.T) {
	assert.Equal(t, "2a2a", keyPart("**"))
	assert.NotEqual(t, keyPart("Ação"), "")
}
