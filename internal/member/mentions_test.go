package member

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMentions(t *testing.T) {
	refs := ParseMentions("<@!200> and <@100> then <@200> plus @300 <@abc>")
	assert.Equal(t, []string{"200", "100"}, refs)
	assert.Empty(t, ParseMentions("no mentions here"))
}
