package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorFromUser(t *testing.T) {
	actor, err := actorFromUser(map[string]any{
		"id":    "u-1",
		"email": "chair@example.org",
		"roles": []string{"admin"},
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", actor.ID)
	assert.True(t, actor.CanManage("motion"))
	assert.True(t, actor.CanManage("assignment"))

	actor, err = actorFromUser(map[string]any{"id": "u-2", "roles": []string{"user"}})
	require.NoError(t, err)
	assert.False(t, actor.CanManage("motion"))
	assert.True(t, actor.CanParticipate("motion"))

	_, err = actorFromUser(map[string]any{"roles": []string{"user"}})
	assert.Error(t, err)

	_, err = actorFromUser(map[string]any{"id": 7})
	assert.Error(t, err)
}

func TestValidateSessionWithoutClient(t *testing.T) {
	if IsAuthorizerInitialized() {
		t.Skip("authorizer client already initialized")
	}
	_, err := ValidateSession("cookie", nil)
	assert.Error(t, err)
}
