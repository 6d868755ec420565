package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialSyncLongLivedMarker(t *testing.T) {
	c := Credential{UserID: "u-1"}
	c.SyncLongLivedMarker()
	require.NotNil(t, c.LongLivedUserID)
	assert.Equal(t, "u-1", *c.LongLivedUserID)
	assert.True(t, c.IsLongLived())

	exp := time.Now().Add(time.Hour)
	c.ExpiresAt = &exp
	c.SyncLongLivedMarker()
	assert.Nil(t, c.LongLivedUserID)
	assert.False(t, c.IsLongLived())
}

func TestCredentialIsExpired(t *testing.T) {
	now := time.Now()

	longLived := Credential{}
	assert.False(t, longLived.IsExpired(now))

	past := now.Add(-time.Minute)
	expired := Credential{ExpiresAt: &past}
	assert.True(t, expired.IsExpired(now))

	future := now.Add(time.Minute)
	active := Credential{ExpiresAt: &future}
	assert.False(t, active.IsExpired(now))
}
