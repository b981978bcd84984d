package outbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryStateTransitions(t *testing.T) {
	s := Pending()
	require.Equal(t, StatePending, s.Kind)

	sent, err := s.MarkSent("srv-1")
	require.NoError(t, err)
	assert.Equal(t, StateSent, sent.Kind)
	assert.Equal(t, "srv-1", sent.ServerID)

	failed, err := s.MarkFailed("db down")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, failed.Kind)
	assert.Equal(t, "db down", failed.Reason)

	retried, err := failed.Retry()
	require.NoError(t, err)
	assert.Equal(t, StatePending, retried.Kind)
	assert.Empty(t, retried.Reason)
}

func TestDeliveryStateIllegalTransitions(t *testing.T) {
	sent, err := Pending().MarkSent("srv-1")
	require.NoError(t, err)

	_, err = sent.MarkSent("srv-2")
	assert.Error(t, err)

	_, err = sent.MarkFailed("late failure")
	assert.Error(t, err)

	_, err = Pending().Retry()
	assert.Error(t, err)
}
