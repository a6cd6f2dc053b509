package fakeapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/alexhail/quickcontroller/internal/errors"
)

func TestRefreshStore_Validate(t *testing.T) {
	store := newRefreshStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := store.create("user-1", now)
	require.NoError(t, err)

	rt, err := store.validate(first, now.Add(time.Hour), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "user-1", rt.UserID)

	rotated, err := store.create("user-1", now)
	require.NoError(t, err)
	_, err = store.validate(first, now, 24*time.Hour)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken, "rotation replaces the previous token")

	_, err = store.validate(rotated, now.Add(25*time.Hour), 24*time.Hour)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	_, err = store.validate(rotated, now, 24*time.Hour)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken, "expired tokens are removed")
}
