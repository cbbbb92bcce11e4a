package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bot_stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTrackUserUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.TrackUser(ctx, User{ID: 1, FirstName: "Ada", Username: "ada"}))
	require.NoError(t, s.TrackUser(ctx, User{ID: 1, FirstName: "Ada", Username: "ada_l"}))
	require.NoError(t, s.TrackUser(ctx, User{ID: 2, FirstName: "Grace"}))

	users, err := s.AllUsers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, users)
}

func TestUserStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.TrackUser(ctx, User{ID: 1, FirstName: "Ada"}))
	require.NoError(t, s.TrackUser(ctx, User{ID: 2, FirstName: "Grace"}))
	require.NoError(t, s.LogActivity(ctx, 1, "search", "lofi beats"))
	require.NoError(t, s.LogActivity(ctx, 2, "search", "lofi beats"))
	require.NoError(t, s.LogActivity(ctx, 1, "search", "jazz"))
	require.NoError(t, s.LogActivity(ctx, 1, "start_command", ""))
	require.NoError(t, s.LogActivity(ctx, 1, "search", "/start")) // command noise is excluded

	st, err := s.UserStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalUsers)
	assert.Equal(t, 2, st.ActiveToday)
	assert.Equal(t, 2, st.ActiveWeek)
	assert.Equal(t, 0, st.PendingFeedback)

	require.NotEmpty(t, st.PopularSearches)
	assert.Equal(t, "lofi beats", st.PopularSearches[0].Query)
	assert.Equal(t, 2, st.PopularSearches[0].Count)
	for _, sc := range st.PopularSearches {
		assert.NotEqual(t, "/start", sc.Query)
		assert.NotEqual(t, "", sc.Query)
	}
}

func TestFeedbackLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.TrackUser(ctx, User{ID: 7, FirstName: "Ada", Username: "ada"}))
	id, err := s.SaveFeedback(ctx, 7, "please add playlists")
	require.NoError(t, err)
	require.NotZero(t, id)

	pending, err := s.PendingFeedback(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
	assert.Equal(t, "please add playlists", pending[0].Message)
	assert.Equal(t, "pending", pending[0].Status)
	assert.Equal(t, "ada", pending[0].Username)

	fb, err := s.FeedbackByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(7), fb.UserID)

	n, err := s.PendingFeedbackCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.SaveReply(ctx, id, "on the roadmap"))

	n, err = s.PendingFeedbackCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	fb, err = s.FeedbackByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "replied", fb.Status)

	pending, err = s.PendingFeedback(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFeedbackByIDNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.FeedbackByID(context.Background(), 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot_stats.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.TrackUser(context.Background(), User{ID: 1, FirstName: "Ada"}))
	require.NoError(t, s1.Close())

	// Reopening must not re-run migrations destructively.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	users, err := s2.AllUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, users)
}
