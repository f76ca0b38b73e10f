package repository

import (
	"context"
	"regexp"
	"testing"

	"murmur/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository_FollowSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "follows" ("follower_id","following_id","created_at") VALUES ($1,$2,$3) ON CONFLICT DO NOTHING`)).
		WithArgs(1, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "followers_count"=followers_count + 1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "following_count"=following_count + 1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	changed, err := repo.Follow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_FollowExistingEdgeSkipsCounters(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "follows"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	changed, err := repo.Follow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_Self(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	_, err := repo.Follow(context.Background(), 7, 7)
	assert.True(t, models.HasCode(err, models.CodeConflict))
	assert.Equal(t, "You can't follow yourself", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_CountsTrackEdges(t *testing.T) {
	db := setupSQLiteDB(t)
	users := NewUserRepository(db, testHasher)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	ana := createUser(t, users, "ana")
	bia := createUser(t, users, "bia")

	changed, err := repo.Follow(ctx, ana.ID, bia.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Follow(ctx, ana.ID, bia.ID)
	require.NoError(t, err)
	assert.False(t, changed, "second follow is a no-op")

	assert.Equal(t, 1, reloadUser(t, db, bia.ID).FollowersCount)
	assert.Equal(t, 1, reloadUser(t, db, ana.ID).FollowingCount)

	following, err := repo.IsFollowing(ctx, ana.ID, bia.ID)
	require.NoError(t, err)
	assert.True(t, following)
	following, err = repo.IsFollowing(ctx, bia.ID, ana.ID)
	require.NoError(t, err)
	assert.False(t, following)

	list, err := repo.ListFollowers(ctx, bia.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ana", list[0].UserAt)

	list, err = repo.ListFollowing(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bia", list[0].UserAt)

	changed, err = repo.Unfollow(ctx, ana.ID, bia.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = repo.Unfollow(ctx, ana.ID, bia.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Equal(t, 0, reloadUser(t, db, bia.ID).FollowersCount)
	assert.Equal(t, 0, reloadUser(t, db, ana.ID).FollowingCount)
}
