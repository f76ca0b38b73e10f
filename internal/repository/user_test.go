package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"murmur/internal/auth"
	"murmur/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, testHasher)
	ctx := context.Background()

	tests := []struct {
		name          string
		userID        uint
		mockBehavior  func()
		expectedUser  *models.User
		expectedError string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "user_at", "email", "password"}).
					AddRow(1, "Ana", "ana", "ana@example.com", "$2a$hash")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			expectedUser: &models.User{ID: 1, Username: "Ana", UserAt: "ana", Email: "ana@example.com"},
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			expectedError: models.CodeNotFound,
		},
		{
			name:   "Driver Failure",
			userID: 2,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
					WillReturnError(errors.New("connection reset"))
			},
			expectedError: models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.expectedError != "" {
				assert.True(t, models.HasCode(err, tt.expectedError), "got %v", err)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedUser.UserAt, user.UserAt)
				assert.Equal(t, tt.expectedUser.Email, user.Email)
				assert.Empty(t, user.Password)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CreateMapsUniqueViolations(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       error
	}{
		{"Email", constraintEmail, ErrEmailTaken},
		{"Handle", constraintUserAt, ErrUserAtTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewUserRepository(db, testHasher)

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})
			mock.ExpectRollback()

			err := repo.Create(context.Background(), &models.User{UserAt: "ana", Email: "ana@example.com"})
			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserConflict(t *testing.T) {
	assert.Nil(t, userConflict(nil))
	assert.Nil(t, userConflict(errors.New("connection refused")))
	assert.Equal(t, ErrEmailTaken, userConflict(errors.New("UNIQUE constraint failed: users.email")))
	assert.Equal(t, ErrUserAtTaken, userConflict(errors.New("UNIQUE constraint failed: users.user_at")))
	assert.Nil(t, userConflict(&pgconn.PgError{Code: "23503"}))
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewUserRepository(db, testHasher)
	ctx := context.Background()

	ana := createUser(t, repo, "ana")

	exists, err := repo.ExistsByUserAt(ctx, "ana")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	byEmail, err := repo.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, ana.ID, byEmail.ID)
	assert.NotEmpty(t, byEmail.Password)

	missing, err := repo.GetByUserAt(ctx, "ghost")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	dup := &models.User{Username: "Ana", UserAt: "ana", Email: "other@example.com", Password: "x"}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrUserAtTaken)
	dup = &models.User{Username: "Ana", UserAt: "ana2", Email: "ana@example.com", Password: "x"}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrEmailTaken)
}

func TestUserRepository_Credentials(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewUserRepository(db, testHasher)
	ctx := context.Background()
	ana := createUser(t, repo, "ana")

	assert.True(t, repo.VerifyPassword(ctx, "ana@example.com", "hunter22"))
	assert.False(t, repo.VerifyPassword(ctx, "ana@example.com", "hunter23"))
	assert.False(t, repo.VerifyPassword(ctx, "ghost@example.com", "hunter22"))

	claim := auth.Claim{ID: ana.ID, UserAt: "ana", Email: "ana@example.com"}
	assert.True(t, repo.HasCredentials(ctx, claim))

	require.NoError(t, repo.UpdateEmail(ctx, ana.ID, "ana@new.example"))
	assert.False(t, repo.HasCredentials(ctx, claim), "stale claim must not match")
	claim.Email = "ana@new.example"
	assert.True(t, repo.HasCredentials(ctx, claim))
}

func TestUserRepository_Updates(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewUserRepository(db, testHasher)
	ctx := context.Background()
	ana := createUser(t, repo, "ana")
	createUser(t, repo, "bia")

	assert.ErrorIs(t, repo.UpdateUserAt(ctx, ana.ID, "bia"), ErrUserAtTaken)
	assert.ErrorIs(t, repo.UpdateEmail(ctx, ana.ID, "bia@example.com"), ErrEmailTaken)
	assert.True(t, models.HasCode(repo.UpdateUserAt(ctx, 999, "zed"), models.CodeNotFound))

	require.NoError(t, repo.UpdateUserAt(ctx, ana.ID, "ana_m"))
	require.NoError(t, repo.UpdateProfile(ctx, ana.ID, "Ana M", "hello", []byte("data:image/webp;base64,AAAA")))

	got, err := repo.GetByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana_m", got.UserAt)
	assert.Equal(t, "Ana M", got.Username)
	assert.Equal(t, "hello", got.Bio)
	assert.Equal(t, "data:image/webp;base64,AAAA", got.IconString())

	hash, err := testHasher.Hash("newpass99")
	require.NoError(t, err)
	require.NoError(t, repo.UpdatePassword(ctx, ana.ID, hash))
	assert.True(t, repo.VerifyPassword(ctx, "ana@example.com", "newpass99"))
}

func TestUserRepository_Search(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewUserRepository(db, testHasher)
	ctx := context.Background()
	createUser(t, repo, "ana")
	createUser(t, repo, "mariana")
	createUser(t, repo, "bruno")
	createUser(t, repo, "a_b")

	users, err := repo.Search(ctx, "ANA", 10)
	require.NoError(t, err)
	var handles []string
	for _, u := range users {
		handles = append(handles, u.UserAt)
		assert.Empty(t, u.Password)
	}
	assert.ElementsMatch(t, []string{"ana", "mariana"}, handles)

	// "_" is literal, not a wildcard.
	users, err = repo.Search(ctx, "a_", 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "a_b", users[0].UserAt)
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := setupSQLiteDB(t)
	users := NewUserRepository(db, testHasher)
	follows := NewFollowRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	ana := createUser(t, users, "ana")
	bia := createUser(t, users, "bia")
	caio := createUser(t, users, "caio")

	_, err := follows.Follow(ctx, ana.ID, bia.ID)
	require.NoError(t, err)
	_, err = follows.Follow(ctx, caio.ID, ana.ID)
	require.NoError(t, err)
	_, err = follows.Follow(ctx, caio.ID, bia.ID)
	require.NoError(t, err)

	biaPost := &models.Post{OwnerID: bia.ID, Text: "bia's post"}
	require.NoError(t, posts.Create(ctx, biaPost))
	anaPost := &models.Post{OwnerID: ana.ID, Text: "ana's post"}
	require.NoError(t, posts.Create(ctx, anaPost))

	require.NoError(t, posts.CreateComment(ctx, biaPost.ID, &models.Post{OwnerID: ana.ID, Text: "nice"}))
	require.NoError(t, posts.CreateComment(ctx, biaPost.ID, &models.Post{OwnerID: caio.ID, Text: "agreed"}))
	caioReply := &models.Post{OwnerID: caio.ID, Text: "hi ana"}
	require.NoError(t, posts.CreateComment(ctx, anaPost.ID, caioReply))

	_, err = posts.Like(ctx, ana.ID, biaPost.ID)
	require.NoError(t, err)
	_, err = posts.Like(ctx, bia.ID, anaPost.ID)
	require.NoError(t, err)
	_, err = posts.Like(ctx, bia.ID, caioReply.ID)
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, ana.ID))

	var edges int64
	require.NoError(t, db.Model(&models.Follow{}).Where("follower_id = ? OR following_id = ?", ana.ID, ana.ID).Count(&edges).Error)
	assert.Zero(t, edges)

	assert.Equal(t, 1, reloadUser(t, db, bia.ID).FollowersCount)
	assert.Equal(t, 1, reloadUser(t, db, caio.ID).FollowingCount)
	assert.Equal(t, 0, reloadUser(t, db, caio.ID).FollowersCount)

	p := reloadPost(t, db, biaPost.ID)
	assert.Equal(t, 0, p.LikesCount)
	assert.Equal(t, 1, p.CommentsCount)

	var remaining int64
	require.NoError(t, db.Model(&models.Post{}).Where("id IN ?", []uint{anaPost.ID, caioReply.ID}).Count(&remaining).Error)
	assert.Zero(t, remaining)

	var likes int64
	require.NoError(t, db.Model(&models.PostLike{}).Count(&likes).Error)
	assert.Zero(t, likes)

	assert.True(t, models.HasCode(users.Delete(ctx, ana.ID), models.CodeNotFound))
}
