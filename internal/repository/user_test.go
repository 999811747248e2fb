package repository

import (
	"context"
	"regexp"
	"testing"

	"newsboard/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_GetByUsername(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name          string
		username      string
		mockBehavior  func()
		expectedError error
	}{
		{
			name:     "Success",
			username: "ada",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE username = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs("ada", 1).
					WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password"}).AddRow(1, "ada", "hash"))
			},
		},
		{
			name:     "Not Found",
			username: "ghost",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE username = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs("ghost", 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			expectedError: models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()

			user, err := repo.GetByUsername(ctx, tt.username)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.username, user.Username)
				assert.Equal(t, "hash", user.Password)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CreateDuplicateIsConflict(t *testing.T) {
	db := setupSQLite(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "ada", Password: "x"}))
	err := repo.Create(ctx, &models.User{Username: "ada", Password: "y"})

	assert.ErrorIs(t, err, models.ErrConflict)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "username", appErr.Field)
}

func TestUserRepository_List(t *testing.T) {
	db := setupSQLite(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "ada")
	last := seedUser(t, db, "bob")

	users, total, err := repo.List(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, users, 1)
	assert.Equal(t, last.ID, users[0].ID)

	_, err = repo.GetByID(ctx, 42)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
