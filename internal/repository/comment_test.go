package repository

import (
	"context"
	"regexp"
	"testing"

	"newsboard/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_CountReplies(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "comments" WHERE parent_id = $1`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountReplies(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_ListByPostIncludesReplies(t *testing.T) {
	db := setupSQLite(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "ada")
	post := seedPost(t, db, user.ID, "thread")
	other := seedPost(t, db, user.ID, "elsewhere")
	parent := seedComment(t, db, user.ID, post.ID, nil, "parent")
	reply := seedComment(t, db, user.ID, post.ID, &parent.ID, "reply")
	seedComment(t, db, user.ID, other.ID, nil, "not on this post")

	comments, total, err := repo.ListByPost(ctx, post.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, comments, 2)

	// newest first: the reply was written last
	assert.Equal(t, reply.ID, comments[0].ID)
	assert.Equal(t, parent.ID, comments[1].ID)
	assert.Equal(t, 1, comments[1].ReplyCount)
	require.Len(t, comments[1].Replies, 1)
	assert.Equal(t, reply.ID, comments[1].Replies[0].ID)
	assert.Equal(t, "ada", comments[1].User.Username)

	replies, total, err := repo.ListReplies(ctx, parent.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, reply.ID, replies[0].ID)
}

func TestCommentRepository_ListByPost_Empty(t *testing.T) {
	db := setupSQLite(t)
	repo := NewCommentRepository(db)

	user := seedUser(t, db, "ada")
	post := seedPost(t, db, user.ID, "silent")

	comments, total, err := repo.ListByPost(context.Background(), post.ID, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, comments)
}

func TestCommentRepository_DeleteRefusesWithReplies(t *testing.T) {
	db := setupSQLite(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "ada")
	post := seedPost(t, db, user.ID, "thread")
	parent := seedComment(t, db, user.ID, post.ID, nil, "parent")
	reply := seedComment(t, db, user.ID, post.ID, &parent.ID, "reply")
	sibling := seedComment(t, db, user.ID, post.ID, nil, "sibling")

	err := repo.Delete(ctx, parent.ID)
	assert.ErrorIs(t, err, models.ErrHasReplies)

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	require.NoError(t, repo.Delete(ctx, reply.ID))
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	_, err = repo.GetByID(ctx, sibling.ID)
	assert.NoError(t, err)
	_, err = repo.GetByID(ctx, reply.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, reply.ID), models.ErrNotFound)
}

func TestCommentRepository_Update(t *testing.T) {
	db := setupSQLite(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "ada")
	post := seedPost(t, db, user.ID, "thread")
	comment := seedComment(t, db, user.ID, post.ID, nil, "draft")

	comment.Content = "final"
	require.NoError(t, repo.Update(ctx, comment))

	got, err := repo.GetByID(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Content)
	assert.Equal(t, post.ID, got.PostID)
}
