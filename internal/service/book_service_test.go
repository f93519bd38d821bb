package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/domain"
	"bookshelf/internal/repository/sqlite"
)

func newBookService(t *testing.T) (BookService, int64) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db)
	require.NoError(t, users.Init(ctx))
	ownerID, err := users.Create(ctx, &domain.User{Username: "bilbo", PasswordHash: "x"})
	require.NoError(t, err)

	books := sqlite.NewBookRepository(db)
	require.NoError(t, books.Init(ctx))
	return NewBookService(books), ownerID
}

func TestBookServiceAdd(t *testing.T) {
	ctx := context.Background()
	svc, ownerID := newBookService(t)

	book, err := svc.Add(ctx, ownerID, "  The Hobbit  ", " J.R.R. Tolkien ", " http://covers/1.jpg ")
	require.NoError(t, err)
	assert.Equal(t, "The Hobbit", book.Title)
	assert.Equal(t, "J.R.R. Tolkien", book.Author)
	assert.Equal(t, "http://covers/1.jpg", book.CoverURL)
	assert.Equal(t, ownerID, book.OwnerID)
	assert.NotZero(t, book.ID)
}

func TestBookServiceAddValidation(t *testing.T) {
	ctx := context.Background()
	svc, ownerID := newBookService(t)

	_, err := svc.Add(ctx, ownerID, "   ", "someone", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title is required")

	_, err = svc.Add(ctx, 0, "The Hobbit", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner is required")
}

func TestBookServiceListByOwner(t *testing.T) {
	ctx := context.Background()
	svc, ownerID := newBookService(t)

	_, err := svc.Add(ctx, ownerID, "Dune", "Frank Herbert", "")
	require.NoError(t, err)
	_, err = svc.Add(ctx, ownerID, "Dune Messiah", "Frank Herbert", "")
	require.NoError(t, err)

	books, err := svc.ListByOwner(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, "Dune Messiah", books[1].Title)

	none, err := svc.ListByOwner(ctx, ownerID+1)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBookServiceRemoveMatching(t *testing.T) {
	ctx := context.Background()
	svc, ownerID := newBookService(t)

	for i := 0; i < 2; i++ {
		_, err := svc.Add(ctx, ownerID, "Dune", "Frank Herbert", "")
		require.NoError(t, err)
	}

	removed, err := svc.RemoveMatching(ctx, ownerID, " Dune ", " Frank Herbert ")
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	left, err := svc.ListByOwner(ctx, ownerID)
	require.NoError(t, err)
	assert.Empty(t, left)

	removed, err = svc.RemoveMatching(ctx, ownerID, "Dune", "Frank Herbert")
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestBookServiceArchiveFlow(t *testing.T) {
	ctx := context.Background()
	svc, ownerID := newBookService(t)

	book, err := svc.Add(ctx, ownerID, "Dune", "Frank Herbert", "http://covers/dune.jpg")
	require.NoError(t, err)

	pending, err := svc.ListUnarchived(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, book.ID, pending[0].ID)

	require.NoError(t, svc.MarkArchived(ctx, book.ID, "s3://bucket/covers/dune.jpg"))

	pending, err = svc.ListUnarchived(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	got, err := svc.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/covers/dune.jpg", got.ArchiveLocation)
}
