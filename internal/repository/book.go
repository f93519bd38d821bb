package repository

import (
	"context"

	"bookshelf/internal/domain"
)

// BookRepository exposes persistence operations for Book rows.
type BookRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, book *domain.Book) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Book, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Book, error)
	// DeleteMatching removes every row owned by ownerID whose title and author
	// equal the given pair and returns the removed rows. No match is not an
	// error; the returned slice is simply empty.
	DeleteMatching(ctx context.Context, ownerID int64, title, author string) ([]domain.Book, error)
	MarkArchived(ctx context.Context, id int64, location string) error
	// ListUnarchived returns books that have a cover URL but no archived copy
	// yet, oldest first.
	ListUnarchived(ctx context.Context) ([]domain.Book, error)
}
