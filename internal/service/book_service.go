package service

import (
	"context"
	"errors"
	"strings"

	"bookshelf/internal/domain"
	"bookshelf/internal/repository"
)

// BookService coordinates shelf operations backed by the book repository.
type BookService interface {
	Add(ctx context.Context, ownerID int64, title, author, coverURL string) (*domain.Book, error)
	Get(ctx context.Context, id int64) (*domain.Book, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Book, error)
	RemoveMatching(ctx context.Context, ownerID int64, title, author string) ([]domain.Book, error)
	MarkArchived(ctx context.Context, id int64, location string) error
	ListUnarchived(ctx context.Context) ([]domain.Book, error)
}

type bookService struct {
	books repository.BookRepository
}

func NewBookService(books repository.BookRepository) BookService {
	return &bookService{books: books}
}

func (s *bookService) Add(ctx context.Context, ownerID int64, title, author, coverURL string) (*domain.Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	coverURL = strings.TrimSpace(coverURL)

	if ownerID <= 0 {
		return nil, errors.New("owner is required")
	}
	if title == "" {
		return nil, errors.New("title is required")
	}

	book := &domain.Book{
		OwnerID:  ownerID,
		Title:    title,
		Author:   author,
		CoverURL: coverURL,
	}

	if _, err := s.books.Create(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *bookService) Get(ctx context.Context, id int64) (*domain.Book, error) {
	return s.books.Get(ctx, id)
}

func (s *bookService) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Book, error) {
	return s.books.ListByOwner(ctx, ownerID)
}

// RemoveMatching deletes every copy of the titled book on the owner's shelf
// and reports what was removed. Removing an absent book removes nothing.
func (s *bookService) RemoveMatching(ctx context.Context, ownerID int64, title, author string) ([]domain.Book, error) {
	return s.books.DeleteMatching(ctx, ownerID, strings.TrimSpace(title), strings.TrimSpace(author))
}

func (s *bookService) MarkArchived(ctx context.Context, id int64, location string) error {
	return s.books.MarkArchived(ctx, id, location)
}

func (s *bookService) ListUnarchived(ctx context.Context) ([]domain.Book, error) {
	return s.books.ListUnarchived(ctx)
}
