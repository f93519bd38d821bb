package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookshelf/internal/domain"
	"bookshelf/internal/repository"
)

const createBooksTable = `
CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	title TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	cover_url TEXT NOT NULL DEFAULT '',
	archive_location TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) repository.BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createBooksTable); err != nil {
		return fmt.Errorf("create books table: %w", err)
	}
	return nil
}

func (r *BookRepository) Create(ctx context.Context, book *domain.Book) (int64, error) {
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO books (user_id, title, author, cover_url, archive_location, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		book.OwnerID,
		book.Title,
		book.Author,
		book.CoverURL,
		book.ArchiveLocation,
		book.CreatedAt,
		book.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert book: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("book last insert id: %w", err)
	}
	book.ID = id
	return id, nil
}

func (r *BookRepository) Get(ctx context.Context, id int64) (*domain.Book, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, title, author, cover_url, archive_location, created_at, updated_at
FROM books
WHERE id = ?`,
		id,
	)
	return scanBook(row)
}

func (r *BookRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Book, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, title, author, cover_url, archive_location, created_at, updated_at
FROM books
WHERE user_id = ?
ORDER BY id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *book)
	}
	return books, rows.Err()
}

// DeleteMatching removes every book of the owner with the given title and
// author and reports the removed rows, so callers can release whatever those
// rows referenced. Matching nothing is not an error.
func (r *BookRepository) DeleteMatching(ctx context.Context, ownerID int64, title, author string) ([]domain.Book, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
SELECT id, user_id, title, author, cover_url, archive_location, created_at, updated_at
FROM books
WHERE user_id = ? AND title = ? AND author = ?`,
		ownerID,
		title,
		author,
	)
	if err != nil {
		return nil, fmt.Errorf("query matching books: %w", err)
	}

	var books []domain.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate matching books: %w", err)
	}
	rows.Close()

	if len(books) == 0 {
		return nil, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
DELETE FROM books
WHERE user_id = ? AND title = ? AND author = ?`,
		ownerID,
		title,
		author,
	); err != nil {
		return nil, fmt.Errorf("delete books: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit book delete: %w", err)
	}
	return books, nil
}

func (r *BookRepository) MarkArchived(ctx context.Context, id int64, location string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE books
SET archive_location = ?, updated_at = ?
WHERE id = ?`,
		location,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark book archived: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("book archive rows affected: %w", err)
	}
	if aff == 0 {
		return fmt.Errorf("book not found")
	}
	return nil
}

// ListUnarchived reports books that have a cover to fetch but no archive copy
// yet. Books added without a cover are skipped entirely.
func (r *BookRepository) ListUnarchived(ctx context.Context) ([]domain.Book, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, title, author, cover_url, archive_location, created_at, updated_at
FROM books
WHERE cover_url <> '' AND archive_location = ''
ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query unarchived books: %w", err)
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *book)
	}
	return books, rows.Err()
}

func scanBook(scanner interface {
	Scan(dest ...any) error
}) (*domain.Book, error) {
	var book domain.Book
	if err := scanner.Scan(
		&book.ID,
		&book.OwnerID,
		&book.Title,
		&book.Author,
		&book.CoverURL,
		&book.ArchiveLocation,
		&book.CreatedAt,
		&book.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("book not found")
		}
		return nil, fmt.Errorf("scan book: %w", err)
	}
	return &book, nil
}
