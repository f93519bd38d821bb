package domain

import "time"

// Book is a single entry in a user's collection. Books are matched for
// deletion by (OwnerID, Title, Author), so the triple is the practical
// identity even though every row carries a generated ID.
type Book struct {
	ID              int64
	OwnerID         int64
	Title           string
	Author          string
	CoverURL        string
	ArchiveLocation string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
