package domain

// CatalogResult is one hit from the external book catalog. Results are
// transient: they populate the add-book form and are never persisted.
type CatalogResult struct {
	Title    string
	Author   string
	CoverURL string
	ISBN     string
}
