package archiver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bookshelf/internal/domain"
	"bookshelf/internal/service"
	"bookshelf/internal/storage"
)

// covers larger than this are refused rather than truncated
const maxCoverBytes = 10 << 20

// Manager copies cover images into object storage in the background so a
// shelf survives catalog images going away.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	Enqueue(ctx context.Context, bookID int64) error
	Resume(ctx context.Context) error
}

type Config struct {
	MaxConcurrent int
	FetchTimeout  time.Duration
	UploadOptions storage.UploadOptions
	Logger        *logrus.Logger
}

type manager struct {
	cfg         Config
	bookService service.BookService
	storage     storage.Service
	httpClient  *http.Client

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	active map[int64]struct{}
}

func NewManager(cfg Config, bookService service.BookService, store storage.Service) Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &manager{
		cfg:         cfg,
		bookService: bookService,
		storage:     store,
		httpClient:  &http.Client{Timeout: cfg.FetchTimeout},
		sem:         make(chan struct{}, cfg.MaxConcurrent),
		active:      make(map[int64]struct{}),
	}
}

func (m *manager) Start(ctx context.Context) error {
	if m.storage == nil {
		return fmt.Errorf("storage service is required")
	}
	if m.cfg.UploadOptions.Bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.cfg.Logger.Infof("cover archiver started, bucket: %s", m.cfg.UploadOptions.Bucket)
	return nil
}

func (m *manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.cfg.Logger.Info("cover archiver stopped")
}

func (m *manager) Enqueue(ctx context.Context, bookID int64) error {
	book, err := m.bookService.Get(ctx, bookID)
	if err != nil {
		return err
	}
	m.spawn(*book)
	return nil
}

func (m *manager) Resume(ctx context.Context) error {
	books, err := m.bookService.ListUnarchived(ctx)
	if err != nil {
		return err
	}
	for i := range books {
		m.spawn(books[i])
	}
	return nil
}

func (m *manager) spawn(book domain.Book) {
	if book.CoverURL == "" || book.ArchiveLocation != "" {
		return
	}
	if !m.register(book.ID) {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.unregister(book.ID)
		select {
		case <-m.ctx.Done():
			return
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
			m.archive(m.ctx, book)
		}
	}()
}

// register claims a book for archiving, reporting false when another worker
// already holds it.
func (m *manager) register(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[id]; ok {
		return false
	}
	m.active[id] = struct{}{}
	return true
}

func (m *manager) unregister(id int64) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

func (m *manager) archive(ctx context.Context, book domain.Book) {
	logger := m.cfg.Logger.WithField("book_id", book.ID)

	fetchCtx, cancel := context.WithTimeout(ctx, m.cfg.FetchTimeout)
	defer cancel()

	body, contentType, err := m.fetchCover(fetchCtx, book.CoverURL)
	if err != nil {
		logger.Warnf("fetch cover: %v", err)
		return
	}

	prefix := strings.Trim(m.cfg.UploadOptions.KeyPrefix, "/")
	key := fmt.Sprintf("user-%d/book-%d/%s%s", book.OwnerID, book.ID, uuid.NewString(), coverExt(book.CoverURL, contentType))
	if prefix != "" {
		key = prefix + "/" + key
	}

	location, err := m.storage.PutObject(ctx, m.cfg.UploadOptions.Bucket, key, contentType, bytes.NewReader(body))
	if err != nil {
		logger.Warnf("upload cover: %v", err)
		return
	}

	if err := m.bookService.MarkArchived(ctx, book.ID, location); err != nil {
		logger.Warnf("mark archived: %v", err)
		return
	}
	logger.Infof("cover archived to %s", location)
}

func (m *manager) fetchCover(ctx context.Context, coverURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create cover request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("cover request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("cover status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read cover: %w", err)
	}
	if len(body) > maxCoverBytes {
		return nil, "", fmt.Errorf("cover exceeds %d bytes", maxCoverBytes)
	}
	if len(body) == 0 {
		return nil, "", fmt.Errorf("cover is empty")
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func coverExt(coverURL, contentType string) string {
	if parsed, err := url.Parse(coverURL); err == nil {
		switch ext := strings.ToLower(path.Ext(parsed.Path)); ext {
		case ".jpg", ".jpeg", ".png", ".gif", ".webp":
			return ext
		}
	}
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ".jpg"
}

var _ Manager = (*manager)(nil)
