package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bookshelf/internal/archiver"
	"bookshelf/internal/auth"
	"bookshelf/internal/catalog"
	"bookshelf/internal/domain"
	"bookshelf/internal/service"
	"bookshelf/internal/storage"
)

const (
	sessionCookie = "bookshelf_session"
	ctxUserID     = "userID"
	pageSize      = 20
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users        service.UserService
	books        service.BookService
	catalog      *catalog.Client
	sessions     *auth.Sessions
	archiver     archiver.Manager
	storage      storage.Service
	bucket       string
	secureCookie bool
	logger       *logrus.Logger
}

func NewHandler(
	users service.UserService,
	books service.BookService,
	catalogClient *catalog.Client,
	sessions *auth.Sessions,
	manager archiver.Manager,
	store storage.Service,
	bucket string,
	secureCookie bool,
	logger *logrus.Logger,
) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:        users,
		books:        books,
		catalog:      catalogClient,
		sessions:     sessions,
		archiver:     manager,
		storage:      store,
		bucket:       bucket,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.index)
	router.GET("/login", h.loginForm)
	router.POST("/login", h.login)
	router.GET("/signUp", h.signUpForm)
	router.POST("/signUp", h.signUp)
	router.POST("/profileView", h.profileView)
	router.POST("/search", h.search)
	router.GET("/logout", h.logout)

	protected := router.Group("/", h.requireSession())
	{
		protected.GET("/profile", h.profile)
		protected.POST("/addBook", h.addBook)
		protected.POST("/deleteBook", h.deleteBook)
	}
}

// RecoveryHandler logs the panic value and sends the client back to the
// landing page instead of a stack trace.
func RecoveryHandler(logger *logrus.Logger) gin.RecoveryFunc {
	return func(c *gin.Context, err any) {
		logger.Errorf("panic recovered: %v", err)
		c.Redirect(http.StatusFound, "/")
		c.Abort()
	}
}

// requireSession admits only requests carrying a verifiable session cookie.
// Anything else loses its cookie and lands back on the index page.
func (h *Handler) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(sessionCookie); err == nil {
			if userID, err := h.sessions.Verify(token); err == nil {
				c.Set(ctxUserID, userID)
				c.Next()
				return
			}
		}
		h.clearSessionCookie(c)
		c.Redirect(http.StatusFound, "/")
		c.Abort()
	}
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, int(h.sessions.TTL().Seconds()), "/", "", h.secureCookie, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", h.secureCookie, true)
}

type loginRequest struct {
	Username string `form:"Username"`
	Password string `form:"Password"`
}

type signUpRequest struct {
	Username        string `form:"Username"`
	Password        string `form:"Password"`
	ConfirmPassword string `form:"confirmPassword"`
}

type profileViewRequest struct {
	User string `form:"user"`
}

type searchRequest struct {
	Title  string `form:"bookTitle"`
	Author string `form:"bookAuthor"`
	Index  int    `form:"index"`
}

type addBookRequest struct {
	Title    string `form:"title"`
	Author   string `form:"author"`
	CoverURL string `form:"coverUrl"`
}

type deleteBookRequest struct {
	Title  string `form:"title"`
	Author string `form:"author"`
}

// index lists every account on the shelf. Landing here always resets the
// visitor to anonymous.
func (h *Handler) index(c *gin.Context) {
	h.clearSessionCookie(c)

	usernames, err := h.users.ListUsernames(c.Request.Context())
	if err != nil {
		h.logger.Errorf("list usernames: %v", err)
	}
	display := make([]string, len(usernames))
	for i, name := range usernames {
		display[i] = strings.ToUpper(name)
	}

	c.HTML(http.StatusOK, "index.html", gin.H{"Usernames": display})
}

func (h *Handler) loginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusBadRequest, "login.html", gin.H{"Error": "Invalid username or password."})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.HTML(http.StatusUnauthorized, "login.html", gin.H{"Error": "Invalid username or password."})
			return
		}
		h.logger.Errorf("authenticate: %v", err)
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{"Error": "Something went wrong. Try again."})
		return
	}

	token, err := h.sessions.Issue(user.ID)
	if err != nil {
		h.logger.Errorf("issue session: %v", err)
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{"Error": "Something went wrong. Try again."})
		return
	}

	h.setSessionCookie(c, token)
	c.Redirect(http.StatusFound, "/profile")
}

func (h *Handler) signUpForm(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", gin.H{})
}

func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusBadRequest, "signup.html", gin.H{"Error": "All fields are required."})
		return
	}

	username := strings.TrimSpace(req.Username)
	switch {
	case username == "":
		c.HTML(http.StatusBadRequest, "signup.html", gin.H{"Error": "Username is required."})
		return
	case strings.TrimSpace(req.Password) == "":
		c.HTML(http.StatusBadRequest, "signup.html", gin.H{"Error": "Password is required."})
		return
	case req.Password != req.ConfirmPassword:
		c.HTML(http.StatusBadRequest, "signup.html", gin.H{"Error": "Passwords do not match."})
		return
	}

	if _, err := h.users.Register(c.Request.Context(), username, req.Password); err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			c.HTML(http.StatusConflict, "signup.html", gin.H{"Error": "Username is already taken."})
			return
		}
		h.logger.Errorf("register: %v", err)
		c.HTML(http.StatusInternalServerError, "signup.html", gin.H{"Error": "Something went wrong. Try again."})
		return
	}

	// no auto-login: the new account proves itself at the login form
	c.HTML(http.StatusOK, "login.html", gin.H{"Notice": "Account created. Log in to continue."})
}

func (h *Handler) profile(c *gin.Context) {
	userID := c.GetInt64(ctxUserID)

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Warnf("load profile user %d: %v", userID, err)
		h.clearSessionCookie(c)
		c.Redirect(http.StatusFound, "/")
		return
	}

	books, err := h.books.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		h.logger.Errorf("list books: %v", err)
		c.HTML(http.StatusInternalServerError, "profile.html", gin.H{
			"Username": user.Username,
			"Error":    "Could not load your shelf.",
		})
		return
	}

	c.HTML(http.StatusOK, "profile.html", gin.H{
		"Username": user.Username,
		"Books":    booksToViews(books),
	})
}

// profileView shows any user's shelf by name. An unknown name renders an
// empty shelf rather than an error.
func (h *Handler) profileView(c *gin.Context) {
	var req profileViewRequest
	if err := c.ShouldBind(&req); err != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	user, err := h.users.FindProfile(c.Request.Context(), req.User)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.HTML(http.StatusOK, "profile_view.html", gin.H{
				"Username": strings.TrimSpace(req.User),
			})
			return
		}
		h.logger.Errorf("find profile: %v", err)
		c.Redirect(http.StatusFound, "/")
		return
	}

	books, err := h.books.ListByOwner(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Errorf("list books for %s: %v", user.Username, err)
		c.HTML(http.StatusInternalServerError, "profile_view.html", gin.H{
			"Username": user.Username,
			"Error":    "Could not load this shelf.",
		})
		return
	}

	c.HTML(http.StatusOK, "profile_view.html", gin.H{
		"Username": user.Username,
		"Books":    booksToViews(books),
	})
}

func (h *Handler) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusBadRequest, "search.html", gin.H{
			"Error":      "Invalid search request.",
			"BookTitle":  "",
			"BookAuthor": "",
		})
		return
	}

	results := h.catalog.Search(c.Request.Context(), req.Title, req.Author)
	pg := paginate(results, req.Index)

	c.HTML(http.StatusOK, "search.html", gin.H{
		"BookTitle":  req.Title,
		"BookAuthor": req.Author,
		"Results":    resultsToViews(pg.items),
		"Page":       pg.number,
		"TotalPages": pg.total,
		"HasPrev":    pg.number > 1,
		"HasNext":    pg.number < pg.total,
		"PrevPage":   pg.number - 1,
		"NextPage":   pg.number + 1,
	})
}

func (h *Handler) addBook(c *gin.Context) {
	userID := c.GetInt64(ctxUserID)

	var req addBookRequest
	if err := c.ShouldBind(&req); err != nil {
		c.Redirect(http.StatusFound, "/profile")
		return
	}

	// the owner is always the session holder, whatever the form claims
	book, err := h.books.Add(c.Request.Context(), userID, req.Title, req.Author, req.CoverURL)
	if err != nil {
		h.logger.Warnf("add book: %v", err)
		c.Redirect(http.StatusFound, "/profile")
		return
	}

	if h.archiver != nil {
		if err := h.archiver.Enqueue(c.Request.Context(), book.ID); err != nil {
			h.logger.Warnf("enqueue cover archive: %v", err)
		}
	}

	c.Redirect(http.StatusFound, "/profile")
}

func (h *Handler) deleteBook(c *gin.Context) {
	userID := c.GetInt64(ctxUserID)

	var req deleteBookRequest
	if err := c.ShouldBind(&req); err != nil {
		c.Redirect(http.StatusFound, "/profile")
		return
	}

	removed, err := h.books.RemoveMatching(c.Request.Context(), userID, req.Title, req.Author)
	if err != nil {
		h.logger.Errorf("delete books: %v", err)
		c.Redirect(http.StatusFound, "/profile")
		return
	}

	if h.storage != nil && h.bucket != "" {
		cleanupCtx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()
		for i := range removed {
			prefix, err := archivePrefix(removed[i].ArchiveLocation, h.bucket)
			if err != nil {
				h.logger.Warnf("archive location for book %d: %v", removed[i].ID, err)
				continue
			}
			if prefix == "" {
				continue
			}
			if err := h.storage.DeletePrefix(cleanupCtx, h.bucket, prefix); err != nil {
				h.logger.Warnf("delete archived cover for book %d: %v", removed[i].ID, err)
			}
		}
	}

	c.Redirect(http.StatusFound, "/profile")
}

func (h *Handler) logout(c *gin.Context) {
	h.clearSessionCookie(c)
	c.Redirect(http.StatusFound, "/")
}

type page struct {
	items  []domain.CatalogResult
	number int
	total  int
}

// paginate slices the full result set into fixed pages. The requested index
// is 1-based and clamps into range, so a stale page link never errors.
func paginate(results []domain.CatalogResult, index int) page {
	total := (len(results) + pageSize - 1) / pageSize
	if total == 0 {
		return page{number: 1}
	}
	if index < 1 {
		index = 1
	}
	if index > total {
		index = total
	}
	start := (index - 1) * pageSize
	end := start + pageSize
	if end > len(results) {
		end = len(results)
	}
	return page{items: results[start:end], number: index, total: total}
}

type BookView struct {
	Title    string
	Author   string
	CoverURL string
}

type ResultView struct {
	Title    string
	Author   string
	CoverURL string
	ISBN     string
}

func booksToViews(books []domain.Book) []BookView {
	views := make([]BookView, len(books))
	for i := range books {
		views[i] = BookView{
			Title:    books[i].Title,
			Author:   books[i].Author,
			CoverURL: books[i].CoverURL,
		}
	}
	return views
}

func resultsToViews(results []domain.CatalogResult) []ResultView {
	views := make([]ResultView, len(results))
	for i := range results {
		views[i] = ResultView{
			Title:    results[i].Title,
			Author:   results[i].Author,
			CoverURL: results[i].CoverURL,
			ISBN:     results[i].ISBN,
		}
	}
	return views
}

func archivePrefix(location, bucket string) (string, error) {
	if location == "" {
		return "", nil
	}
	if !strings.HasPrefix(location, "s3://") {
		return "", fmt.Errorf("invalid archive location")
	}
	rest := strings.TrimPrefix(location, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid archive location")
	}
	if bucket != "" && parts[0] != bucket {
		return "", fmt.Errorf("archive bucket mismatch")
	}

	key := strings.TrimPrefix(parts[1], "/")
	if dir := path.Dir(key); dir != "." && dir != "/" {
		return dir + "/", nil
	}
	return key, nil
}
