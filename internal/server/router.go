package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pericope-app/pericope/internal/apperr"
	"github.com/pericope-app/pericope/internal/auth"
	"github.com/pericope-app/pericope/internal/notes"
	"github.com/pericope-app/pericope/internal/scripture"
	"github.com/pericope-app/pericope/internal/study"
	"github.com/pericope-app/pericope/internal/theology"
	"go.uber.org/zap"
)

var (
	errMissingPasswordGate   = errors.New("password gate dependency required")
	errMissingSessionStore   = errors.New("session store dependency required")
	errMissingTokenIssuer    = errors.New("token issuer dependency required")
	errMissingNotesService   = errors.New("notes service dependency required")
	errMissingTheologyService = errors.New("theology service dependency required")
	errMissingStudyService   = errors.New("study service dependency required")
	errMissingAuthorization  = errors.New("session cookie or authorization header required")
)

// Dependencies wires the services behind the HTTP API.
type Dependencies struct {
	PasswordGate    *auth.PasswordGate
	SessionStore    *auth.SessionStore
	TokenIssuer     *auth.TokenIssuer
	NotesService    *notes.Service
	TheologyService *theology.Service
	StudyService    *study.Service
	BibleClient     *scripture.Client
	CookieName      string
	Logger          *zap.Logger
}

// NewHTTPHandler assembles the gin router for the API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.PasswordGate == nil {
		return nil, errMissingPasswordGate
	}
	if deps.SessionStore == nil {
		return nil, errMissingSessionStore
	}
	if deps.TokenIssuer == nil {
		return nil, errMissingTokenIssuer
	}
	if deps.NotesService == nil {
		return nil, errMissingNotesService
	}
	if deps.TheologyService == nil {
		return nil, errMissingTheologyService
	}
	if deps.StudyService == nil {
		return nil, errMissingStudyService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cookieName := strings.TrimSpace(deps.CookieName)
	if cookieName == "" {
		cookieName = "pericope_session"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		gate:        deps.PasswordGate,
		sessions:    deps.SessionStore,
		tokens:      deps.TokenIssuer,
		notes:       deps.NotesService,
		theology:    deps.TheologyService,
		study:       deps.StudyService,
		bibleClient: deps.BibleClient,
		cookieName:  cookieName,
		logger:      logger,
	}

	router.POST("/auth/login", handler.handleLogin)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	protected.POST("/auth/logout", handler.handleLogout)

	protected.GET("/books", handler.handleListBooks)
	protected.GET("/bible/:book/:chapter", handler.handleFetchPassage)

	protected.GET("/notes", handler.handleListNotes)
	protected.POST("/notes", handler.handleCreateNote)
	protected.GET("/notes/search", handler.handleSearchNotes)
	protected.GET("/notes/tags", handler.handleListTagLabels)
	protected.GET("/notes/:id", handler.handleGetNote)
	protected.PUT("/notes/:id", handler.handleUpdateNote)
	protected.DELETE("/notes/:id", handler.handleDeleteNote)

	protected.GET("/topics", handler.handleListTopics)
	protected.GET("/topics/tree", handler.handleTopicTree)
	protected.POST("/topics", handler.handleCreateTopic)
	protected.PUT("/topics/:id", handler.handleUpdateTopic)
	protected.DELETE("/topics/:id", handler.handleDeleteTopic)

	protected.GET("/series", handler.handleListSeries)
	protected.POST("/series", handler.handleCreateSeries)
	protected.GET("/series/:id", handler.handleGetSeries)
	protected.PUT("/series/:id", handler.handleUpdateSeries)
	protected.DELETE("/series/:id", handler.handleDeleteSeries)
	protected.PUT("/series/:id/notes", handler.handleSetSeriesNotes)

	protected.GET("/theology/outline", handler.handleTheologyOutline)
	protected.GET("/theology/resolve", handler.handleTheologyResolve)
	protected.GET("/theology/search", handler.handleTheologySearch)
	protected.GET("/theology/passage/:book/:chapter", handler.handleTheologyPassage)
	protected.POST("/theology/corpus", handler.handleCorpusImport)
	protected.GET("/theology/entries/:id", handler.handleGetTheologyEntry)
	protected.PUT("/theology/entries/:id", handler.handleUpsertTheologyEntry)
	protected.DELETE("/theology/entries/:id", handler.handleDeleteTheologyEntry)
	protected.GET("/theology/entries/:id/annotations", handler.handleListAnnotations)
	protected.POST("/theology/entries/:id/annotations", handler.handleCreateAnnotation)
	protected.PUT("/theology/annotations/:id", handler.handleUpdateAnnotation)
	protected.DELETE("/theology/annotations/:id", handler.handleDeleteAnnotation)

	protected.POST("/study/sessions", handler.handleLogStudySession)
	protected.GET("/study/summary", handler.handleStudySummary)
	protected.GET("/study/recent", handler.handleRecentStudySessions)

	protected.GET("/backup/export", handler.handleBackupExport)
	protected.POST("/backup/import", handler.handleBackupImport)

	return router, nil
}

type httpHandler struct {
	gate        *auth.PasswordGate
	sessions    *auth.SessionStore
	tokens      *auth.TokenIssuer
	notes       *notes.Service
	theology    *theology.Service
	study       *study.Service
	bibleClient *scripture.Client
	cookieName  string
	logger      *zap.Logger
}

// authorizeRequest accepts either the opaque session cookie or a Bearer
// token issued at login.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	if cookie, err := c.Cookie(h.cookieName); err == nil && cookie != "" {
		if err := h.sessions.Validate(c.Request.Context(), cookie); err == nil {
			c.Next()
			return
		}
	}

	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token != "" {
			if _, err := h.tokens.ValidateToken(token); err == nil {
				c.Next()
				return
			}
			h.logger.Warn("bearer token validation failed")
		}
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMissingAuthorization.Error()})
}

// respondServiceError maps dotted service error codes onto HTTP statuses.
func (h *httpHandler) respondServiceError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	reason := code
	if idx := strings.LastIndex(code, "."); idx >= 0 {
		reason = code[idx+1:]
	}

	status := http.StatusInternalServerError
	switch {
	case reason == "not_found" || strings.HasSuffix(reason, "_not_found"):
		status = http.StatusNotFound
	case strings.HasPrefix(reason, "invalid_"),
		strings.HasPrefix(reason, "missing_"),
		strings.HasPrefix(reason, "unknown_"),
		strings.HasPrefix(reason, "unsupported_"),
		strings.HasPrefix(reason, "cyclic_parent"):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("code", code), zap.Error(err))
	}

	if code == "" {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(status, gin.H{"error": reason, "code": code})
}
