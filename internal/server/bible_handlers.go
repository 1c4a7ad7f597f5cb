package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pericope-app/pericope/internal/scripture"
	"go.uber.org/zap"
)

type bookPayload struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Chapters int    `json:"chapters"`
}

func (h *httpHandler) handleListBooks(c *gin.Context) {
	books := scripture.Books()
	payloads := make([]bookPayload, 0, len(books))
	for _, book := range books {
		payloads = append(payloads, bookPayload{Code: book.Code, Name: book.Name, Chapters: book.Chapters})
	}
	c.JSON(http.StatusOK, gin.H{"books": payloads})
}

// handleFetchPassage proxies the external Bible-text API for one chapter or
// a verse range within it.
func (h *httpHandler) handleFetchPassage(c *gin.Context) {
	if h.bibleClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "bible_api_unconfigured"})
		return
	}

	chapter, err := strconv.Atoi(c.Param("chapter"))
	if err != nil || chapter < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_chapter"})
		return
	}
	startVerse, endVerse := 0, 0
	if raw := c.Query("start_verse"); raw != "" {
		if startVerse, err = strconv.Atoi(raw); err != nil || startVerse < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_start_verse"})
			return
		}
	}
	if raw := c.Query("end_verse"); raw != "" {
		if endVerse, err = strconv.Atoi(raw); err != nil || endVerse < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_end_verse"})
			return
		}
	}

	ref, err := scripture.NewReference(c.Param("book"), chapter, startVerse, chapter, endVerse)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	passage, err := h.bibleClient.FetchPassage(c.Request.Context(), ref, c.Query("translation"))
	if err != nil {
		if errors.Is(err, scripture.ErrUpstreamFailure) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "bible_api_unavailable"})
			return
		}
		h.logger.Error("passage fetch failed", zap.String("reference", ref.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "passage_fetch_failed"})
		return
	}
	c.JSON(http.StatusOK, passage)
}
