package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pericope-app/pericope/internal/study"
)

type studySessionPayload struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	ReferenceID string `json:"reference_id"`
	NoteID      string `json:"note_id,omitempty"`
	ViewedAt    string `json:"viewed_at"`
}

type studySessionRequestPayload struct {
	Kind        string `json:"kind"`
	ReferenceID string `json:"reference_id"`
	NoteID      string `json:"note_id"`
}

func studySessionToPayload(session study.Session) studySessionPayload {
	return studySessionPayload{
		ID:          session.SessionID,
		Kind:        string(session.Kind),
		ReferenceID: session.ReferenceID,
		NoteID:      session.NoteID,
		ViewedAt:    session.ViewedAt,
	}
}

func (h *httpHandler) handleLogStudySession(c *gin.Context) {
	var request studySessionRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	session, err := h.study.Log(c.Request.Context(),
		study.SessionKind(request.Kind), request.ReferenceID, request.NoteID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, studySessionToPayload(session))
}

func (h *httpHandler) handleStudySummary(c *gin.Context) {
	windowDays := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_days"})
			return
		}
		windowDays = parsed
	}
	summary, err := h.study.Summarize(c.Request.Context(), windowDays)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *httpHandler) handleRecentStudySessions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
			return
		}
		limit = parsed
	}
	sessions, err := h.study.Recent(c.Request.Context(), limit)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	payloads := make([]studySessionPayload, 0, len(sessions))
	for _, session := range sessions {
		payloads = append(payloads, studySessionToPayload(session))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": payloads})
}
