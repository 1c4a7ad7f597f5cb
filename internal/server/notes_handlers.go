package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pericope-app/pericope/internal/notes"
)

type notePayload struct {
	ID           string             `json:"id"`
	Type         string             `json:"type"`
	Title        string             `json:"title"`
	Content      string             `json:"content"`
	Book         string             `json:"book"`
	StartChapter int                `json:"start_chapter"`
	StartVerse   int                `json:"start_verse,omitempty"`
	EndChapter   int                `json:"end_chapter"`
	EndVerse     int                `json:"end_verse,omitempty"`
	TopicIDs     []string           `json:"topic_ids,omitempty"`
	InlineTags   []inlineTagPayload `json:"inline_tags,omitempty"`
	CreatedAt    string             `json:"created_at"`
	UpdatedAt    string             `json:"updated_at"`
}

type inlineTagPayload struct {
	Label   string `json:"label"`
	Excerpt string `json:"excerpt,omitempty"`
}

type noteRequestPayload struct {
	Type         string             `json:"type"`
	Title        string             `json:"title"`
	Content      string             `json:"content"`
	Book         string             `json:"book"`
	StartChapter int                `json:"start_chapter"`
	StartVerse   int                `json:"start_verse"`
	EndChapter   int                `json:"end_chapter"`
	EndVerse     int                `json:"end_verse"`
	TopicIDs     []string           `json:"topic_ids"`
	InlineTags   []inlineTagPayload `json:"inline_tags"`
}

func noteToPayload(note notes.Note) notePayload {
	return notePayload{
		ID:           note.NoteID,
		Type:         string(note.Kind),
		Title:        note.Title,
		Content:      note.Content,
		Book:         note.Book,
		StartChapter: note.StartChapter,
		StartVerse:   note.StartVerse,
		EndChapter:   note.EndChapter,
		EndVerse:     note.EndVerse,
		CreatedAt:    note.CreatedAt,
		UpdatedAt:    note.UpdatedAt,
	}
}

func noteDetailToPayload(detail notes.NoteDetail) notePayload {
	payload := noteToPayload(detail.Note)
	payload.TopicIDs = detail.TopicIDs
	for _, tag := range detail.InlineTags {
		payload.InlineTags = append(payload.InlineTags, inlineTagPayload{Label: tag.Label, Excerpt: tag.Excerpt})
	}
	return payload
}

func noteInputFromRequest(request noteRequestPayload) notes.NoteInput {
	input := notes.NoteInput{
		Kind:         request.Type,
		Title:        request.Title,
		Content:      request.Content,
		Book:         request.Book,
		StartChapter: request.StartChapter,
		StartVerse:   request.StartVerse,
		EndChapter:   request.EndChapter,
		EndVerse:     request.EndVerse,
		TopicIDs:     request.TopicIDs,
	}
	for _, tag := range request.InlineTags {
		input.InlineTags = append(input.InlineTags, notes.InlineTagInput{Label: tag.Label, Excerpt: tag.Excerpt})
	}
	return input
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	var request noteRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	detail, err := h.notes.CreateNote(c.Request.Context(), noteInputFromRequest(request))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, noteDetailToPayload(detail))
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	var request noteRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	detail, err := h.notes.UpdateNote(c.Request.Context(), c.Param("id"), noteInputFromRequest(request))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, noteDetailToPayload(detail))
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	if err := h.notes.DeleteNote(c.Request.Context(), c.Param("id")); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *httpHandler) handleGetNote(c *gin.Context) {
	detail, err := h.notes.GetNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, noteDetailToPayload(detail))
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	filter := notes.ListFilter{
		Book:    c.Query("book"),
		Kind:    c.Query("type"),
		TopicID: c.Query("topic_id"),
	}
	if chapter := c.Query("chapter"); chapter != "" {
		parsed, err := strconv.Atoi(chapter)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_chapter"})
			return
		}
		filter.Chapter = parsed
	}
	if limit := c.Query("limit"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
			return
		}
		filter.Limit = parsed
	}

	results, err := h.notes.ListNotes(c.Request.Context(), filter)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	payloads := make([]notePayload, 0, len(results))
	for _, note := range results {
		payloads = append(payloads, noteToPayload(note))
	}
	c.JSON(http.StatusOK, gin.H{"notes": payloads})
}

func (h *httpHandler) handleSearchNotes(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_query"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
			return
		}
		limit = parsed
	}

	results, err := h.notes.SearchNotes(c.Request.Context(), query, limit)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	payloads := make([]notePayload, 0, len(results))
	for _, note := range results {
		payloads = append(payloads, noteToPayload(note))
	}
	c.JSON(http.StatusOK, gin.H{"notes": payloads})
}

func (h *httpHandler) handleListTagLabels(c *gin.Context) {
	labels, err := h.notes.ListTagLabels(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"labels": labels})
}

type topicPayload struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ParentID  *string `json:"parent_id"`
	SortOrder int     `json:"sort_order"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type topicTreePayload struct {
	topicPayload
	Children []topicTreePayload `json:"children"`
}

type topicRequestPayload struct {
	Name      string  `json:"name"`
	ParentID  *string `json:"parent_id"`
	SortOrder int     `json:"sort_order"`
}

func topicToPayload(topic notes.Topic) topicPayload {
	return topicPayload{
		ID:        topic.TopicID,
		Name:      topic.Name,
		ParentID:  topic.ParentID,
		SortOrder: topic.SortOrder,
		CreatedAt: topic.CreatedAt,
		UpdatedAt: topic.UpdatedAt,
	}
}

func topicNodesToPayload(nodes []*notes.TopicNode) []topicTreePayload {
	payloads := make([]topicTreePayload, 0, len(nodes))
	for _, node := range nodes {
		payloads = append(payloads, topicTreePayload{
			topicPayload: topicToPayload(node.Topic),
			Children:     topicNodesToPayload(node.Children),
		})
	}
	return payloads
}

func (h *httpHandler) handleListTopics(c *gin.Context) {
	topics, err := h.notes.ListTopics(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	payloads := make([]topicPayload, 0, len(topics))
	for _, topic := range topics {
		payloads = append(payloads, topicToPayload(topic))
	}
	c.JSON(http.StatusOK, gin.H{"topics": payloads})
}

func (h *httpHandler) handleTopicTree(c *gin.Context) {
	tree, err := h.notes.TopicTree(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topicNodesToPayload(tree)})
}

func (h *httpHandler) handleCreateTopic(c *gin.Context) {
	var request topicRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	topic, err := h.notes.CreateTopic(c.Request.Context(), notes.TopicInput{
		Name:      request.Name,
		ParentID:  request.ParentID,
		SortOrder: request.SortOrder,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, topicToPayload(topic))
}

func (h *httpHandler) handleUpdateTopic(c *gin.Context) {
	var request topicRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	topic, err := h.notes.UpdateTopic(c.Request.Context(), c.Param("id"), notes.TopicInput{
		Name:      request.Name,
		ParentID:  request.ParentID,
		SortOrder: request.SortOrder,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, topicToPayload(topic))
}

func (h *httpHandler) handleDeleteTopic(c *gin.Context) {
	if err := h.notes.DeleteTopic(c.Request.Context(), c.Param("id")); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type seriesPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	NoteCount   int    `json:"note_count,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type seriesRequestPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type seriesNotesRequestPayload struct {
	NoteIDs []string `json:"note_ids"`
}

func seriesToPayload(series notes.Series) seriesPayload {
	return seriesPayload{
		ID:          series.SeriesID,
		Title:       series.Title,
		Description: series.Description,
		CreatedAt:   series.CreatedAt,
		UpdatedAt:   series.UpdatedAt,
	}
}

func (h *httpHandler) handleListSeries(c *gin.Context) {
	summaries, err := h.notes.ListSeries(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	payloads := make([]seriesPayload, 0, len(summaries))
	for _, summary := range summaries {
		payload := seriesToPayload(summary.Series)
		payload.NoteCount = summary.NoteCount
		payloads = append(payloads, payload)
	}
	c.JSON(http.StatusOK, gin.H{"series": payloads})
}

func (h *httpHandler) handleCreateSeries(c *gin.Context) {
	var request seriesRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	series, err := h.notes.CreateSeries(c.Request.Context(), notes.SeriesInput{
		Title:       request.Title,
		Description: request.Description,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, seriesToPayload(series))
}

func (h *httpHandler) handleGetSeries(c *gin.Context) {
	detail, err := h.notes.GetSeries(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	notePayloads := make([]notePayload, 0, len(detail.Notes))
	for _, note := range detail.Notes {
		notePayloads = append(notePayloads, noteToPayload(note))
	}
	c.JSON(http.StatusOK, gin.H{"series": seriesToPayload(detail.Series), "notes": notePayloads})
}

func (h *httpHandler) handleUpdateSeries(c *gin.Context) {
	var request seriesRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	series, err := h.notes.UpdateSeries(c.Request.Context(), c.Param("id"), notes.SeriesInput{
		Title:       request.Title,
		Description: request.Description,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, seriesToPayload(series))
}

func (h *httpHandler) handleDeleteSeries(c *gin.Context) {
	if err := h.notes.DeleteSeries(c.Request.Context(), c.Param("id")); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *httpHandler) handleSetSeriesNotes(c *gin.Context) {
	var request seriesNotesRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	detail, err := h.notes.SetSeriesNotes(c.Request.Context(), c.Param("id"), request.NoteIDs)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	notePayloads := make([]notePayload, 0, len(detail.Notes))
	for _, note := range detail.Notes {
		notePayloads = append(notePayloads, noteToPayload(note))
	}
	c.JSON(http.StatusOK, gin.H{"series": seriesToPayload(detail.Series), "notes": notePayloads})
}

func (h *httpHandler) handleBackupExport(c *gin.Context) {
	doc, err := h.notes.ExportBackup(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *httpHandler) handleBackupImport(c *gin.Context) {
	var doc notes.BackupDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	report, err := h.notes.ImportBackup(c.Request.Context(), doc)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
