package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pericope-app/pericope/internal/theology"
)

type theologyEntryPayload struct {
	ID               string  `json:"id"`
	ParentID         *string `json:"parent_id"`
	Kind             string  `json:"kind"`
	Title            string  `json:"title"`
	Body             string  `json:"body,omitempty"`
	Summary          string  `json:"summary,omitempty"`
	ChapterNumber    *int    `json:"chapter_number,omitempty"`
	SectionLetter    string  `json:"section_letter,omitempty"`
	SubsectionNumber *int    `json:"subsection_number,omitempty"`
	SortOrder        int     `json:"sort_order"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

type theologyNodePayload struct {
	theologyEntryPayload
	Children []theologyNodePayload `json:"children"`
}

type scriptureRefPayload struct {
	Book       string `json:"book"`
	Chapter    int    `json:"chapter"`
	StartVerse int    `json:"start_verse,omitempty"`
	EndVerse   int    `json:"end_verse,omitempty"`
}

type annotationPayload struct {
	ID        string `json:"id"`
	EntryID   string `json:"entry_id"`
	Kind      string `json:"kind"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type annotationRequestPayload struct {
	Kind string `json:"kind"`
	Body string `json:"body"`
}

func theologyEntryToPayload(entry theology.Entry) theologyEntryPayload {
	return theologyEntryPayload{
		ID:               entry.EntryID,
		ParentID:         entry.ParentID,
		Kind:             string(entry.Kind),
		Title:            entry.Title,
		Body:             entry.Body,
		Summary:          entry.Summary,
		ChapterNumber:    entry.ChapterNumber,
		SectionLetter:    entry.SectionLetter,
		SubsectionNumber: entry.SubsectionNumber,
		SortOrder:        entry.SortOrder,
		CreatedAt:        entry.CreatedAt,
		UpdatedAt:        entry.UpdatedAt,
	}
}

func theologyNodesToPayload(nodes []*theology.Node) []theologyNodePayload {
	payloads := make([]theologyNodePayload, 0, len(nodes))
	for _, node := range nodes {
		payloads = append(payloads, theologyNodePayload{
			theologyEntryPayload: theologyEntryToPayload(node.Entry),
			Children:             theologyNodesToPayload(node.Children),
		})
	}
	return payloads
}

func annotationToPayload(annotation theology.Annotation) annotationPayload {
	return annotationPayload{
		ID:        annotation.AnnotationID,
		EntryID:   annotation.EntryID,
		Kind:      string(annotation.Kind),
		Body:      annotation.Body,
		CreatedAt: annotation.CreatedAt,
		UpdatedAt: annotation.UpdatedAt,
	}
}

func (h *httpHandler) handleTheologyOutline(c *gin.Context) {
	roots, err := h.theology.Outline(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outline": theologyNodesToPayload(roots)})
}

func (h *httpHandler) handleGetTheologyEntry(c *gin.Context) {
	detail, err := h.theology.GetEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	refs := make([]scriptureRefPayload, 0, len(detail.ScriptureRefs))
	for _, ref := range detail.ScriptureRefs {
		refs = append(refs, scriptureRefPayload{
			Book:       ref.Book,
			Chapter:    ref.Chapter,
			StartVerse: ref.StartVerse,
			EndVerse:   ref.EndVerse,
		})
	}
	annotations := make([]annotationPayload, 0, len(detail.Annotations))
	for _, annotation := range detail.Annotations {
		annotations = append(annotations, annotationToPayload(annotation))
	}
	c.JSON(http.StatusOK, gin.H{
		"entry":          theologyEntryToPayload(detail.Entry),
		"token":          detail.Token,
		"scripture_refs": refs,
		"annotations":    annotations,
	})
}

type theologyEntryRequestPayload struct {
	ParentID         *string `json:"parent_id"`
	Kind             string  `json:"kind"`
	Title            string  `json:"title"`
	Body             string  `json:"body"`
	Summary          string  `json:"summary"`
	ChapterNumber    *int    `json:"chapter_number"`
	SectionLetter    string  `json:"section_letter"`
	SubsectionNumber *int    `json:"subsection_number"`
	SortOrder        int     `json:"sort_order"`
}

func (h *httpHandler) handleUpsertTheologyEntry(c *gin.Context) {
	var request theologyEntryRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	entry := theology.Entry{
		EntryID:          c.Param("id"),
		ParentID:         request.ParentID,
		Kind:             theology.Kind(strings.ToLower(strings.TrimSpace(request.Kind))),
		Title:            strings.TrimSpace(request.Title),
		Body:             request.Body,
		Summary:          request.Summary,
		ChapterNumber:    request.ChapterNumber,
		SectionLetter:    strings.ToUpper(strings.TrimSpace(request.SectionLetter)),
		SubsectionNumber: request.SubsectionNumber,
		SortOrder:        request.SortOrder,
	}
	saved, err := h.theology.UpsertEntry(c.Request.Context(), entry)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, theologyEntryToPayload(saved))
}

func (h *httpHandler) handleDeleteTheologyEntry(c *gin.Context) {
	if err := h.theology.DeleteEntry(c.Request.Context(), c.Param("id")); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// handleTheologyResolve maps a [[ST:...]] token onto its outline entry.
// Unresolvable tokens answer with found=false rather than an error.
func (h *httpHandler) handleTheologyResolve(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_token"})
		return
	}

	entry, err := h.theology.Resolve(c.Request.Context(), token)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	if entry == nil {
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "entry": theologyEntryToPayload(*entry)})
}

func (h *httpHandler) handleTheologySearch(c *gin.Context) {
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

	entries, err := h.theology.Search(c.Request.Context(), query, limit)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	payloads := make([]theologyEntryPayload, 0, len(entries))
	for _, entry := range entries {
		payloads = append(payloads, theologyEntryToPayload(entry))
	}
	c.JSON(http.StatusOK, gin.H{"entries": payloads})
}

func (h *httpHandler) handleTheologyPassage(c *gin.Context) {
	chapter, err := strconv.Atoi(c.Param("chapter"))
	if err != nil || chapter < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_chapter"})
		return
	}

	matches, err := h.theology.EntriesForPassage(c.Request.Context(), c.Param("book"), chapter)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	type passageMatchPayload struct {
		Entry theologyEntryPayload `json:"entry"`
		Ref   scriptureRefPayload  `json:"ref"`
	}
	payloads := make([]passageMatchPayload, 0, len(matches))
	for _, match := range matches {
		payloads = append(payloads, passageMatchPayload{
			Entry: theologyEntryToPayload(match.Entry),
			Ref: scriptureRefPayload{
				Book:       match.Ref.Book,
				Chapter:    match.Ref.Chapter,
				StartVerse: match.Ref.StartVerse,
				EndVerse:   match.Ref.EndVerse,
			},
		})
	}
	c.JSON(http.StatusOK, gin.H{"entries": payloads})
}

func (h *httpHandler) handleCorpusImport(c *gin.Context) {
	var doc theology.CorpusDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	summary, err := h.theology.ImportCorpus(c.Request.Context(), doc)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *httpHandler) handleListAnnotations(c *gin.Context) {
	annotations, err := h.theology.ListAnnotations(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	payloads := make([]annotationPayload, 0, len(annotations))
	for _, annotation := range annotations {
		payloads = append(payloads, annotationToPayload(annotation))
	}
	c.JSON(http.StatusOK, gin.H{"annotations": payloads})
}

func (h *httpHandler) handleCreateAnnotation(c *gin.Context) {
	var request annotationRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	annotation, err := h.theology.CreateAnnotation(c.Request.Context(), c.Param("id"),
		theology.AnnotationKind(request.Kind), request.Body)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, annotationToPayload(annotation))
}

func (h *httpHandler) handleUpdateAnnotation(c *gin.Context) {
	var request annotationRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	annotation, err := h.theology.UpdateAnnotation(c.Request.Context(), c.Param("id"), request.Body)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, annotationToPayload(annotation))
}

func (h *httpHandler) handleDeleteAnnotation(c *gin.Context) {
	if err := h.theology.DeleteAnnotation(c.Request.Context(), c.Param("id")); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
