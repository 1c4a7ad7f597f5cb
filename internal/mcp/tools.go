package mcp

import (
	"context"
	"fmt"

	"github.com/pericope-app/pericope/internal/notes"
	"github.com/pericope-app/pericope/internal/study"
	"github.com/pericope-app/pericope/internal/theology"
)

const maxQuerySize = 10 << 10

type toolHandler struct {
	notes    *notes.Service
	theology *theology.Service
	study    *study.Service
}

// Handle dispatches a tool call by name.
func (h *toolHandler) Handle(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	switch name {
	case "notes_search":
		return h.handleNotesSearch(ctx, args)
	case "notes_for_passage":
		return h.handleNotesForPassage(ctx, args)
	case "note_get":
		return h.handleNoteGet(ctx, args)
	case "note_create":
		return h.handleNoteCreate(ctx, args)
	case "note_update":
		return h.handleNoteUpdate(ctx, args)
	case "note_delete":
		return h.handleNoteDelete(ctx, args)
	case "topics_tree":
		return h.handleTopicsTree(ctx)
	case "theology_resolve":
		return h.handleTheologyResolve(ctx, args)
	case "theology_get":
		return h.handleTheologyGet(ctx, args)
	case "theology_search":
		return h.handleTheologySearch(ctx, args)
	case "study_log":
		return h.handleStudyLog(ctx, args)
	case "study_summary":
		return h.handleStudySummary(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func stringArg(args map[string]interface{}, key string) string {
	value, _ := args[key].(string)
	return value
}

func intArg(args map[string]interface{}, key string) int {
	if value, ok := args[key].(float64); ok {
		return int(value)
	}
	return 0
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	values := make([]string, 0, len(raw))
	for _, item := range raw {
		if str, ok := item.(string); ok {
			values = append(values, str)
		}
	}
	return values
}

func (h *toolHandler) handleNotesSearch(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query := stringArg(args, "query")
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if len(query) > maxQuerySize {
		return nil, fmt.Errorf("query exceeds maximum size of 10KB")
	}

	results, err := h.notes.SearchNotes(ctx, query, intArg(args, "limit"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"notes": notesToPayload(results),
		"count": len(results),
	}, nil
}

func (h *toolHandler) handleNotesForPassage(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	book := stringArg(args, "book")
	chapter := intArg(args, "chapter")
	if book == "" || chapter < 1 {
		return nil, fmt.Errorf("book and chapter are required")
	}

	results, err := h.notes.ListNotes(ctx, notes.ListFilter{
		Book:    book,
		Chapter: chapter,
		Kind:    stringArg(args, "type"),
		Limit:   intArg(args, "limit"),
	})
	if err != nil {
		return nil, err
	}

	matches, err := h.theology.EntriesForPassage(ctx, book, chapter)
	if err != nil {
		return nil, err
	}
	entries := make([]theologyEntryPayload, 0, len(matches))
	for _, match := range matches {
		entries = append(entries, theologyEntryToPayload(match.Entry))
	}

	return map[string]interface{}{
		"notes":            notesToPayload(results),
		"theology_entries": entries,
	}, nil
}

func (h *toolHandler) handleNoteGet(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id := stringArg(args, "id")
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	detail, err := h.notes.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	return noteDetailToPayload(detail), nil
}

func noteInputFromArgs(args map[string]interface{}) notes.NoteInput {
	input := notes.NoteInput{
		Kind:         stringArg(args, "type"),
		Title:        stringArg(args, "title"),
		Content:      stringArg(args, "content"),
		Book:         stringArg(args, "book"),
		StartChapter: intArg(args, "start_chapter"),
		StartVerse:   intArg(args, "start_verse"),
		EndChapter:   intArg(args, "end_chapter"),
		EndVerse:     intArg(args, "end_verse"),
		TopicIDs:     stringSliceArg(args, "topic_ids"),
	}
	if raw, ok := args["inline_tags"].([]interface{}); ok {
		for _, item := range raw {
			tag, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			label, _ := tag["label"].(string)
			excerpt, _ := tag["excerpt"].(string)
			input.InlineTags = append(input.InlineTags, notes.InlineTagInput{Label: label, Excerpt: excerpt})
		}
	}
	return input
}

func (h *toolHandler) handleNoteCreate(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	detail, err := h.notes.CreateNote(ctx, noteInputFromArgs(args))
	if err != nil {
		return nil, err
	}
	return noteDetailToPayload(detail), nil
}

func (h *toolHandler) handleNoteUpdate(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id := stringArg(args, "id")
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	detail, err := h.notes.UpdateNote(ctx, id, noteInputFromArgs(args))
	if err != nil {
		return nil, err
	}
	return noteDetailToPayload(detail), nil
}

func (h *toolHandler) handleNoteDelete(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id := stringArg(args, "id")
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	if err := h.notes.DeleteNote(ctx, id); err != nil {
		return nil, err
	}
	return map[string]string{"status": "deleted"}, nil
}

func (h *toolHandler) handleTopicsTree(ctx context.Context) (interface{}, error) {
	tree, err := h.notes.TopicTree(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"topics": topicNodesToPayload(tree)}, nil
}

func (h *toolHandler) handleTheologyResolve(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	token := stringArg(args, "token")
	if token == "" {
		return nil, fmt.Errorf("token is required")
	}
	entry, err := h.theology.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return map[string]interface{}{"found": false}, nil
	}
	return map[string]interface{}{"found": true, "entry": theologyEntryToPayload(*entry)}, nil
}

func (h *toolHandler) handleTheologyGet(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id := stringArg(args, "id")
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	detail, err := h.theology.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	return theologyDetailToPayload(detail), nil
}

func (h *toolHandler) handleTheologySearch(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	query := stringArg(args, "query")
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if len(query) > maxQuerySize {
		return nil, fmt.Errorf("query exceeds maximum size of 10KB")
	}
	entries, err := h.theology.Search(ctx, query, intArg(args, "limit"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"entries": theologyEntriesToPayload(entries),
		"count":   len(entries),
	}, nil
}

func (h *toolHandler) handleStudyLog(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	kind := stringArg(args, "kind")
	referenceID := stringArg(args, "reference_id")
	if kind == "" || referenceID == "" {
		return nil, fmt.Errorf("kind and reference_id are required")
	}
	session, err := h.study.Log(ctx, study.SessionKind(kind), referenceID, stringArg(args, "note_id"))
	if err != nil {
		return nil, err
	}
	return studySessionToPayload(session), nil
}

func (h *toolHandler) handleStudySummary(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	summary, err := h.study.Summarize(ctx, intArg(args, "days"))
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// toolDefinitions lists every tool with its JSON schema.
func toolDefinitions() []toolDefinition {
	return []toolDefinition{
		{
			Name:        "notes_search",
			Description: "Full-text search across note titles and content",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search query",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum results (default 20)",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "notes_for_passage",
			Description: "List notes and theology entries covering a book chapter",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"book": map[string]interface{}{
						"type":        "string",
						"description": "Canonical book code, e.g. JHN",
					},
					"chapter": map[string]interface{}{
						"type":        "integer",
						"description": "Chapter number",
					},
					"type": map[string]interface{}{
						"type":        "string",
						"description": "Filter by note type: note, commentary, sermon",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum notes returned",
					},
				},
				"required": []string{"book", "chapter"},
			},
		},
		{
			Name:        "note_get",
			Description: "Get one note with its topics and inline tags",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "string",
						"description": "Note identifier",
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "note_create",
			Description: "Create a note anchored to a verse range",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"type": map[string]interface{}{
						"type":        "string",
						"description": "Note type: note, commentary, sermon",
					},
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Note title",
					},
					"content": map[string]interface{}{
						"type":        "string",
						"description": "Note body",
					},
					"book": map[string]interface{}{
						"type":        "string",
						"description": "Canonical book code, e.g. JHN",
					},
					"start_chapter": map[string]interface{}{
						"type":        "integer",
						"description": "First chapter of the anchor range",
					},
					"start_verse": map[string]interface{}{
						"type":        "integer",
						"description": "First verse, 0 for chapter-level",
					},
					"end_chapter": map[string]interface{}{
						"type":        "integer",
						"description": "Last chapter, defaults to start_chapter",
					},
					"end_verse": map[string]interface{}{
						"type":        "integer",
						"description": "Last verse, 0 for chapter-level",
					},
					"topic_ids": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Topics to link",
					},
				},
				"required": []string{"type", "title", "book", "start_chapter"},
			},
		},
		{
			Name:        "note_update",
			Description: "Rewrite an existing note",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "string",
						"description": "Note identifier",
					},
					"type": map[string]interface{}{
						"type":        "string",
						"description": "Note type: note, commentary, sermon",
					},
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Note title",
					},
					"content": map[string]interface{}{
						"type":        "string",
						"description": "Note body",
					},
					"book": map[string]interface{}{
						"type":        "string",
						"description": "Canonical book code",
					},
					"start_chapter": map[string]interface{}{
						"type":        "integer",
						"description": "First chapter of the anchor range",
					},
				},
				"required": []string{"id", "type", "title", "book", "start_chapter"},
			},
		},
		{
			Name:        "note_delete",
			Description: "Delete a note and its tag and topic links",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "string",
						"description": "Note identifier",
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "topics_tree",
			Description: "Get the topic hierarchy as a tree",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "theology_resolve",
			Description: "Resolve a [[ST:ChN:A.1]] reference token to its outline entry",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"token": map[string]interface{}{
						"type":        "string",
						"description": "Reference token, e.g. [[ST:Ch32:B.2]]",
					},
				},
				"required": []string{"token"},
			},
		},
		{
			Name:        "theology_get",
			Description: "Get one theology entry with scripture refs and annotations",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":        "string",
						"description": "Entry identifier",
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "theology_search",
			Description: "Full-text search across the doctrinal outline",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search query",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum results (default 20)",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "study_log",
			Description: "Append one study session to the history log",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"kind": map[string]interface{}{
						"type":        "string",
						"description": "Session kind: passage or theology",
					},
					"reference_id": map[string]interface{}{
						"type":        "string",
						"description": "Passage reference or theology entry id",
					},
					"note_id": map[string]interface{}{
						"type":        "string",
						"description": "Optional note open during the session",
					},
				},
				"required": []string{"kind", "reference_id"},
			},
		},
		{
			Name:        "study_summary",
			Description: "Summarize study history inside a trailing window of days",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"days": map[string]interface{}{
						"type":        "integer",
						"description": "Window size in days (default 30)",
					},
				},
			},
		},
	}
}
