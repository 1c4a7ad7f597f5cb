package mcp

import (
	"github.com/pericope-app/pericope/internal/notes"
	"github.com/pericope-app/pericope/internal/study"
	"github.com/pericope-app/pericope/internal/theology"
)

// Tool results carry the same field naming as the HTTP API, so an agent
// driving both transports sees one convention for the same rows.

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

type studySessionPayload struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	ReferenceID string `json:"reference_id"`
	NoteID      string `json:"note_id,omitempty"`
	ViewedAt    string `json:"viewed_at"`
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

func notesToPayload(rows []notes.Note) []notePayload {
	payloads := make([]notePayload, 0, len(rows))
	for _, note := range rows {
		payloads = append(payloads, noteToPayload(note))
	}
	return payloads
}

func noteDetailToPayload(detail notes.NoteDetail) notePayload {
	payload := noteToPayload(detail.Note)
	payload.TopicIDs = detail.TopicIDs
	for _, tag := range detail.InlineTags {
		payload.InlineTags = append(payload.InlineTags, inlineTagPayload{Label: tag.Label, Excerpt: tag.Excerpt})
	}
	return payload
}

func topicNodesToPayload(nodes []*notes.TopicNode) []topicTreePayload {
	payloads := make([]topicTreePayload, 0, len(nodes))
	for _, node := range nodes {
		payloads = append(payloads, topicTreePayload{
			topicPayload: topicPayload{
				ID:        node.TopicID,
				Name:      node.Name,
				ParentID:  node.ParentID,
				SortOrder: node.SortOrder,
				CreatedAt: node.CreatedAt,
				UpdatedAt: node.UpdatedAt,
			},
			Children: topicNodesToPayload(node.Children),
		})
	}
	return payloads
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

func theologyEntriesToPayload(entries []theology.Entry) []theologyEntryPayload {
	payloads := make([]theologyEntryPayload, 0, len(entries))
	for _, entry := range entries {
		payloads = append(payloads, theologyEntryToPayload(entry))
	}
	return payloads
}

func theologyDetailToPayload(detail theology.EntryDetail) map[string]interface{} {
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
		annotations = append(annotations, annotationPayload{
			ID:        annotation.AnnotationID,
			EntryID:   annotation.EntryID,
			Kind:      string(annotation.Kind),
			Body:      annotation.Body,
			CreatedAt: annotation.CreatedAt,
			UpdatedAt: annotation.UpdatedAt,
		})
	}
	return map[string]interface{}{
		"entry":          theologyEntryToPayload(detail.Entry),
		"token":          detail.Token,
		"scripture_refs": refs,
		"annotations":    annotations,
	}
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
