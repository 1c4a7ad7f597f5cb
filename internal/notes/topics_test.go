package notes

import (
	"context"
	"testing"

	"github.com/pericope-app/pericope/internal/apperr"
)

func TestCreateTopicRequiresName(t *testing.T) {
	service := newTestService(t)
	_, err := service.CreateTopic(context.Background(), TopicInput{Name: "  "})
	if code := apperr.CodeOf(err); code != "notes.create_topic.missing_name" {
		t.Fatalf("unexpected error code: %q", code)
	}
}

func TestCreateTopicRejectsUnknownParent(t *testing.T) {
	service := newTestService(t)
	parentID := "missing"
	_, err := service.CreateTopic(context.Background(), TopicInput{Name: "Child", ParentID: &parentID})
	if code := apperr.CodeOf(err); code != "notes.create_topic.unknown_parent" {
		t.Fatalf("unexpected error code: %q", code)
	}
}

func TestUpdateTopicRejectsCycles(t *testing.T) {
	service := newTestService(t)
	root := mustCreateTopic(t, service, TopicInput{Name: "Theology"})
	child := mustCreateTopic(t, service, TopicInput{Name: "Soteriology", ParentID: &root.TopicID})
	grandchild := mustCreateTopic(t, service, TopicInput{Name: "Justification", ParentID: &child.TopicID})

	_, err := service.UpdateTopic(context.Background(), root.TopicID, TopicInput{Name: "Theology", ParentID: &root.TopicID})
	if code := apperr.CodeOf(err); code != "notes.update_topic.cyclic_parent" {
		t.Fatalf("unexpected error code for self parent: %q", code)
	}

	_, err = service.UpdateTopic(context.Background(), root.TopicID, TopicInput{Name: "Theology", ParentID: &grandchild.TopicID})
	if code := apperr.CodeOf(err); code != "notes.update_topic.cyclic_parent" {
		t.Fatalf("unexpected error code for descendant parent: %q", code)
	}
}

func TestUpdateTopicReparents(t *testing.T) {
	service := newTestService(t)
	first := mustCreateTopic(t, service, TopicInput{Name: "First"})
	second := mustCreateTopic(t, service, TopicInput{Name: "Second"})
	child := mustCreateTopic(t, service, TopicInput{Name: "Child", ParentID: &first.TopicID})

	moved, err := service.UpdateTopic(context.Background(), child.TopicID, TopicInput{Name: "Child", ParentID: &second.TopicID, SortOrder: 3})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if moved.ParentID == nil || *moved.ParentID != second.TopicID {
		t.Fatalf("expected reparent, got %+v", moved.ParentID)
	}
	if moved.SortOrder != 3 {
		t.Fatalf("expected sort order update, got %d", moved.SortOrder)
	}
}

func TestDeleteTopicReparentsChildrenAndDropsLinks(t *testing.T) {
	service := newTestService(t)
	root := mustCreateTopic(t, service, TopicInput{Name: "Root"})
	middle := mustCreateTopic(t, service, TopicInput{Name: "Middle", ParentID: &root.TopicID})
	leaf := mustCreateTopic(t, service, TopicInput{Name: "Leaf", ParentID: &middle.TopicID})
	note := mustCreateNote(t, service, NoteInput{
		Kind: "note", Title: "x", Book: "JHN", StartChapter: 1,
		TopicIDs: []string{middle.TopicID},
	})

	if err := service.DeleteTopic(context.Background(), middle.TopicID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	topics, err := service.ListTopics(context.Background())
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(topics) != 2 {
		t.Fatalf("expected 2 topics after delete, got %d", len(topics))
	}
	for _, topic := range topics {
		if topic.TopicID == leaf.TopicID {
			if topic.ParentID == nil || *topic.ParentID != root.TopicID {
				t.Fatalf("expected leaf reparented to root, got %+v", topic.ParentID)
			}
		}
	}

	detail, err := service.GetNote(context.Background(), note.Note.NoteID)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if len(detail.TopicIDs) != 0 {
		t.Fatalf("expected note links removed, got %v", detail.TopicIDs)
	}
}

func TestTopicTreeSortsSiblings(t *testing.T) {
	service := newTestService(t)
	root := mustCreateTopic(t, service, TopicInput{Name: "Root"})
	mustCreateTopic(t, service, TopicInput{Name: "Beta", ParentID: &root.TopicID, SortOrder: 1})
	mustCreateTopic(t, service, TopicInput{Name: "Alpha", ParentID: &root.TopicID, SortOrder: 1})
	mustCreateTopic(t, service, TopicInput{Name: "Zeta", ParentID: &root.TopicID, SortOrder: 0})

	tree, err := service.TopicTree(context.Background())
	if err != nil {
		t.Fatalf("unexpected tree error: %v", err)
	}
	if len(tree) != 1 || tree[0].TopicID != root.TopicID {
		t.Fatalf("expected single root, got %+v", tree)
	}
	children := tree[0].Children
	if len(children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(children))
	}
	if children[0].Name != "Zeta" || children[1].Name != "Alpha" || children[2].Name != "Beta" {
		t.Fatalf("unexpected sibling order: %s, %s, %s", children[0].Name, children[1].Name, children[2].Name)
	}
}

func TestTopicTreeSurfacesCyclicData(t *testing.T) {
	service := newTestService(t)
	first := mustCreateTopic(t, service, TopicInput{Name: "First"})
	second := mustCreateTopic(t, service, TopicInput{Name: "Second", ParentID: &first.TopicID})

	// Corrupt the parent pointers directly; updates refuse to do this.
	if err := service.db.Model(&Topic{}).Where("topic_id = ?", first.TopicID).Update("parent_id", second.TopicID).Error; err != nil {
		t.Fatalf("failed to corrupt parent pointer: %v", err)
	}

	_, err := service.TopicTree(context.Background())
	if code := apperr.CodeOf(err); code != "notes.topic_tree.cyclic_topics" {
		t.Fatalf("unexpected error code: %q", code)
	}
}
