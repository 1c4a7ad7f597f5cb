package notes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pericope-app/pericope/internal/apperr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrInvalidTopicID indicates that a topic identifier is empty or exceeds storage bounds.
	ErrInvalidTopicID = errors.New("notes: invalid topic id")
	// ErrMissingTopicName indicates that a topic name is empty.
	ErrMissingTopicName = errors.New("notes: topic name is required")
	// ErrCyclicTopics indicates that topic parent pointers form a cycle.
	ErrCyclicTopics = errors.New("notes: topic parent pointers form a cycle")

	errTopicNotFound = errors.New("topic not found")
)

const (
	opCreateTopic = "notes.create_topic"
	opUpdateTopic = "notes.update_topic"
	opDeleteTopic = "notes.delete_topic"
	opTopicTree   = "notes.topic_tree"
	opListTopics  = "notes.list_topics"
)

// TopicInput carries the client-supplied fields for a topic.
type TopicInput struct {
	Name      string
	ParentID  *string
	SortOrder int
}

// TopicNode is a topic with its children attached for sidebar navigation.
type TopicNode struct {
	Topic
	Children []*TopicNode
}

// CreateTopic persists a new topic under an optional parent.
func (s *Service) CreateTopic(ctx context.Context, input TopicInput) (Topic, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Topic{}, apperr.New(opCreateTopic, "missing_name", ErrMissingTopicName)
	}
	if input.ParentID != nil {
		if err := s.requireTopic(ctx, *input.ParentID); err != nil {
			return Topic{}, apperr.New(opCreateTopic, "unknown_parent", err)
		}
	}

	topicID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateTopic, "id_generation_failed", err)
		return Topic{}, apperr.New(opCreateTopic, "id_generation_failed", err)
	}
	now := s.now()
	topic := Topic{
		TopicID:   topicID,
		Name:      name,
		ParentID:  input.ParentID,
		SortOrder: input.SortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&topic).Error; err != nil {
		s.logError(opCreateTopic, "insert_failed", err)
		return Topic{}, apperr.New(opCreateTopic, "insert_failed", err)
	}
	return topic, nil
}

// UpdateTopic rewrites a topic's name, parent, and sort order. A topic may
// not become its own ancestor.
func (s *Service) UpdateTopic(ctx context.Context, topicID string, input TopicInput) (Topic, error) {
	topicID = strings.TrimSpace(topicID)
	if topicID == "" {
		return Topic{}, apperr.New(opUpdateTopic, "missing_topic_id", ErrInvalidTopicID)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Topic{}, apperr.New(opUpdateTopic, "missing_name", ErrMissingTopicName)
	}

	var topic Topic
	err := s.db.WithContext(ctx).Where("topic_id = ?", topicID).Take(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Topic{}, apperr.New(opUpdateTopic, "not_found", errTopicNotFound)
	}
	if err != nil {
		s.logError(opUpdateTopic, "query_failed", err, zap.String("topic_id", topicID))
		return Topic{}, apperr.New(opUpdateTopic, "query_failed", err)
	}

	if input.ParentID != nil {
		if *input.ParentID == topicID {
			return Topic{}, apperr.New(opUpdateTopic, "cyclic_parent", ErrCyclicTopics)
		}
		if err := s.requireTopic(ctx, *input.ParentID); err != nil {
			return Topic{}, apperr.New(opUpdateTopic, "unknown_parent", err)
		}
		if err := s.rejectDescendantParent(ctx, topicID, *input.ParentID); err != nil {
			return Topic{}, apperr.New(opUpdateTopic, "cyclic_parent", err)
		}
	}

	topic.Name = name
	topic.ParentID = input.ParentID
	topic.SortOrder = input.SortOrder
	topic.UpdatedAt = s.now()
	if err := s.db.WithContext(ctx).Save(&topic).Error; err != nil {
		s.logError(opUpdateTopic, "save_failed", err, zap.String("topic_id", topicID))
		return Topic{}, apperr.New(opUpdateTopic, "save_failed", err)
	}
	return topic, nil
}

// DeleteTopic removes a topic; its children are reparented to the deleted
// topic's parent, and note links are removed.
func (s *Service) DeleteTopic(ctx context.Context, topicID string) error {
	topicID = strings.TrimSpace(topicID)
	if topicID == "" {
		return apperr.New(opDeleteTopic, "missing_topic_id", ErrInvalidTopicID)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var topic Topic
		if err := tx.Where("topic_id = ?", topicID).Take(&topic).Error; err != nil {
			return err
		}
		if err := tx.Model(&Topic{}).
			Where("parent_id = ?", topicID).
			Update("parent_id", topic.ParentID).Error; err != nil {
			return err
		}
		if err := tx.Where("topic_id = ?", topicID).Delete(&NoteTopic{}).Error; err != nil {
			return err
		}
		return tx.Where("topic_id = ?", topicID).Delete(&Topic{}).Error
	})
	if errors.Is(txErr, gorm.ErrRecordNotFound) {
		return apperr.New(opDeleteTopic, "not_found", errTopicNotFound)
	}
	if txErr != nil {
		s.logError(opDeleteTopic, "delete_failed", txErr, zap.String("topic_id", topicID))
		return apperr.New(opDeleteTopic, "delete_failed", txErr)
	}
	return nil
}

// ListTopics returns all topics ordered for flat display.
func (s *Service) ListTopics(ctx context.Context) ([]Topic, error) {
	var topics []Topic
	if err := s.db.WithContext(ctx).Order("sort_order ASC, name ASC").Find(&topics).Error; err != nil {
		s.logError(opListTopics, "query_failed", err)
		return nil, apperr.New(opListTopics, "query_failed", err)
	}
	return topics, nil
}

// TopicTree assembles the topic forest from parent pointers, siblings sorted
// by sort order then name. Cyclic parent data surfaces as an error.
func (s *Service) TopicTree(ctx context.Context) ([]*TopicNode, error) {
	topics, err := s.ListTopics(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]*TopicNode, len(topics))
	for _, topic := range topics {
		index[topic.TopicID] = &TopicNode{Topic: topic}
	}
	roots := make([]*TopicNode, 0)
	for _, node := range index {
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := index[*node.ParentID]
		if !ok {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	reached := 0
	stack := make([]*TopicNode, len(roots))
	copy(stack, roots)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		reached++
		stack = append(stack, node.Children...)
	}
	if reached != len(index) {
		s.logError(opTopicTree, "cyclic_topics", ErrCyclicTopics)
		return nil, apperr.New(opTopicTree, "cyclic_topics", ErrCyclicTopics)
	}

	sortTopicForest(roots)
	return roots, nil
}

func sortTopicForest(nodes []*TopicNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].Name < nodes[j].Name
	})
	for _, node := range nodes {
		sortTopicForest(node.Children)
	}
}

func (s *Service) requireTopic(ctx context.Context, topicID string) error {
	var topic Topic
	err := s.db.WithContext(ctx).Where("topic_id = ?", topicID).Take(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("unknown topic %q", topicID)
	}
	return err
}

// rejectDescendantParent walks up from the proposed parent; encountering the
// topic being updated would close a cycle.
func (s *Service) rejectDescendantParent(ctx context.Context, topicID, parentID string) error {
	current := parentID
	for depth := 0; depth < 1000; depth++ {
		var topic Topic
		err := s.db.WithContext(ctx).Where("topic_id = ?", current).Take(&topic).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if topic.ParentID == nil {
			return nil
		}
		if *topic.ParentID == topicID {
			return ErrCyclicTopics
		}
		current = *topic.ParentID
	}
	return ErrCyclicTopics
}
