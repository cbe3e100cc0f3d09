// Package mongo provides an agent.EventSink backed by MongoDB, giving
// the audit trail of executor/server events durability across process
// restarts and a query surface beyond the in-memory reference sink.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"agentrt/agent"
)

// eventDocument is the MongoDB document representation of agent.Event.
type eventDocument struct {
	RunID       string  `bson:"run_id"`
	Iteration   int     `bson:"iteration"`
	Type        string  `bson:"type"`
	Message     *string `bson:"message,omitempty"`
	MessageRole *string `bson:"message_role,omitempty"`
	Description string  `bson:"description,omitempty"`
}

// Sink persists events as append-only documents in a MongoDB collection.
type Sink struct {
	collection *mongo.Collection
}

// New returns a Sink backed by collection.
func New(collection *mongo.Collection) *Sink {
	return &Sink{collection: collection}
}

var _ agent.EventSink = (*Sink)(nil)

// Publish validates and inserts event as a new document. Events are
// append-only: no update or delete path exists on this sink.
func (s *Sink) Publish(ctx context.Context, event agent.Event) error {
	if ctx == nil {
		return agent.ErrContextNil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := agent.ValidateEvent(event); err != nil {
		return err
	}

	if _, err := s.collection.InsertOne(ctx, toDocument(event)); err != nil {
		return fmt.Errorf("mongodb: insert event for run %q: %w", event.RunID, err)
	}
	return nil
}

// Events returns every event recorded for runID, ordered by insertion
// (MongoDB's natural collection order for an append-only workload).
func (s *Sink) Events(ctx context.Context, runID agent.RunID) ([]agent.Event, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"run_id": string(runID)})
	if err != nil {
		return nil, fmt.Errorf("mongodb: query events for run %q: %w", runID, err)
	}
	defer cursor.Close(ctx)

	var docs []eventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: decode events for run %q: %w", runID, err)
	}

	out := make([]agent.Event, 0, len(docs))
	for _, doc := range docs {
		out = append(out, fromDocument(doc))
	}
	return out, nil
}

func toDocument(event agent.Event) eventDocument {
	doc := eventDocument{
		RunID:       string(event.RunID),
		Iteration:   event.Iteration,
		Type:        string(event.Type),
		Description: event.Description,
	}
	if event.Message != nil {
		content := event.Message.Content
		role := string(event.Message.Role)
		doc.Message = &content
		doc.MessageRole = &role
	}
	return doc
}

func fromDocument(doc eventDocument) agent.Event {
	event := agent.Event{
		RunID:       agent.RunID(doc.RunID),
		Iteration:   doc.Iteration,
		Type:        agent.EventType(doc.Type),
		Description: doc.Description,
	}
	if doc.Message != nil {
		role := agent.RoleAssistant
		if doc.MessageRole != nil {
			role = agent.Role(*doc.MessageRole)
		}
		event.Message = &agent.Message{Role: role, Content: *doc.Message}
	}
	return event
}
