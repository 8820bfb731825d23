// ABOUTME: Audit trail of admin actions in an admin_actions collection
// ABOUTME: Implements datastore.Auditor with newest-first reads

package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/2389/modeladmin/datastore"
)

const actionsCollection = "admin_actions"

// RecordAction appends one action document. Missing ids and timestamps
// are filled in.
func (s *Store) RecordAction(ctx context.Context, a *datastore.Action) error {
	cp := *a
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	doc := bson.M{
		"_id":        cp.ID,
		"action":     cp.Action,
		"model":      cp.Model,
		"model_key":  cp.Key,
		"summary":    cp.Summary,
		"created_at": cp.CreatedAt.UTC(),
	}
	if _, err := s.db.Collection(actionsCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("recording action: %w", err)
	}
	return nil
}

// RecentActions returns up to limit actions, newest first. A limit of
// zero or less returns them all.
func (s *Store) RecentActions(ctx context.Context, limit int) ([]*datastore.Action, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.db.Collection(actionsCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	defer cur.Close(ctx)

	var actions []*datastore.Action
	for cur.Next(ctx) {
		var doc struct {
			ID        string    `bson:"_id"`
			Action    string    `bson:"action"`
			Model     string    `bson:"model"`
			Key       string    `bson:"model_key"`
			Summary   string    `bson:"summary"`
			CreatedAt time.Time `bson:"created_at"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding action: %w", err)
		}
		actions = append(actions, &datastore.Action{
			ID:        doc.ID,
			Action:    doc.Action,
			Model:     doc.Model,
			Key:       doc.Key,
			Summary:   doc.Summary,
			CreatedAt: doc.CreatedAt.UTC(),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	return actions, nil
}
