package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/domain/entities"
	"github.com/satriahrh/rolecall/domain/repositories"
)

// RoleRepository implements repositories.RoleRepository on a "roles" collection
// keyed by integer _id
type RoleRepository struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

var _ repositories.RoleRepository = (*RoleRepository)(nil)

// NewRoleRepository creates a new MongoDB role repository
func NewRoleRepository(db *mongo.Database, logger *zap.Logger) *RoleRepository {
	collection := db.Collection("roles")

	// Create indexes in the background
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			logger.Error("Failed to create role indexes", zap.Error(err))
		} else {
			logger.Info("Role indexes created successfully")
		}
	}()

	return &RoleRepository{
		collection: collection,
		logger:     logger,
	}
}

// List implements repositories.RoleRepository
func (r *RoleRepository) List(ctx context.Context) ([]*entities.Role, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer cursor.Close(ctx)

	roles := []*entities.Role{}
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, fmt.Errorf("failed to decode roles: %w", err)
	}
	return roles, nil
}

// GetByID implements repositories.RoleRepository
func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*entities.Role, error) {
	var role entities.Role
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&role)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

// Seed inserts the given roles unless a role with the same id already exists
func (r *RoleRepository) Seed(ctx context.Context, roles []*entities.Role) error {
	inserted := 0
	for _, role := range roles {
		if err := role.Validate(); err != nil {
			return fmt.Errorf("invalid seed role %d: %w", role.ID, err)
		}
		result, err := r.collection.UpdateOne(ctx,
			bson.M{"_id": role.ID},
			bson.M{"$setOnInsert": bson.M{
				"name":          role.Name,
				"system_prompt": role.SystemPrompt,
				"voice_model":   role.VoiceModel,
				"features":      role.Features,
			}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("failed to seed role %d: %w", role.ID, err)
		}
		if result.UpsertedCount > 0 {
			inserted++
		}
	}

	r.logger.Info("Seeded roles", zap.Int("inserted", inserted), zap.Int("total", len(roles)))
	return nil
}
