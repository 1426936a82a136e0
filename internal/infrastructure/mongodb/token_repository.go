package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/pkg/logging"
	"github.com/shopops/backoffice/pkg/metrics"
	mongoutil "github.com/shopops/backoffice/pkg/mongodb"
)

// TokenCollection holds one OAuth token document per mall
const TokenCollection = "oauth_tokens"

// TokenRepository implements domain.TokenStore
type TokenRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db *mongo.Database, logger *logging.Logger, m *metrics.Metrics) *TokenRepository {
	if logger == nil {
		logger = logging.NewNop()
	}

	repo := &TokenRepository{
		collection: db.Collection(TokenCollection),
		logger:     logger.WithComponent("token-repository"),
		metrics:    m,
	}
	if err := repo.ensureIndexes(context.Background()); err != nil {
		repo.logger.Warn("Failed to create token indexes", "error", err)
	}
	return repo
}

func (r *TokenRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "mallId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Save inserts or replaces the token of token.MallID
func (r *TokenRepository) Save(ctx context.Context, token *domain.OAuthToken) error {
	start := time.Now()
	update := mongoutil.BuildUpsert(bson.M{
		"accessToken":           token.AccessToken,
		"refreshToken":          token.RefreshToken,
		"expiresAt":             token.ExpiresAt,
		"refreshTokenExpiresAt": token.RefreshTokenExpiresAt,
		"scopes":                token.Scopes,
	})

	filter := bson.M{"mallId": token.MallID}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if mongoutil.IsDuplicateKey(err) {
		// Lost an insert race on the mallId index; the document exists now.
		_, err = r.collection.UpdateOne(ctx, filter, update, opts)
	}
	r.observe(ctx, "save", start, err == nil, 1)
	if err != nil {
		return fmt.Errorf("failed to save token for mall %s: %w", token.MallID, err)
	}

	if set, ok := update["$set"].(bson.M); ok {
		if updatedAt, ok := set["updatedAt"].(time.Time); ok {
			token.UpdatedAt = updatedAt
		}
	}
	return nil
}

// FindByMallID returns domain.ErrTokenNotFound when the mall has no token
func (r *TokenRepository) FindByMallID(ctx context.Context, mallID string) (*domain.OAuthToken, error) {
	start := time.Now()

	var token domain.OAuthToken
	err := r.collection.FindOne(ctx, bson.M{"mallId": mallID}).Decode(&token)
	if mongoutil.IsNotFound(err) {
		r.observe(ctx, "find", start, true, 0)
		return nil, domain.ErrTokenNotFound
	}
	r.observe(ctx, "find", start, err == nil, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to find token for mall %s: %w", mallID, err)
	}
	return &token, nil
}

// Delete removes the token of mallID. Deleting a missing token is not an error.
func (r *TokenRepository) Delete(ctx context.Context, mallID string) error {
	start := time.Now()

	result, err := r.collection.DeleteOne(ctx, bson.M{"mallId": mallID})
	var deleted int64
	if result != nil {
		deleted = result.DeletedCount
	}
	r.observe(ctx, "delete", start, err == nil, deleted)
	if err != nil {
		return fmt.Errorf("failed to delete token for mall %s: %w", mallID, err)
	}
	return nil
}

func (r *TokenRepository) observe(ctx context.Context, operation string, start time.Time, success bool, rows int64) {
	duration := time.Since(start)
	r.metrics.RecordMongoDBOperation(TokenCollection, operation, success, duration)
	r.logger.DatabaseQuery(ctx, TokenCollection, operation, duration, success, rows)
}
