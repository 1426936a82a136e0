package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/pkg/logging"
)

func TestNewTokenRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates index", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewTokenRepository(mt.DB, nil, nil)
		require.NotNil(t, repo)
	})

	mt.Run("index failure is not fatal", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Message: "unauthorized"}))
		repo := NewTokenRepository(mt.DB, nil, nil)
		require.NotNil(t, repo)
	})
}

func TestTokenRepository_MockOps(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("operations", func(mt *mtest.T) {
		coll := mt.DB.Collection(TokenCollection)
		repo := &TokenRepository{collection: coll, logger: logging.NewNop()}
		ctx := context.Background()
		ns := coll.Database().Name() + "." + coll.Name()

		token := &domain.OAuthToken{
			MallID:       "teashop",
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			ExpiresAt:    time.Date(2024, 3, 1, 6, 50, 0, 0, time.UTC),
		}

		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "x"}}}},
		))
		require.NoError(t, repo.Save(ctx, token))
		assert.False(t, token.UpdatedAt.IsZero())

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "mallId", Value: "teashop"},
			{Key: "accessToken", Value: "access-1"},
			{Key: "refreshToken", Value: "refresh-1"},
			{Key: "expiresAt", Value: token.ExpiresAt},
			{Key: "scopes", Value: bson.A{"mall.read_order"}},
		}))
		found, err := repo.FindByMallID(ctx, "teashop")
		require.NoError(t, err)
		assert.Equal(t, "access-1", found.AccessToken)
		assert.Equal(t, "refresh-1", found.RefreshToken)
		assert.True(t, token.ExpiresAt.Equal(found.ExpiresAt))
		assert.Equal(t, []string{"mall.read_order"}, found.Scopes)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		_, err = repo.FindByMallID(ctx, "missing")
		require.ErrorIs(t, err, domain.ErrTokenNotFound)

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		require.NoError(t, repo.Delete(ctx, "teashop"))

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		require.NoError(t, repo.Delete(ctx, "missing"))
	})

	mt.Run("concurrent insert is retried as an update", func(mt *mtest.T) {
		repo := &TokenRepository{collection: mt.DB.Collection(TokenCollection), logger: logging.NewNop()}

		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		require.NoError(t, repo.Save(context.Background(), &domain.OAuthToken{MallID: "teashop", AccessToken: "access-2"}))
	})

	mt.Run("save failure", func(mt *mtest.T) {
		repo := &TokenRepository{collection: mt.DB.Collection(TokenCollection), logger: logging.NewNop()}

		dup := mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(dup), mtest.CreateWriteErrorsResponse(dup))
		err := repo.Save(context.Background(), &domain.OAuthToken{MallID: "teashop"})

		require.Error(t, err)
		assert.True(t, mongo.IsDuplicateKeyError(err))
		assert.Contains(t, err.Error(), "teashop")
	})
}
