package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"citizenconnect/models"
)

type countingLeaderStore struct {
	LeaderStore
	gets int
}

func (c *countingLeaderStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Leader, error) {
	c.gets++
	return c.LeaderStore.Get(ctx, id)
}

func (c *countingLeaderStore) GetByUser(ctx context.Context, id primitive.ObjectID) (*models.Leader, error) {
	c.gets++
	return c.LeaderStore.GetByUser(ctx, id)
}

func TestCachedLeaderStore(t *testing.T) {
	ctx := context.Background()
	inner := &countingLeaderStore{LeaderStore: NewMemoryLeaderStore()}
	seed := &models.Leader{UserID: primitive.NewObjectID(), Name: "Alice", Level: models.LevelDistrict, Location: models.Location{District: "Gasabo"}}
	require.NoError(t, inner.LeaderStore.Create(ctx, seed))

	s := NewCachedLeaderStore(inner, time.Minute)

	for i := 0; i < 3; i++ {
		l, err := s.Get(ctx, seed.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", l.Name)
	}
	assert.Equal(t, 1, inner.gets)

	l, err := s.GetByUser(ctx, seed.UserID)
	require.NoError(t, err)
	assert.Equal(t, seed.ID, l.ID)
	assert.Equal(t, 1, inner.gets)

	_, err = s.Get(ctx, primitive.NewObjectID())
	assert.Error(t, err)
	assert.Equal(t, 2, inner.gets)
}
