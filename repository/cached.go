package repository

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"citizenconnect/models"
)

// CachedLeaderStore caches leader lookups by id and by user. Leaders are
// created but never edited, so entries only need to expire, not be invalidated.
type CachedLeaderStore struct {
	LeaderStore
	cache *cache.Cache
}

// NewCachedLeaderStore wraps next with a cache of the given TTL.
func NewCachedLeaderStore(next LeaderStore, ttl time.Duration) *CachedLeaderStore {
	return &CachedLeaderStore{
		LeaderStore: next,
		cache:       cache.New(ttl, 2*ttl),
	}
}

func (s *CachedLeaderStore) remember(l *models.Leader) {
	s.cache.Set("id:"+l.ID.Hex(), *l, cache.DefaultExpiration)
	s.cache.Set("user:"+l.UserID.Hex(), *l, cache.DefaultExpiration)
}

func (s *CachedLeaderStore) cached(key string) (*models.Leader, bool) {
	v, found := s.cache.Get(key)
	if !found {
		return nil, false
	}
	l := v.(models.Leader)
	return &l, true
}

func (s *CachedLeaderStore) Create(ctx context.Context, leader *models.Leader) error {
	if err := s.LeaderStore.Create(ctx, leader); err != nil {
		return err
	}
	s.remember(leader)
	return nil
}

func (s *CachedLeaderStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Leader, error) {
	if l, ok := s.cached("id:" + id.Hex()); ok {
		return l, nil
	}
	l, err := s.LeaderStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.remember(l)
	return l, nil
}

func (s *CachedLeaderStore) GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.Leader, error) {
	if l, ok := s.cached("user:" + userID.Hex()); ok {
		return l, nil
	}
	l, err := s.LeaderStore.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.remember(l)
	return l, nil
}
