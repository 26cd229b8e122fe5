package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Leader is an official with an administrative jurisdiction.
type Leader struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Name      string             `bson:"name" json:"name"`
	Title     string             `bson:"title" json:"title"`
	Level     Level              `bson:"level" json:"level"`
	Location  Location           `bson:"location" json:"location"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// LeaderFilter drives leader search.
type LeaderFilter struct {
	Query    string
	Level    Level
	District string
}
