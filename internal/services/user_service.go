package services

import (
	"context"
	"fmt"
	"time"

	"whatsgo/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserService provides the display-identity lookups the fan-out payloads
// need. Account management itself lives elsewhere.
type UserService struct {
	db    *mongo.Database
	users *mongo.Collection
}

func NewUserService(db *mongo.Database) *UserService {
	return &UserService{
		db:    db,
		users: db.Collection("users"),
	}
}

// GetUser looks a user up by phone number.
func (s *UserService) GetUser(phone string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var user models.User
	err := s.users.FindOne(ctx, bson.M{"phone_number": phone}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

