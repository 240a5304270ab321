// Seeds demo users and chats for local development.
//
//	go run scripts/seed.go
package main

import (
	"context"
	"log"
	"os"
	"time"

	"whatsgo/internal/utils"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

type seedConfig struct {
	MongoURI   string
	Database   string
	DefaultPIN string
}

type seedUser struct {
	Phone    string
	Username string
	About    string
}

var demoUsers = []seedUser{
	{Phone: "+15550100001", Username: "alice", About: "Hey there! I'm using WhatsGo"},
	{Phone: "+15550100002", Username: "bob", About: "Busy"},
	{Phone: "+15550100003", Username: "carol", About: "At work"},
	{Phone: "+15550100004", Username: "dave", About: "Hey there! I'm using WhatsGo"},
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := seedConfig{
		MongoURI:   envOr("MONGODB_URI", "mongodb://localhost:27017"),
		Database:   envOr("MONGODB_DATABASE", "whatsgo"),
		DefaultPIN: envOr("SEED_APP_LOCK_PIN", "1234"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.Database)

	if err := seedUsers(ctx, db, cfg.DefaultPIN); err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}

	if err := seedPrivateChat(ctx, db, demoUsers[0].Phone, demoUsers[1].Phone); err != nil {
		log.Fatalf("Failed to seed private chat: %v", err)
	}

	phones := make([]string, 0, len(demoUsers))
	for _, u := range demoUsers {
		phones = append(phones, u.Phone)
	}
	if err := seedGroupChat(ctx, db, "Weekend Plans", demoUsers[0].Phone, phones); err != nil {
		log.Fatalf("Failed to seed group chat: %v", err)
	}

	printDevTokens()

	log.Println("Seed completed")
}

func seedUsers(ctx context.Context, db *mongo.Database, pin string) error {
	pinHash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := db.Collection("users")
	for _, u := range demoUsers {
		update := bson.M{
			"$setOnInsert": bson.M{
				"phone_number":      u.Phone,
				"username":          u.Username,
				"about":             u.About,
				"is_online":         false,
				"read_receipts":     true,
				"last_seen_privacy": "everyone",
				"app_lock_enabled":  false,
				"app_lock_pin_hash": string(pinHash),
				"created_at":        time.Now(),
			},
		}
		opts := options.Update().SetUpsert(true)
		if _, err := users.UpdateOne(ctx, bson.M{"phone_number": u.Phone}, update, opts); err != nil {
			return err
		}
		log.Printf("Seeded user %s (%s)", u.Username, u.Phone)
	}

	return nil
}

func seedPrivateChat(ctx context.Context, db *mongo.Database, user1, user2 string) error {
	chatID := uuid.NewString()
	now := time.Now()

	if _, err := db.Collection("chats").InsertOne(ctx, bson.M{
		"chat_id":    chatID,
		"chat_type":  "private",
		"created_at": now,
		"updated_at": now,
	}); err != nil {
		return err
	}

	participants := db.Collection("chat_participants")
	for _, phone := range []string{user1, user2} {
		if _, err := participants.InsertOne(ctx, bson.M{
			"chat_id":      chatID,
			"phone_number": phone,
			"is_pinned":    false,
			"is_archived":  false,
			"is_muted":     false,
			"joined_at":    now,
		}); err != nil {
			return err
		}
	}

	log.Printf("Seeded private chat %s (%s, %s)", chatID, user1, user2)
	return nil
}

func seedGroupChat(ctx context.Context, db *mongo.Database, name, creator string, members []string) error {
	chatID := uuid.NewString()
	now := time.Now()

	if _, err := db.Collection("chats").InsertOne(ctx, bson.M{
		"chat_id":    chatID,
		"chat_type":  "group",
		"created_at": now,
		"updated_at": now,
	}); err != nil {
		return err
	}

	if _, err := db.Collection("groups").InsertOne(ctx, bson.M{
		"chat_id":              chatID,
		"name":                 name,
		"description":          "",
		"only_admins_can_send": false,
		"only_admins_can_edit": false,
		"created_by":           creator,
	}); err != nil {
		return err
	}

	if _, err := db.Collection("group_admins").InsertOne(ctx, bson.M{
		"chat_id":      chatID,
		"phone_number": creator,
		"added_at":     now,
	}); err != nil {
		return err
	}

	participants := db.Collection("chat_participants")
	for _, phone := range members {
		if _, err := participants.InsertOne(ctx, bson.M{
			"chat_id":      chatID,
			"phone_number": phone,
			"is_pinned":    false,
			"is_archived":  false,
			"is_muted":     false,
			"joined_at":    now,
		}); err != nil {
			return err
		}
	}

	log.Printf("Seeded group chat %q %s with %d members", name, chatID, len(members))
	return nil
}

// printDevTokens mints a JWT per demo user so seeded accounts can be used
// against the API immediately.
func printDevTokens() {
	for _, u := range demoUsers {
		token, err := utils.GenerateUserJWT(u.Phone, u.Username)
		if err != nil {
			log.Printf("Failed to mint token for %s: %v", u.Username, err)
			continue
		}
		log.Printf("Token for %s (%s): %s", u.Username, u.Phone, token)
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
