package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"passdist/entity"
	"passdist/internal/config"
)

const (
	collectionUsers  = "users"
	collectionEvents = "allocation_events"
)

var ErrUserNotFound = errors.New("user not found")

type MongoDB struct {
	clientOptions *options.ClientOptions
	database      string
	timeout       time.Duration
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	return &MongoDB{
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
		timeout:       5 * time.Second,
	}
}

func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(ctx context.Context, connection *mongo.Client) {
	_ = connection.Disconnect(ctx)
}

// GetUser finds the API user owning token.
func (m *MongoDB) GetUser(token string) (*entity.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionUsers)
	filter := bson.D{{"token", token}}
	var user entity.User
	err = collection.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	return &user, nil
}

// SaveEvent appends an allocation or reset event to the audit trail.
func (m *MongoDB) SaveEvent(ctx context.Context, event *entity.AllocationEvent) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionEvents)
	_, err = collection.InsertOne(ctx, event)
	if err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}
	return nil
}
