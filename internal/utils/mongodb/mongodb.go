package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectTimeout = 10 * time.Second

// Config parameters for MongoDB connection
type Config struct {
	Host     string `env:"MONGO_HOST" envDefault:"localhost"`
	Port     int    `env:"MONGO_PORT" envDefault:"27017"`
	User     string `env:"MONGO_USER"`
	Password string `env:"MONGO_PASSWORD"`
	DBName   string `env:"MONGO_DBNAME" envDefault:"skill_exchange"`
}

// URI builds the connection string, with credentials when both are set.
func (c Config) URI() string {
	addr := fmt.Sprintf("%s:%d", c.Host, c.Port)
	if c.User != "" && c.Password != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s", c.User, c.Password, addr)
	}
	return "mongodb://" + addr
}

// Connect establishes a MongoDB connection and verifies it with a ping
// against the primary. The caller's context bounds the whole handshake.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI()))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, nil
}
