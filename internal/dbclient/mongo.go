package dbclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// DefaultMongoDatabase is used when the URI has no database path.
const DefaultMongoDatabase = "swapi"

// MongoDatabaseName returns the database named in the URI path.
func MongoDatabaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return DefaultMongoDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return DefaultMongoDatabase
}

// ConnectMongo opens a client for a mongodb:// or mongodb+srv:// URI and
// verifies the server is reachable.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, string, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, "", fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, "", fmt.Errorf("ping mongodb %s: %w", Redact(uri), err)
	}
	return client, MongoDatabaseName(uri), nil
}
