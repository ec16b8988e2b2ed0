package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	defaultURI      = "mongodb://localhost:27017"
	defaultDatabase = "rolecall"
	dialTimeout     = 10 * time.Second
)

// Client holds the connection backing the role store
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient dials uri and checks the primary is reachable before returning.
// Empty arguments fall back to a local server and the "rolecall" database.
func NewClient(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Client, error) {
	if uri == "" {
		uri = defaultURI
	}
	if dbName == "" {
		dbName = defaultDatabase
	}

	// The role catalog is small and read on every config message
	opts := options.Client().
		ApplyURI(uri).
		SetAppName("rolecall").
		SetMaxPoolSize(8).
		SetMaxConnIdleTime(15 * time.Minute).
		SetReadPreference(readpref.PrimaryPreferred()).
		SetServerSelectionTimeout(5 * time.Second)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	client, err := mongo.Connect(dialCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect role store: %w", err)
	}
	if err := client.Ping(dialCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("role store unreachable: %w", err)
	}

	logger.Info("Role store connected", zap.String("database", dbName))
	return &Client{
		Client:   client,
		Database: client.Database(dbName),
		logger:   logger,
	}, nil
}

// Close disconnects from the server; failures are only logged
func (c *Client) Close(ctx context.Context) {
	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Warn("Role store disconnect failed", zap.Error(err))
		return
	}
	c.logger.Info("Role store disconnected")
}
