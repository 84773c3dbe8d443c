package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"

	"github.com/anonto42/nano-midea/storysync/internal/cache"
)

// DB holds the database connections
type DB struct {
	Cache *gorm.DB
	Mongo *mongo.Client
}

// InitDB opens the local cache and, for the mongo backend, the remote MongoDB client.
func InitDB(cfg *Config) (*DB, error) {
	cacheDB, err := cache.Open(cfg.LocalCacheDriver, cfg.LocalCacheDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}
	db := &DB{Cache: cacheDB}

	if cfg.RemoteBackend != RemoteMongo {
		return db, nil
	}
	if cfg.MongoURI == "" {
		db.CloseDB()
		return nil, fmt.Errorf("MONGO_URI environment variable not set")
	}
	db.Mongo, err = initMongo(cfg.MongoURI)
	if err != nil {
		db.CloseDB()
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	return db, nil
}

// initMongo initializes the MongoDB connection
func initMongo(uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	log.Println("Successfully connected to MongoDB!")
	return client, nil
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	if db.Cache != nil {
		sqlDB, err := db.Cache.DB()
		if err != nil {
			log.Printf("Error getting SQL DB from GORM: %v\n", err)
		} else if err := sqlDB.Close(); err != nil {
			log.Printf("Error closing local cache: %v\n", err)
		} else {
			log.Println("Local cache closed.")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			log.Printf("Error closing MongoDB connection: %v\n", err)
		} else {
			log.Println("MongoDB connection closed.")
		}
	}
}
