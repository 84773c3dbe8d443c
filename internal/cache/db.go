// Package cache is the local embedded cache: one gorm table per entity type with
// upsert, point lookup, ordered paging, foreign-key scans, predicate deletes,
// counters, LRU trim and expiry sweep. It has no knowledge of the remote store.
package cache

import (
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported local cache drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store groups the per-entity cache tables sharing one connection.
type Store struct {
	DB        *gorm.DB
	Stories   StoryCache
	Posts     PostCache
	Users     UserCache
	Reactions ReactionCache
}

// Open connects to the local cache database and migrates its tables.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported local cache driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver != DriverPostgres {
		// SQLite allows a single writer; in-memory databases also live on one connection.
		sqlDB.SetMaxOpenConns(1)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate local cache: %w", err)
	}

	log.Printf("Local cache ready (%s)", driverName(driver))
	return db, nil
}

// Migrate creates or updates the cache tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&storyRow{}, &postRow{}, &userRow{}, &reactionRow{})
}

// New builds the cache tables over db.
func New(db *gorm.DB) *Store {
	return &Store{
		DB:        db,
		Stories:   NewStoryCache(db),
		Posts:     NewPostCache(db),
		Users:     NewUserCache(db),
		Reactions: NewReactionCache(db),
	}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func driverName(driver string) string {
	if driver == "" {
		return DriverSQLite
	}
	return driver
}
