package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Remote backends.
const (
	RemoteMongo     = "mongo"
	RemoteFirestore = "firestore"
	RemoteMemory    = "memory"
)

// Auth modes.
const (
	AuthJWT      = "jwt"
	AuthFirebase = "firebase"
	AuthNone     = "none"
)

type Config struct {
	Port                    string
	Env                     string
	AuthMode                string
	JWTSecret               string
	FirebaseCredentialsPath string
	RemoteBackend           string
	MongoURI                string
	MongoDatabase           string
	LocalCacheDriver        string
	LocalCacheDSN           string
	UserCacheLimit          int
	RemoteTimeout           time.Duration
	PageSize                int
	HydrationConcurrency    int
	CacheSweepSchedule      string
	AdminIDs                []string
}

// Load reads the configuration from the environment, after loading a .env file if present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		AuthMode:                getEnv("AUTH_MODE", AuthJWT),
		JWTSecret:               getEnv("JWT_SECRET", "supersecretjwtkey"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		RemoteBackend:           getEnv("REMOTE_BACKEND", RemoteMemory),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "socialmedia"),
		LocalCacheDriver:        getEnv("LOCAL_CACHE_DRIVER", "sqlite"),
		LocalCacheDSN:           getEnv("LOCAL_CACHE_DSN", "storysync.db"),
		UserCacheLimit:          getEnvInt("USER_CACHE_LIMIT", 100),
		RemoteTimeout:           getEnvDuration("REMOTE_TIMEOUT", 10*time.Second),
		PageSize:                getEnvInt("PAGE_SIZE", 20),
		HydrationConcurrency:    getEnvInt("HYDRATION_CONCURRENCY", 8),
		CacheSweepSchedule:      getEnv("CACHE_SWEEP_SCHEDULE", ""),
		AdminIDs:                getEnvList("ADMIN_IDS"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blank entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
