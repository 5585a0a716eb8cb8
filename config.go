package ninjadb

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Configuration constants
const (
	// Sequence CAS retry configuration
	DefaultMaxRetries      = 16
	DefaultInitialBackoff  = 5 * time.Millisecond
	DefaultMaxBackoff      = 200 * time.Millisecond
	DefaultBackoffMultiple = 2
	DefaultJitterPercent   = 0.5 // 50% jitter to avoid thundering herd

	// File backend configuration
	DefaultFilePermissions = 0644
	DefaultDirPermissions  = 0755

	DefaultDataPath     = "./data"
	DefaultTestDataPath = "./test_data"

	// AzureDatabase is the database Cosmos DB (Mongo API) provisions for App Service.
	AzureDatabase = "my-database"
)

// RetryConfig holds configuration for retry operations with exponential backoff
type RetryConfig struct {
	MaxRetries      int
	InitialBackoff  time.Duration
	BackoffMultiple int
	JitterPercent   float64
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      DefaultMaxRetries,
		InitialBackoff:  DefaultInitialBackoff,
		BackoffMultiple: DefaultBackoffMultiple,
		JitterPercent:   DefaultJitterPercent,
	}
}

// Validate checks if the RetryConfig is valid
func (c RetryConfig) Validate() error {
	if c.MaxRetries < 0 {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "MaxRetries",
			"value":  c.MaxRetries,
			"reason": "must be non-negative",
		})
	}
	if c.InitialBackoff <= 0 {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "InitialBackoff",
			"value":  c.InitialBackoff,
			"reason": "must be positive",
		})
	}
	if c.BackoffMultiple < 1 {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "BackoffMultiple",
			"value":  c.BackoffMultiple,
			"reason": "must be >= 1",
		})
	}
	if c.JitterPercent < 0 || c.JitterPercent > 1 {
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "JitterPercent",
			"value":  c.JitterPercent,
			"reason": "must be between 0 and 1",
		})
	}
	return nil
}

// Platform is the hosting environment the process runs on.
type Platform string

const (
	PlatformGAE    Platform = "gae"
	PlatformAzure  Platform = "azure"
	PlatformHeroku Platform = "heroku"
	PlatformLocal  Platform = "local"
)

// DetectPlatform inspects the environment in a fixed priority order:
// App Engine, Azure App Service, Heroku, then local development.
func DetectPlatform(getenv func(string) string) Platform {
	switch {
	case getenv("GAE_APPLICATION") != "":
		return PlatformGAE
	case getenv("APPSETTING_WEBSITE_SITE_NAME") != "":
		return PlatformAzure
	case getenv("DYNO") != "":
		return PlatformHeroku
	}
	return PlatformLocal
}

// MongoConfig describes a MongoDB (or Cosmos DB Mongo API) connection.
type MongoConfig struct {
	URI      string
	Database string
	Username string
	Password string
}

// FileStoreConfig describes the local document store.
type FileStoreConfig struct {
	Blob          BackendConfig
	RedisAddr     string // empty: ids come from counter objects in the blob backend
	RedisPassword string
	RedisDB       int
}

// Config is the resolved storage configuration for one process.
type Config struct {
	Platform  Platform
	Kind      BackendKind
	ProjectID string
	Mongo     MongoConfig
	File      FileStoreConfig
	Retry     RetryConfig
}

// ConfigFromEnv reads the storage configuration from getenv (usually os.Getenv).
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Platform: DetectPlatform(getenv),
		Retry:    DefaultRetryConfig(),
	}

	switch cfg.Platform {
	case PlatformGAE:
		cfg.Kind = KindFirestore
		if getenv("GAE_DATABASE") == "datastore" {
			cfg.Kind = KindDatastore
		}
		cfg.ProjectID = firstNonEmpty(getenv("GOOGLE_CLOUD_PROJECT"), getenv("DATASTORE_PROJECT_ID"))

	case PlatformAzure:
		cfg.Kind = KindMongo
		cfg.Mongo = MongoConfig{
			URI:      getenv("APPSETTING_MONGOURL"),
			Database: AzureDatabase,
			Username: getenv("APPSETTING_MONGO_USERNAME"),
			Password: getenv("APPSETTING_MONGO_PASSWORD"),
		}

	case PlatformHeroku:
		cfg.Kind = KindMongo
		uri := getenv("MONGODB_URI")
		cfg.Mongo = MongoConfig{URI: uri, Database: herokuDatabase(uri)}

	default:
		cfg.Kind = KindFile
		cfg.File = fileStoreConfigFromEnv(getenv)
	}

	return cfg, cfg.Validate()
}

func fileStoreConfigFromEnv(getenv func(string) string) FileStoreConfig {
	dataPath := getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = DefaultDataPath
		if getenv("TESTING") != "" {
			dataPath = DefaultTestDataPath
		}
	}

	blob := BackendConfig{
		Type:            strings.ToLower(firstNonEmpty(getenv("FILESTORE_BACKEND"), BackendFilesystem)),
		Bucket:          getenv("FILESTORE_BUCKET"),
		Region:          getenv("AWS_REGION"),
		Endpoint:        getenv("FILESTORE_ENDPOINT"),
		AccessKey:       getenv("MINIO_ACCESS_KEY"),
		SecretKey:       getenv("MINIO_SECRET_KEY"),
		UseSSL:          parseBool(getenv("MINIO_USE_SSL")),
		CredentialsFile: getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	}
	if blob.Type == BackendFilesystem {
		blob.Bucket = dataPath
	}

	return FileStoreConfig{
		Blob:          blob,
		RedisAddr:     getenv("REDIS_ADDR"),
		RedisPassword: getenv("REDIS_PASSWORD"),
		RedisDB:       parseInt(getenv("REDIS_DB"), 0),
	}
}

// herokuDatabase extracts the database name from a Heroku Mongo URI,
// where it equals the user name.
func herokuDatabase(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.User == nil {
		return ""
	}
	return u.User.Username()
}

// Validate checks that the selected backend has everything it needs
func (c Config) Validate() error {
	switch c.Kind {
	case KindDatastore, KindFirestore:
		if c.ProjectID == "" {
			return WithContext(ErrInvalidConfig, map[string]interface{}{
				"field":  "GOOGLE_CLOUD_PROJECT",
				"reason": "project id is required on App Engine",
			})
		}
	case KindMongo:
		if c.Mongo.URI == "" {
			field := "MONGODB_URI"
			if c.Platform == PlatformAzure {
				field = "APPSETTING_MONGOURL"
			}
			return WithContext(ErrInvalidConfig, map[string]interface{}{
				"field":  field,
				"reason": "mongo connection string is required",
			})
		}
		if c.Mongo.Database == "" {
			return WithContext(ErrInvalidConfig, map[string]interface{}{
				"field":  "MONGODB_URI",
				"reason": "cannot derive database name from connection string",
			})
		}
	case KindFile:
		if err := c.File.Blob.Validate(); err != nil {
			return err
		}
	default:
		return WithContext(ErrInvalidConfig, map[string]interface{}{
			"field":  "Kind",
			"value":  c.Kind,
			"reason": "unknown backend kind",
		})
	}
	return c.Retry.Validate()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

// parseInt reads an integer setting with a default fallback.
func parseInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
