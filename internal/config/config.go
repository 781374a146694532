package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

type Options struct {
	runAddr       string
	logLevel      string
	logFile       string
	dataBaseDSN   string
	migrationsDir string
	jwtSecret     string
	tokenTTL      time.Duration
	geminiAPIKey  string
	geminiModel   string
	storageDir    string
	publicURL     string
}

func NewOptions() *Options {
	return new(Options)
}

// ParseFlags handles command line arguments
// and stores their values in the corresponding variables.
func (o *Options) ParseFlags() {
	// Load environment variables from the .env file
	loadEnvFile()

	if err := o.parse(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func (o *Options) parse(args []string) error {
	fs := flag.NewFlagSet("grocerystore", flag.ContinueOnError)

	// Override variable values with values from command line flags
	fs.StringVar(&o.runAddr, "a", getEnvOrDefault("RUN_ADDRESS", ":8080"), "address and port to run server")
	fs.StringVar(&o.logLevel, "l", getEnvOrDefault("LOG_LEVEL", "debug"), "log level")
	fs.StringVar(&o.logFile, "log-file", getEnvOrDefault("LOG_FILE", ""), "rotated log file, stdout only when empty")
	fs.StringVar(&o.dataBaseDSN, "d", getEnvOrDefault("DATABASE_URI", ""), "database connection string")
	fs.StringVar(&o.migrationsDir, "m", getEnvOrDefault("MIGRATIONS_DIR", "migrations"), "directory with SQL migrations")
	fs.StringVar(&o.jwtSecret, "s", getEnvOrDefault("JWT_SECRET", ""), "secret used to sign session tokens")
	fs.DurationVar(&o.tokenTTL, "token-ttl", getDurationOrDefault("TOKEN_TTL", 24*time.Hour), "session token lifetime")
	fs.StringVar(&o.geminiAPIKey, "k", getEnvOrDefault("GEMINI_API_KEY", ""), "Gemini API key, chat is disabled when empty")
	fs.StringVar(&o.geminiModel, "model", getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"), "Gemini model name")
	fs.StringVar(&o.storageDir, "storage-dir", getEnvOrDefault("STORAGE_DIR", "./data/storage"), "directory for uploaded files")
	fs.StringVar(&o.publicURL, "public-url", getEnvOrDefault("PUBLIC_URL", "http://localhost:8080"), "public base URL of this server")

	// parse the arguments passed to the server into registered variables
	return fs.Parse(args)
}

func (o *Options) RunAddr() string {
	return o.runAddr
}

func (o *Options) LogLevel() string {
	return o.logLevel
}

func (o *Options) LogFile() string {
	return o.logFile
}

func (o *Options) DataBaseDSN() string {
	return o.dataBaseDSN
}

func (o *Options) MigrationsDir() string {
	return o.migrationsDir
}

func (o *Options) JWTSecret() string {
	return o.jwtSecret
}

func (o *Options) TokenTTL() time.Duration {
	return o.tokenTTL
}

func (o *Options) GeminiAPIKey() string {
	return o.geminiAPIKey
}

func (o *Options) GeminiModel() string {
	return o.geminiModel
}

func (o *Options) StorageDir() string {
	return o.storageDir
}

func (o *Options) PublicURL() string {
	return o.publicURL
}

// getEnvOrDefault reads an environment variable or returns a default value if the variable is not set or is empty.
func getEnvOrDefault(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

// loadEnvFile loads environment variables from a .env file
func loadEnvFile() {
	// Determine the path to the .env file relative to the current working directory
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	for _, envPath := range []string{filepath.Join(cwd, ".env"), filepath.Join(cwd, "..", "..", ".env")} {
		// Load environment variables from the .env file
		if err := godotenv.Load(envPath); err == nil {
			log.Printf(".env file loaded from %s", envPath)
			return
		}
	}
	log.Printf("No .env file found in %s, proceeding without it", cwd)
}
