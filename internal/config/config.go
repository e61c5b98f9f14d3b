package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver      string // "postgres" or "sqlite"
	DBDSN         string
	ServerPort    string
	SessionSecret string

	// path to a YAML access-policy file; empty = embedded default
	AccessPolicyFile string

	// surfaced policy decisions, defaults preserve the legacy behavior
	FinishRequiresActivitiesDone bool
	ImportOverwriteNonDraft      bool
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBDriver:         os.Getenv("DB_DRIVER"),
		DBDSN:            os.Getenv("DB_DSN"),
		ServerPort:       os.Getenv("SERVER_PORT"),
		SessionSecret:    os.Getenv("SESSION_SECRET"),
		AccessPolicyFile: os.Getenv("ACCESS_POLICY_FILE"),

		FinishRequiresActivitiesDone: boolEnv("FINISH_REQUIRES_ACTIVITIES_DONE", false),
		ImportOverwriteNonDraft:      boolEnv("IMPORT_OVERWRITE_NON_DRAFT", true),
	}

	if cfg.DBDriver == "" {
		cfg.DBDriver = "postgres"
	}
	if cfg.DBDSN == "" {
		if cfg.DBDriver == "sqlite" {
			cfg.DBDSN = "ordenes.db"
		} else {
			log.Fatal("DB_DSN is not set")
		}
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	return cfg
}

func boolEnv(key string, def bool) bool {
	switch os.Getenv(key) {
	case "":
		return def
	case "1", "true", "TRUE", "yes":
		return true
	default:
		return false
	}
}
