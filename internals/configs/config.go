package configs

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	JWTSecret         string
	RegistryJWTSecret string

	// Fallback base URIs when the tenant SchoolInstance does not carry its own.
	DefaultArtifactRegistryBase string
	DefaultPersonRegistryBase   string
	DefaultScriptEngineBase     string
	DefaultScriptConsoleURI     string
)

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("⚠️ No .env file found, using system ENV")
		} else {
			log.Println("✅ .env file loaded")
		}
	} else {
		log.Println("🚀 Running on Railway, using system ENV")
	}

	JWTSecret = GetEnv("JWT_SECRET")
	RegistryJWTSecret = GetEnv("REGISTRY_JWT_SECRET", JWTSecret)

	DefaultArtifactRegistryBase = GetEnv("ARTIFACT_REGISTRY_BASE_URI")
	DefaultPersonRegistryBase = GetEnv("PERSON_REGISTRY_BASE_URI")
	DefaultScriptEngineBase = GetEnv("SCRIPT_ENGINE_BASE_URI")
	DefaultScriptConsoleURI = GetEnv("SCRIPT_CONSOLE_URI")

	if JWTSecret == "" {
		log.Println("❌ JWT_SECRET is not set!")
	}
	if DefaultArtifactRegistryBase == "" {
		log.Println("⚠️ ARTIFACT_REGISTRY_BASE_URI not set, tenant instances must carry their own")
	}
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}
