package env

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var Env map[string]string

func GetEnv(key, def string) string {
	// First check our loaded Env map
	if val, ok := Env[key]; ok {
		return val
	}
	// Fallback to OS environment variables (for Docker/tests)
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt returns def when the key is unset or not an integer.
func GetEnvInt(key string, def int) int {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: %s=%q is not an integer, using %d", key, raw, def)
		return def
	}
	return v
}

// GetEnvDuration accepts Go duration strings ("15s", "24h").
func GetEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: %s=%q is not a duration, using %s", key, raw, def)
		return def
	}
	return d
}

func GetEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

// GetEnvList splits a comma separated value and drops empty entries.
func GetEnvList(key string, def []string) []string {
	raw := strings.TrimSpace(GetEnv(key, ""))
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func SetupEnvFile() {
	// Look for .env file in project root
	envFiles := []string{
		".env",          // Current directory
		"../../.env",    // From cmd/jobfox to project root
		"../../../.env", // Fallback for deeper nesting
	}

	var err error
	for _, envFile := range envFiles {
		Env, err = godotenv.Read(envFile)
		if err == nil {
			return
		}
	}

	// Containers pass configuration through the process environment only.
	Env = map[string]string{}
	log.Printf("Warning: no .env file found, using process environment only")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
