package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Jira     JiraConfig
	GitHub   GitHubConfig
	Pipeline PipelineConfig
	Backup   BackupConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

type DatabaseConfig struct {
	Path          string
	MigrationsDir string
}

type JiraConfig struct {
	BaseURL    string
	Email      string
	APIToken   string
	Project    string
	BoardID    int
	APIVersion string
}

type GitHubConfig struct {
	Token        string
	Repositories []string // owner/name
}

type PipelineConfig struct {
	Timezone           string
	ActiveRoster       []string
	DomainEquivalences map[string]string // secondary domain -> canonical domain
	DoneStatuses       []string
	StoryPointFields   []string
	UnknownPolicy      string // "sentinel" or "drop"
	RefreshHour        int    // hour of day for scheduled refreshes, -1 disables
}

type BackupConfig struct {
	Dir    string
	Retain int
}

// Load loads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "release"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 15),
		},
		Database: DatabaseConfig{
			Path:          getEnv("DB_PATH", "./sprintscope.db"),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
		},
		Jira: JiraConfig{
			BaseURL:    getEnv("JIRA_BASE_URL", ""),
			Email:      getEnv("JIRA_EMAIL", ""),
			APIToken:   getEnv("JIRA_API_TOKEN", ""),
			Project:    getEnv("JIRA_PROJECT", ""),
			BoardID:    getEnvAsInt("JIRA_BOARD_ID", 0),
			APIVersion: getEnv("JIRA_API_VERSION", "2"),
		},
		GitHub: GitHubConfig{
			Token:        getEnv("GITHUB_TOKEN", ""),
			Repositories: getEnvAsList("GITHUB_REPOSITORIES", ""),
		},
		Pipeline: PipelineConfig{
			Timezone:           getEnv("APP_TZ", "UTC"),
			ActiveRoster:       getEnvAsList("ACTIVE_ROSTER", ""),
			DomainEquivalences: getEnvAsPairs("DOMAIN_EQUIVALENCES", ""),
			DoneStatuses:       getEnvAsList("DONE_STATUSES", "Done,Closed,Resolved"),
			StoryPointFields:   getEnvAsList("STORY_POINT_FIELDS", "customfield_10016,customfield_10026,storyPoints"),
			UnknownPolicy:      getEnv("UNKNOWN_IDENTITY_POLICY", "sentinel"),
			RefreshHour:        getEnvAsInt("REFRESH_HOUR", -1),
		},
		Backup: BackupConfig{
			Dir:    getEnv("BACKUP_DIR", "./backups"),
			Retain: getEnvAsInt("BACKUP_RETAIN", 5),
		},
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsList parses a comma-separated environment variable into a slice
func getEnvAsList(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			list = append(list, part)
		}
	}
	return list
}

// getEnvAsPairs parses "a=b,c=d" style environment variables into a map
func getEnvAsPairs(key, defaultValue string) map[string]string {
	pairs := make(map[string]string)
	for _, entry := range getEnvAsList(key, defaultValue) {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		from := strings.ToLower(strings.TrimSpace(parts[0]))
		to := strings.ToLower(strings.TrimSpace(parts[1]))
		if from != "" && to != "" {
			pairs[from] = to
		}
	}
	return pairs
}
