package sys

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
)

type Config struct {
	Token          string
	Prefix         string
	GuildID        string
	OwnerIDs       []snowflake.ID
	RepositoryURL  string
	Silent         bool
	StatusRotation bool
	LogFile        bool
}

const (
	MsgConfigMissingToken  = "DISCORD_TOKEN is not set in .env file"
	MsgConfigMissingPrefix = "COMMAND_PREFIX is not set in .env file"
	DefaultRepositoryURL   = "https://github.com/leeineian/biochemie"
)

// Validate ensures the configuration is valid and meets requirements.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New(MsgConfigMissingToken)
	}
	if c.Prefix == "" {
		return errors.New(MsgConfigMissingPrefix)
	}

	// Basic Snowflake validation for GuildID if provided
	if c.GuildID != "" {
		if len(c.GuildID) < 17 || len(c.GuildID) > 20 {
			return fmt.Errorf("invalid GUILD_ID: must be a valid Snowflake")
		}
		if _, err := snowflake.Parse(c.GuildID); err != nil {
			return fmt.Errorf("invalid GUILD_ID: %w", err)
		}
	}

	// Link buttons need an absolute http(s) URL.
	if c.RepositoryURL != "" {
		u, err := url.ParseRequestURI(c.RepositoryURL)
		if err != nil {
			return fmt.Errorf("invalid REPOSITORY_URL: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid REPOSITORY_URL: %q is not an http(s) URL", c.RepositoryURL)
		}
	}

	return nil
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	silent, _ := strconv.ParseBool(os.Getenv("SILENT"))
	logFile, _ := strconv.ParseBool(os.Getenv("LOG_FILE"))

	rotation := true
	if v := os.Getenv("STATUS_ROTATION"); v != "" {
		rotation, _ = strconv.ParseBool(v)
	}

	repo := os.Getenv("REPOSITORY_URL")
	if repo == "" {
		repo = DefaultRepositoryURL
	}

	owners, err := parseOwnerIDs(os.Getenv("OWNER_IDS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Token:          strings.TrimSpace(os.Getenv("DISCORD_TOKEN")),
		Prefix:         os.Getenv("COMMAND_PREFIX"),
		GuildID:        strings.TrimSpace(os.Getenv("GUILD_ID")),
		OwnerIDs:       owners,
		RepositoryURL:  repo,
		Silent:         silent,
		StatusRotation: rotation,
		LogFile:        logFile,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseOwnerIDs(raw string) ([]snowflake.ID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []snowflake.ID
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := snowflake.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("invalid OWNER_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
