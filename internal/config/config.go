package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the curator.
// The values are read by Viper from a config file, environment variables and
// command-line flags (highest precedence).
type Config struct {
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Media    MediaConfig    `mapstructure:"media"`
	Schema   SchemaConfig   `mapstructure:"schema"`
	S3       S3Config       `mapstructure:"s3"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatasetConfig struct {
	Path string `mapstructure:"path"`
}

// MediaConfig selects where the media listing comes from.
type MediaConfig struct {
	Source  string `mapstructure:"source"` // "local" or "s3"
	Dir     string `mapstructure:"dir"`
	Pattern string `mapstructure:"pattern"` // doublestar glob applied to filenames
	Prefix  string `mapstructure:"prefix"`  // S3 key prefix
}

// SchemaConfig lists the recognized enumeration values.
type SchemaConfig struct {
	Mechanics      []string `mapstructure:"mechanics"`
	EquipmentTiers []string `mapstructure:"equipment_tiers"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type DatabaseConfig struct {
	URI        string `mapstructure:"uri"`
	Name       string `mapstructure:"name"`
	Collection string `mapstructure:"collection"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// JWTConfig protects the inspection API. An empty secret disables auth.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Media source kinds.
const (
	MediaSourceLocal = "local"
	MediaSourceS3    = "s3"
)

// flagKeys maps persistent flag names to config keys.
var flagKeys = map[string]string{
	"dataset":   "dataset.path",
	"log-level": "log.level",
	"log-json":  "log.json",
}

// LoadConfig reads configuration from path/config.yaml (optional), the
// environment and the given flags. A file named explicitly via configFile
// must exist.
func LoadConfig(path, configFile string, flags *pflag.FlagSet) (config Config, err error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(path)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// dataset.path -> DATASET_PATH
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	v.SetDefault("dataset.path", "assets/data/exercises.json")
	v.SetDefault("media.source", MediaSourceLocal)
	v.SetDefault("media.dir", "assets/img")
	v.SetDefault("media.pattern", "*")
	v.SetDefault("media.prefix", "")
	v.SetDefault("schema.mechanics", []string{"compound", "isolation"})
	v.SetDefault("schema.equipment_tiers", []string{"home", "dumbbell", "gym"})
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "exercise_curator")
	v.SetDefault("database.collection", "exercises")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err = v.BindPFlag(key, f); err != nil {
					return config, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		// No config file; defaults and env vars are enough.
		err = nil
	} else if err != nil {
		return config, fmt.Errorf("read config: %w", err)
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("decode config: %w", err)
	}

	switch config.Media.Source {
	case MediaSourceLocal, MediaSourceS3:
	default:
		return config, fmt.Errorf("media.source must be %q or %q, got %q", MediaSourceLocal, MediaSourceS3, config.Media.Source)
	}
	return config, nil
}
