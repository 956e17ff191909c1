package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Auth struct {
		// client name -> bearer token; empty map disables auth
		Tokens map[string]string `yaml:"tokens"`
	} `yaml:"auth"`

	AI struct {
		Provider         string `yaml:"provider"` // gemini | openai
		APIKey           string `yaml:"apiKey"`
		Model            string `yaml:"model"`
		MaxRetries       int    `yaml:"maxRetries"`
		InitialBackoffMS int    `yaml:"initialBackoffMs"`
		CallTimeoutMS    int    `yaml:"callTimeoutMs"`
	} `yaml:"ai"`

	Classifier struct {
		Endpoint  string `yaml:"endpoint"`
		APIUser   string `yaml:"apiUser"`
		APISecret string `yaml:"apiSecret"`
	} `yaml:"classifier"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`
}

// Load reads config from path and applies env overrides plus defaults. Key
// material may be supplied via AI_API_KEY and CLASSIFIER_API_SECRET so it
// never has to live in the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("CLASSIFIER_API_SECRET"); v != "" {
		cfg.Classifier.APISecret = v
	}

	cfg.applyDefaults()

	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("ai.apiKey is required (or set AI_API_KEY)")
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "gemini"
	}
	if c.AI.MaxRetries == 0 {
		c.AI.MaxRetries = 3
	}
	if c.AI.InitialBackoffMS == 0 {
		c.AI.InitialBackoffMS = 1000
	}
	if c.AI.CallTimeoutMS == 0 {
		c.AI.CallTimeoutMS = 9000
	}
}

func (c *Config) InitialBackoff() time.Duration {
	return time.Duration(c.AI.InitialBackoffMS) * time.Millisecond
}

func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.AI.CallTimeoutMS) * time.Millisecond
}
