package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Minio    MinioConfig    `yaml:"minio"`
	Docuseal DocusealConfig `yaml:"docuseal"`
	PDF      PDFConfig      `yaml:"pdf"`
	Store    StoreConfig    `yaml:"store"`
	Auth     AuthConfig     `yaml:"auth"`
	Users    []User         `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type DocusealConfig struct {
	APIURL              string `yaml:"api_url"`
	APIKey              string `yaml:"api_key"`
	WebhookSecret       string `yaml:"webhook_secret"`
	SignatureHeader     string `yaml:"signature_header"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	// TemplateIDs maps a document kind to the template id on the DocuSeal
	// side. A kind without an entry has no linked external template.
	TemplateIDs map[string]string `yaml:"template_ids"`
}

type PDFConfig struct {
	ChromePath     string `yaml:"chrome_path"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	LogoURL        string `yaml:"logo_url"`
}

type StoreConfig struct {
	MaxDocuments int `yaml:"max_documents"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Docuseal.SignatureHeader == "" {
		cfg.Docuseal.SignatureHeader = "X-Signature"
	}
	if cfg.Docuseal.PollIntervalSeconds == 0 {
		cfg.Docuseal.PollIntervalSeconds = 30
	}
	if cfg.PDF.TimeoutSeconds == 0 {
		cfg.PDF.TimeoutSeconds = 30
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
