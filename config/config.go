package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration parameters read from the environment.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"4242"`

	// API key for the write endpoints (ingest, submissions, attachments).
	APISecretKey string `envconfig:"API_SECRET_KEY" required:"true"`

	NATSURL      string `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	FeedSubjects string `envconfig:"FEED_SUBJECTS" default:"gcn.classic.text.>,igwn.gwalert,gcn.circulars"`

	TNSBaseURL string `envconfig:"TNS_BASE_URL" default:"https://www.wis-tns.org"`
	// Vocabulary values are cached and refreshed on this schedule.
	VocabRefreshSchedule string `envconfig:"VOCAB_REFRESH_SCHEDULE" default:"@hourly"`

	AttachmentS3Key    string `envconfig:"ATTACHMENT_S3_KEY" required:"true"`
	AttachmentS3Secret string `envconfig:"ATTACHMENT_S3_SECRET" required:"true"`
	AttachmentS3URL    string `envconfig:"ATTACHMENT_S3_URL" required:"true"`
	AttachmentS3Region string `envconfig:"ATTACHMENT_S3_REGION" required:"true"`
	AttachmentS3Bucket string `envconfig:"ATTACHMENT_S3_BUCKET" required:"true"`
}

// DSN returns the data source name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Subjects returns the configured feed subjects as a slice.
func (c *Config) Subjects() []string {
	var out []string
	for _, s := range strings.Split(c.FeedSubjects, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
