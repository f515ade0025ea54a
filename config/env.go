package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Environment variables read by the CDK app, the Lambda action and the CLI.
const (
	EnvSource       = "SQS_ALARMS_SOURCE"
	EnvRegion       = "SQS_ALARMS_REGION"
	EnvCreateTopics = "SQS_ALARMS_CREATE_TOPICS"
	EnvTemplateFile = "TEMPLATE_FILE"
	EnvAlarmsFile   = "ALARMS_FILE"
	EnvBucket       = "ARTIFACT_BUCKET"
	EnvAccountID    = "ACCOUNT_ID"
)

// DefaultSource is read when EnvSource is unset.
const DefaultSource = "serverless.yml"

// LoadDotEnv loads variables from the given files, or from .env when none are
// given. Missing files are skipped; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "load %s", f)
		}
	}
	return nil
}

// Env returns the value of key, or fallback when it is unset or empty.
func Env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// RequireEnv returns the value of key or an error naming it.
func RequireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", errors.Errorf("%s environment variable is required", key)
	}
	return v, nil
}

// EnvBool reports whether key is set to a true-ish value.
func EnvBool(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes":
		return true
	}
	return false
}
