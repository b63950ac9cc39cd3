// Package objectstore configures the S3-compatible client the pipeline
// downloads artifacts from and publishes results to.
package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/farsight-labs/dspipe/internal/platform/env"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("DSPIPE_S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:  env.String("DSPIPE_S3_ENDPOINT", "localhost:9000"),
		AccessKey: env.String("DSPIPE_S3_ACCESS_KEY", "dspipe"),
		SecretKey: env.String("DSPIPE_S3_SECRET_KEY", "dspipesecret"),
		Region:    env.String("DSPIPE_S3_REGION", "us-east-1"),
		UseSSL:    useSSL,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}
