package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// S3Config holds the connection parameters for one bucket session.
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
}

// ResolveConfig builds the configuration from command-line flags,
// environment variables and an optional .s3cfg file (s3cmd format), in
// that order of precedence. Every required parameter must resolve to a
// non-empty value or an error naming the missing parameters is returned.
func ResolveConfig(args []string) (*S3Config, error) {
	fs := flag.NewFlagSet("s3du", flag.ContinueOnError)
	endpoint := fs.String("endpoint", "", "S3 endpoint URL (env S3_ENDPOINT)")
	bucket := fs.String("bucket", "", "bucket to scan (env S3_BUCKET)")
	accessKey := fs.String("access-key", "", "access key ID (env AWS_ACCESS_KEY_ID)")
	secretKey := fs.String("secret-key", "", "secret access key (env AWS_SECRET_ACCESS_KEY)")
	region := fs.String("region", "", "bucket region (env AWS_REGION, default us-east-1)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	config := &S3Config{
		Endpoint:  firstNonEmpty(*endpoint, os.Getenv("S3_ENDPOINT")),
		Bucket:    firstNonEmpty(*bucket, os.Getenv("S3_BUCKET")),
		AccessKey: firstNonEmpty(*accessKey, os.Getenv("AWS_ACCESS_KEY_ID")),
		SecretKey: firstNonEmpty(*secretKey, os.Getenv("AWS_SECRET_ACCESS_KEY")),
		Region:    firstNonEmpty(*region, os.Getenv("AWS_REGION")),
	}

	// .s3cfg fills whatever flags and environment left blank. The bucket
	// is always explicit; a config file never chooses what gets scanned.
	if fileConfig, err := loadS3Cfg(); err == nil {
		config.Endpoint = firstNonEmpty(config.Endpoint, fileConfig.Endpoint)
		config.AccessKey = firstNonEmpty(config.AccessKey, fileConfig.AccessKey)
		config.SecretKey = firstNonEmpty(config.SecretKey, fileConfig.SecretKey)
		config.Region = firstNonEmpty(config.Region, fileConfig.Region)
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	var missing []string
	if config.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if config.Bucket == "" {
		missing = append(missing, "bucket")
	}
	if config.AccessKey == "" {
		missing = append(missing, "access key")
	}
	if config.SecretKey == "" {
		missing = append(missing, "secret key")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required parameters: %s", strings.Join(missing, ", "))
	}

	return config, nil
}

// loadS3Cfg loads connection parameters from a .s3cfg file
func loadS3Cfg() (*S3Config, error) {
	// Try to find .s3cfg in common locations
	configPaths := []string{
		".s3cfg",
		filepath.Join(os.Getenv("HOME"), ".s3cfg"),
		"/etc/s3cfg",
	}

	var configPath string
	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			configPath = path
			break
		}
	}

	if configPath == "" {
		return nil, fmt.Errorf(".s3cfg file not found in any of the standard locations")
	}

	cfg, err := ini.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load .s3cfg: %w", err)
	}

	section := cfg.Section("default")

	protocol := "https"
	if !section.Key("use_https").MustBool(true) {
		protocol = "http"
	}
	endpoint := ""
	if hostBase := section.Key("host_base").String(); hostBase != "" {
		endpoint = fmt.Sprintf("%s://%s", protocol, hostBase)
	}

	return &S3Config{
		Endpoint:  endpoint,
		AccessKey: section.Key("access_key").String(),
		SecretKey: section.Key("secret_key").String(),
		Region:    section.Key("bucket_location").String(),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
