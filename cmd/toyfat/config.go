package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const envPrefix = "TOYFAT_"

// config holds CLI settings. Values come from the environment, optionally
// seeded from a dotenv file; flags override both.
type config struct {
	Image    string
	LogLevel slog.Level

	// Archive selects the snapshot backend: "local", "s3" or "minio".
	Archive    string
	ArchiveDir string

	S3Bucket   string
	S3Prefix   string
	S3Region   string
	S3Endpoint string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSecure    bool
}

// readEnv merges the dotenv files with the process environment. The
// process environment wins. Missing files are skipped.
func readEnv(files ...string) (map[string]string, error) {
	env := make(map[string]string)
	for _, file := range files {
		data, err := godotenv.Read(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("(config-godotenv) %s: %w", file, err)
		}
		for k, v := range data {
			env[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, envPrefix) {
			env[k] = v
		}
	}
	return env, nil
}

func loadConfig(env map[string]string) (config, error) {
	get := func(key, def string) string {
		if v, ok := env[envPrefix+key]; ok && v != "" {
			return v
		}
		return def
	}

	cfg := config{
		Image:          get("IMAGE", "toyfat.disk"),
		Archive:        get("ARCHIVE", "local"),
		ArchiveDir:     get("ARCHIVE_DIR", "snapshots"),
		S3Bucket:       get("S3_BUCKET", ""),
		S3Prefix:       get("S3_PREFIX", ""),
		S3Region:       get("S3_REGION", ""),
		S3Endpoint:     get("S3_ENDPOINT", ""),
		MinioEndpoint:  get("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: get("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: get("MINIO_SECRET_KEY", ""),
		MinioBucket:    get("MINIO_BUCKET", "toyfat"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "warn"))); err != nil {
		return cfg, fmt.Errorf("%sLOG_LEVEL: %w", envPrefix, err)
	}

	secure, err := strconv.ParseBool(get("MINIO_SECURE", "false"))
	if err != nil {
		return cfg, fmt.Errorf("%sMINIO_SECURE: %w", envPrefix, err)
	}
	cfg.MinioSecure = secure

	switch cfg.Archive {
	case "local", "s3", "minio":
	default:
		return cfg, fmt.Errorf("%sARCHIVE: unknown backend %q", envPrefix, cfg.Archive)
	}
	return cfg, nil
}
