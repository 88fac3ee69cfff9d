// Command toyfat manages toyfat disk images.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hupe1980/toyfat"
	"github.com/hupe1980/toyfat/blobstore"
	minioblob "github.com/hupe1980/toyfat/blobstore/minio"
	s3store "github.com/hupe1980/toyfat/blobstore/s3"
	"github.com/hupe1980/toyfat/disk"
	"github.com/hupe1980/toyfat/snapshot"
	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"
)

// app carries the state shared by all commands.
type app struct {
	cfg    config
	logger *toyfat.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newLogger(w io.Writer, level slog.Level) *toyfat.Logger {
	return toyfat.NewLogger(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}))
}

// mount opens the configured image and attaches a filesystem to it.
func (a *app) mount() (*toyfat.FileSystem, error) {
	dev := disk.Open(a.cfg.Image)
	if err := dev.Err(); err != nil {
		return nil, fmt.Errorf("open %s: %w", a.cfg.Image, err)
	}
	fsys, err := toyfat.New(dev, toyfat.WithLogger(a.logger))
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	return fsys, nil
}

// withFS mounts the image, runs fn and closes the filesystem.
func (a *app) withFS(fn func(fsys *toyfat.FileSystem) error) (err error) {
	fsys, err := a.mount()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, fsys.Close())
	}()
	return fn(fsys)
}

// store returns the configured snapshot blob store.
func (a *app) store(ctx context.Context) (blobstore.BlobStore, error) {
	switch a.cfg.Archive {
	case "s3":
		if a.cfg.S3Bucket == "" {
			return nil, errors.New("TOYFAT_S3_BUCKET is required for the s3 archive")
		}
		opts := []s3store.Option{s3store.WithPrefix(a.cfg.S3Prefix)}
		if a.cfg.S3Region != "" {
			opts = append(opts, s3store.WithRegion(a.cfg.S3Region))
		}
		if a.cfg.S3Endpoint != "" {
			opts = append(opts, s3store.WithEndpoint(a.cfg.S3Endpoint))
		}
		return s3store.New(ctx, a.cfg.S3Bucket, opts...)
	case "minio":
		opts := []minioblob.Option{minioblob.WithSecure(a.cfg.MinioSecure), minioblob.WithCreateBucket()}
		if a.cfg.MinioAccessKey != "" {
			opts = append(opts, minioblob.WithCredentials(a.cfg.MinioAccessKey, a.cfg.MinioSecretKey))
		}
		return minioblob.New(ctx, a.cfg.MinioEndpoint, a.cfg.MinioBucket, opts...)
	default:
		return blobstore.NewLocalStore(a.cfg.ArchiveDir), nil
	}
}

func (a *app) archive(ctx context.Context, opts ...snapshot.Option) (*snapshot.Archive, error) {
	store, err := a.store(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.NewArchive(store, opts...), nil
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := pflag.NewFlagSet("toyfat", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(io.Discard)
	image := global.StringP("image", "i", "", "disk image path (default $TOYFAT_IMAGE or toyfat.disk)")
	envFile := global.String("env-file", ".env", "dotenv file with TOYFAT_* settings")
	logLevel := global.String("log-level", "", "log level: debug, info, warn, error")

	root := rootCommand()
	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			root.printHelp(stderr)
			fmt.Fprintf(stderr, "\nGlobal flags:\n%s", global.FlagUsages())
			return 0
		}
		fmt.Fprintf(stderr, "toyfat: %v\n", err)
		return 2
	}

	env, err := readEnv(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "toyfat: %v\n", err)
		return 2
	}
	cfg, err := loadConfig(env)
	if err != nil {
		fmt.Fprintf(stderr, "toyfat: %v\n", err)
		return 2
	}
	if *image != "" {
		cfg.Image = *image
	}
	if *logLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(*logLevel)); err != nil {
			fmt.Fprintf(stderr, "toyfat: --log-level: %v\n", err)
			return 2
		}
	}

	a := &app{
		cfg:    cfg,
		logger: newLogger(stderr, cfg.LogLevel),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	if err := root.execute(ctx, a, global.Args()); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		a.logger.Debug("command failed", "error", err)
		fmt.Fprintf(stderr, "toyfat: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
