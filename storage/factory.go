package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jathurchan/davlock/clock"
	"github.com/jathurchan/davlock/config"
	"github.com/jathurchan/davlock/logger"
)

// NewSourceFromConfig creates the EntityTagSource selected by cfg.Type,
// wrapped in a CachedSource when cfg.CacheSize is positive.
func NewSourceFromConfig(ctx context.Context, cfg config.StorageConfig, log logger.Logger, clk clock.Clock) (EntityTagSource, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	var (
		source EntityTagSource
		err    error
	)
	switch cfg.Type {
	case config.StorageMemory:
		source = NewMemorySource()
	case config.StorageFilesystem:
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("%w: filesystem storage requires fs_root to be set", ErrInvalidConfig)
		}
		source, err = NewDirSource(cfg.FSRoot)
	case config.StorageS3:
		var client *s3.Client
		client, err = newS3Client(ctx, cfg)
		if err == nil {
			source, err = NewS3Source(client, cfg.S3Bucket, cfg.S3Prefix)
		}
	default:
		return nil, fmt.Errorf("%w: unknown storage type: %s", ErrInvalidConfig, cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	log.Infow("Entity tag source configured", "type", cfg.Type, "cacheSize", cfg.CacheSize)

	if cfg.CacheSize > 0 {
		source = NewCachedSource(source, CacheConfig{
			Size:   cfg.CacheSize,
			TTL:    cfg.CacheTTL.Std(),
			Clock:  clk,
			Logger: log,
		})
	}
	return source, nil
}

func newS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	}), nil
}
