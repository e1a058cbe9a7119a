package main

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/store/internal/config"
	"github.com/vango-dev/store/internal/errors"
	"github.com/vango-dev/store/pkg/persist"
	"github.com/vango-dev/store/pkg/persist/etcdbackend"
	"github.com/vango-dev/store/pkg/persist/redisbackend"
	"github.com/vango-dev/store/pkg/persist/s3backend"
	"github.com/vango-dev/store/pkg/persist/sqlbackend"
)

// keyLister is implemented by the networked backends.
type keyLister interface {
	Keys(ctx context.Context) ([]string, error)
}

// openBackend connects the backend named by cfg.Backend.Driver.
func openBackend(ctx context.Context, cfg *config.Config) (persist.Backend, error) {
	b := cfg.Backend
	switch b.Driver {
	case "memory":
		return persist.NewMemoryBackend(), nil

	case "redis":
		var opts []redisbackend.Option
		if b.Redis.Prefix != "" {
			opts = append(opts, redisbackend.WithPrefix(b.Redis.Prefix))
		}
		if b.Redis.TTL > 0 {
			opts = append(opts, redisbackend.WithTTL(b.Redis.TTL))
		}
		return redisbackend.Dial(ctx, b.Redis.URL, opts...)

	case "sqlite":
		var opts []sqlbackend.Option
		if b.SQLite.Table != "" {
			opts = append(opts, sqlbackend.WithTable(b.SQLite.Table))
		}
		if b.SQLite.Namespace != "" {
			opts = append(opts, sqlbackend.WithNamespace(b.SQLite.Namespace))
		}
		return sqlbackend.OpenSQLite(ctx, b.SQLite.Path, opts...)

	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(b.S3.Region))
		if err != nil {
			return nil, errors.New("C001").WithDetail("loading AWS configuration").Wrap(err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if b.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(b.S3.Endpoint)
			}
			o.UsePathStyle = b.S3.PathStyle
		})
		var opts []s3backend.Option
		if b.S3.Prefix != "" {
			opts = append(opts, s3backend.WithPrefix(b.S3.Prefix))
		}
		return s3backend.New(client, b.S3.Bucket, opts...), nil

	case "etcd":
		var opts []etcdbackend.Option
		if b.Etcd.Prefix != "" {
			opts = append(opts, etcdbackend.WithPrefix(b.Etcd.Prefix))
		}
		return etcdbackend.Dial(ctx, b.Etcd.Endpoints, opts...)
	}
	return nil, errors.New("C002").WithDetailf("backend.driver %q", b.Driver)
}

// closeBackend closes b if it holds a connection.
func closeBackend(b persist.Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// listKeys returns the keys stored in b.
func listKeys(ctx context.Context, b persist.Backend) ([]string, error) {
	switch l := b.(type) {
	case *persist.MemoryBackend:
		return l.Keys(), nil
	case keyLister:
		return l.Keys(ctx)
	}
	return nil, errors.Newf(errors.CategoryPersistence, "backend %T cannot list keys", b)
}
