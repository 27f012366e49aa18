package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/totegamma/crtv-studio"
	"github.com/totegamma/crtv-studio/internal/config"
)

// Blob stores objects in an S3 compatible bucket and hands out s3:// uris.
type Blob struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

func NewBlob(ctx context.Context, conf config.Storage) (*Blob, error) {
	client, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: conf.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, conf.Bucket)
	if err != nil {
		return nil, fmt.Errorf("error checking if bucket exists: %w", err)
	}
	if !exists {
		err = client.MakeBucket(ctx, conf.Bucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("error creating bucket: %w", err)
		}
		slog.Info(
			"bucket created",
			slog.String("bucket", conf.Bucket),
			slog.String("module", "blob"),
		)
	}

	base := conf.PublicBaseURL
	if base == "" {
		scheme := "http"
		if conf.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, conf.Endpoint, conf.Bucket)
	}

	return &Blob{
		client:        client,
		bucket:        conf.Bucket,
		publicBaseURL: strings.TrimSuffix(base, "/"),
	}, nil
}

func (b *Blob) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Blob.Put")
	defer span.End()

	if size <= 0 {
		size = -1
	}

	_, err := b.client.PutObject(ctx, b.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	return crtv.ComposeStorageURI(b.bucket, key), nil
}

// Get reads an object addressed by an s3:// uri of this bucket.
func (b *Blob) Get(ctx context.Context, uri string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Gateway.Blob.Get")
	defer span.End()

	scheme, bucket, key, err := crtv.ParseStorageURI(uri)
	if err != nil {
		return nil, err
	}
	if scheme != "s3" {
		return nil, fmt.Errorf("not an s3 uri")
	}

	object, err := b.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer object.Close()

	return io.ReadAll(object)
}

// PublicURL maps an s3:// uri of this bucket to its http url. Other uris are
// returned unchanged.
func (b *Blob) PublicURL(uri string) string {
	scheme, bucket, key, err := crtv.ParseStorageURI(uri)
	if err != nil || scheme != "s3" || bucket != b.bucket {
		return uri
	}
	return b.publicBaseURL + "/" + key
}
