// Package objectstore keeps pinned content in an S3-compatible bucket,
// addressed by the sha256 digest of its JSON encoding.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"

	"go-roundflow/internal/domain"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/opencontainers/go-digest"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Region    string
	UseSSL    bool
}

// Store implements ports.ContentStore. Pointers are digest strings such as
// "sha256:2c26b4...".
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

func New(cfg Config) (*Store, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: client for %s: %w", cfg.Endpoint, err)
	}
	return &Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *Store) key(d digest.Digest) string {
	return path.Join(s.prefix, d.Algorithm().String(), d.Encoded()+".json")
}

func (s *Store) Save(ctx context.Context, name string, content any) (string, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("%w: marshal %s: %v", domain.ErrStoreRejected, name, err)
	}
	d := digest.FromBytes(data)

	// an intact copy under the same digest is reused; a missing or corrupt one is rewritten
	if _, err := s.Load(ctx, d.String()); err == nil {
		return d.String(), nil
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.key(d), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  "application/json",
		UserMetadata: map[string]string{"name": name},
	})
	if err != nil {
		return "", translateError(name, err)
	}
	return d.String(), nil
}

// Load fetches the content behind pointer and checks it against the digest.
func (s *Store) Load(ctx context.Context, pointer string) ([]byte, error) {
	d, err := digest.Parse(pointer)
	if err != nil {
		return nil, fmt.Errorf("%w: pointer %q: %v", domain.ErrStoreRejected, pointer, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, s.key(d), minio.GetObjectOptions{})
	if err != nil {
		return nil, translateError(pointer, err)
	}
	defer func() {
		_ = obj.Close()
	}()

	verifier := d.Verifier()
	data, err := io.ReadAll(io.TeeReader(obj, verifier))
	if err != nil {
		return nil, translateError(pointer, err)
	}
	if !verifier.Verified() {
		return nil, fmt.Errorf("%w: content of %s does not match its digest", domain.ErrStoreRejected, pointer)
	}
	return data, nil
}

func translateError(name string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.StatusCode == 0, resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, name, err)
	default:
		return fmt.Errorf("%w: %s: %s %v", domain.ErrStoreRejected, name, resp.Code, err)
	}
}
