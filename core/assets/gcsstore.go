package assets

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// GCSStore keeps assets as objects under a prefix of a bucket. The
// identifier of an asset is its object name relative to the prefix, so
// "https://storage.googleapis.com/{bucket}/{prefix}" works as base URL.
type GCSStore struct {
	bucket *storage.BucketHandle
	prefix string
}

// NewGCSStore wraps a bucket handle.
func NewGCSStore(bucket *storage.BucketHandle, prefix string) *GCSStore {
	return &GCSStore{bucket: bucket, prefix: NormalizePrefix(prefix)}
}

// OpenGCSStore creates a client with default credentials. Close the
// returned client when done.
func OpenGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, *storage.Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("creating storage client: %w", err)
	}
	return NewGCSStore(client.Bucket(bucket), prefix), client, nil
}

// Inventory lists the objects under the prefix.
func (s *GCSStore) Inventory(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: s.prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing objects: %w", err)
		}
		id := strings.TrimPrefix(attrs.Name, s.prefix)
		if id == "" || strings.HasSuffix(id, "/") {
			continue
		}
		out[Title(id)] = id
	}
	return out, nil
}

// Upload writes the object only if it does not exist yet. An object that
// already exists is treated as a successful upload.
func (s *GCSStore) Upload(ctx context.Context, name string, data []byte) (string, error) {
	id := path.Base(name)
	object := s.prefix + id

	w := s.bucket.Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = ContentType(id)

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		if alreadyExists(err) {
			return id, nil
		}
		return "", fmt.Errorf("writing gs object %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		if alreadyExists(err) {
			return id, nil
		}
		return "", fmt.Errorf("finalizing gs object %s: %w", object, err)
	}
	return id, nil
}

func alreadyExists(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// NormalizePrefix makes a non-empty prefix end with a single slash.
func NormalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// ContentType guesses the media type of an asset from its extension.
func ContentType(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}
