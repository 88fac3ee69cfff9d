package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/hupe1980/toyfat/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ContentType is stored with every snapshot object.
const ContentType = "application/vnd.toyfat.snapshot"

// Store implements blobstore.BlobStore for MinIO and S3-compatible storage.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ blobstore.BlobStore = (*Store)(nil)

// NewStore creates a store on an existing client. rootPrefix is prepended to
// all keys (e.g. "snapshots/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(rootPrefix, "/"),
	}
}

type options struct {
	prefix       string
	accessKey    string
	secretKey    string
	secure       bool
	region       string
	createBucket bool
}

// Option configures New.
type Option func(*options)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithCredentials sets static access keys. Without them requests are
// anonymous.
func WithCredentials(accessKey, secretKey string) Option {
	return func(o *options) {
		o.accessKey = accessKey
		o.secretKey = secretKey
	}
}

// WithSecure switches the client to HTTPS.
func WithSecure(secure bool) Option {
	return func(o *options) { o.secure = secure }
}

// WithRegion sets the bucket region.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithCreateBucket makes New create the bucket when it does not exist.
func WithCreateBucket() Option {
	return func(o *options) { o.createBucket = true }
}

// New connects to the server at endpoint ("host:port"). The server is only
// contacted when WithCreateBucket is given.
func New(ctx context.Context, endpoint, bucket string, optFns ...Option) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("minio: bucket name required")
	}

	var o options
	for _, fn := range optFns {
		fn(&o)
	}

	mo := &minio.Options{Secure: o.secure, Region: o.region}
	if o.accessKey != "" {
		mo.Creds = credentials.NewStaticV4(o.accessKey, o.secretKey, "")
	}
	client, err := minio.New(endpoint, mo)
	if err != nil {
		return nil, fmt.Errorf("minio: client: %w", err)
	}

	if o.createBucket {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("minio: bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: o.region}); err != nil {
				return nil, fmt.Errorf("minio: make bucket %s: %w", bucket, err)
			}
		}
	}
	return NewStore(client, bucket, o.prefix), nil
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// name maps an object key back to a blob name. ok is false for keys outside
// the prefix.
func (s *Store) name(key string) (string, bool) {
	if s.prefix == "" {
		return key, key != ""
	}
	rel, ok := strings.CutPrefix(key, s.prefix+"/")
	return rel, ok && rel != ""
}

// Open stats the object and returns a blob that fetches ranges on demand.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, translateError(err)
	}
	return &minioBlob{
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   info.Size,
	}, nil
}

// Put uploads data as a single object.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: ContentType})
	if err != nil {
		return fmt.Errorf("minio: put %s: %w", name, err)
	}
	return nil
}

// Create buffers writes and uploads them on Close. Images are small, so the
// upload always carries a known length and nothing is stored for a writer
// that is never closed.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return &minioWriter{ctx: ctx, store: s, name: name}, nil
}

// Delete removes a blob. Missing blobs are not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !errors.Is(translateError(err), blobstore.ErrNotFound) {
		return err
	}
	return nil
}

// List returns the sorted blob names starting with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.key(prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, translateError(obj.Err)
		}
		if name, ok := s.name(obj.Key); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey", resp.Code == "NotFound", resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", blobstore.ErrNotFound, resp.Key)
	}
	return err
}

type minioBlob struct {
	client *minio.Client
	bucket string
	key    string
	size   int64
}

func (b *minioBlob) Size() int64 {
	return b.size
}

func (b *minioBlob) Close() error {
	return nil
}

func (b *minioBlob) get(ctx context.Context, off, n int64) (*minio.Object, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, off+n-1); err != nil {
		return nil, err
	}
	obj, err := b.client.GetObject(ctx, b.bucket, b.key, opts)
	if err != nil {
		return nil, translateError(err)
	}
	return obj, nil
}

func (b *minioBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 && off >= 0 && off <= b.size {
		return 0, nil
	}
	n, ok := blobstore.ClampRange(b.size, off, int64(len(p)))
	if !ok {
		return 0, io.EOF
	}

	obj, err := b.get(ctx, off, n)
	if err != nil {
		return 0, err
	}
	defer obj.Close()

	read, err := io.ReadFull(obj, p[:n])
	if err != nil {
		return read, translateError(err)
	}
	if read < len(p) {
		return read, io.EOF
	}
	return read, nil
}

func (b *minioBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	n, ok := blobstore.ClampRange(b.size, off, length)
	if !ok {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return b.get(ctx, off, n)
}

type minioWriter struct {
	ctx    context.Context
	store  *Store
	name   string
	buf    bytes.Buffer
	closed bool
}

func (w *minioWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	return w.buf.Write(p)
}

// Sync is a no-op; the object is written by Close.
func (w *minioWriter) Sync() error {
	return nil
}

func (w *minioWriter) Close() error {
	if w.closed {
		return io.ErrClosedPipe
	}
	w.closed = true
	return w.store.Put(w.ctx, w.name, w.buf.Bytes())
}
