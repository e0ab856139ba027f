package fsutil

import (
	"context"
	"io"
	"path"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/obj"
	"github.com/crs4/hadoop-galaxy/src/internal/pctx"
)

// BucketOpener opens the bucket named by the authority of a URI with the given scheme.
type BucketOpener func(ctx context.Context, scheme, name string) (*blob.Bucket, error)

// BlobFS serves object storage URIs of the form scheme://bucket/key.  Directories are key prefixes
// ending at a "/": they exist as long as some object lives under them, Mkdir is a no-op and Rename
// copies then deletes.  Hard links are not supported.
//
// Opened buckets are kept in an LRU cache.  Buckets of the mem scheme only live as long as they
// stay in the cache.
type BlobFS struct {
	open  BucketOpener
	mu    sync.Mutex
	cache *lru.Cache[string, *blob.Bucket]
}

var _ FS = (*BlobFS)(nil)

// DefaultBucketCacheSize is the number of bucket handles a BlobFS keeps open.
const DefaultBucketCacheSize = 64

// NewBlobFS returns a BlobFS that opens buckets with open, or with obj.NewBucket if open is nil.
func NewBlobFS(open BucketOpener, cacheSize int) (*BlobFS, error) {
	if open == nil {
		open = obj.NewBucket
	}
	if cacheSize <= 0 {
		cacheSize = DefaultBucketCacheSize
	}
	cache, err := lru.NewWithEvict(cacheSize, func(key string, b *blob.Bucket) {
		if err := b.Close(); err != nil {
			log.Error(pctx.TODO(), "failed to close evicted bucket", zap.String("bucket", key), zap.Error(err))
		}
	})
	if err != nil {
		return nil, errors.EnsureStack(err)
	}
	return &BlobFS{open: open, cache: cache}, nil
}

func (f *BlobFS) bucket(ctx context.Context, uri string) (*blob.Bucket, string, error) {
	u, err := ParseURI(uri)
	if err != nil {
		return nil, "", err
	}
	if u.Authority == "" {
		return nil, "", errors.Errorf("%s: missing bucket name", uri)
	}
	cacheKey := u.Scheme + "://" + u.Authority
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.cache.Get(cacheKey)
	if !ok {
		log.Debug(ctx, "opening bucket", zap.String("bucket", cacheKey))
		b, err = f.open(ctx, u.Scheme, u.Authority)
		if err != nil {
			return nil, "", errors.Wrapf(err, "open bucket %s", cacheKey)
		}
		f.cache.Add(cacheKey, b)
	}
	return b, strings.Trim(path.Clean(u.Path), "/"), nil
}

// Close closes every cached bucket.
func (f *BlobFS) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.Purge()
	return nil
}

func dirPrefix(key string) string {
	if key == "" {
		return ""
	}
	return key + "/"
}

func isNotFound(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}

func (f *BlobFS) Stat(ctx context.Context, uri string) (FileInfo, error) {
	b, key, err := f.bucket(ctx, uri)
	if err != nil {
		return FileInfo{}, err
	}
	if key == "" {
		return FileInfo{URI: uri, Name: "/", Kind: KindDir}, nil
	}
	attrs, err := b.Attributes(ctx, key)
	if err == nil {
		return FileInfo{URI: uri, Name: path.Base(key), Kind: KindFile, Size: attrs.Size}, nil
	}
	if !isNotFound(err) {
		return FileInfo{}, errors.EnsureStack(err)
	}
	it := b.List(&blob.ListOptions{Prefix: dirPrefix(key)})
	if _, err := it.Next(ctx); err != nil {
		if err == io.EOF {
			return FileInfo{}, notExist(uri)
		}
		return FileInfo{}, errors.EnsureStack(err)
	}
	return FileInfo{URI: uri, Name: path.Base(key), Kind: KindDir}, nil
}

func (f *BlobFS) Exists(ctx context.Context, uri string) (bool, error) {
	return exists(ctx, f, uri)
}

func (f *BlobFS) List(ctx context.Context, uri string) ([]FileInfo, error) {
	b, key, err := f.bucket(ctx, uri)
	if err != nil {
		return nil, err
	}
	base := MustParseURI(uri)
	prefix := dirPrefix(key)
	it := b.List(&blob.ListOptions{Prefix: prefix, Delimiter: "/"})
	var result []FileInfo
	for {
		o, err := it.Next(ctx)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.EnsureStack(err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(o.Key, prefix), "/")
		if name == "" {
			continue
		}
		fi := FileInfo{URI: base.Join(name).String(), Name: name, Kind: KindFile, Size: o.Size}
		if o.IsDir {
			fi.Kind, fi.Size = KindDir, 0
		}
		result = append(result, fi)
	}
	if len(result) == 0 && key != "" {
		if _, err := f.Stat(ctx, uri); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (f *BlobFS) Open(ctx context.Context, uri string, offset int64) (io.ReadCloser, error) {
	b, key, err := f.bucket(ctx, uri)
	if err != nil {
		return nil, err
	}
	r, err := b.NewRangeReader(ctx, key, offset, -1, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, notExist(uri)
		}
		return nil, errors.EnsureStack(err)
	}
	return r, nil
}

func (f *BlobFS) Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	b, key, err := f.bucket(ctx, uri)
	if err != nil {
		return nil, err
	}
	w, err := b.NewWriter(ctx, key, nil)
	if err != nil {
		return nil, errors.EnsureStack(err)
	}
	return w, nil
}

func (f *BlobFS) keysUnder(ctx context.Context, b *blob.Bucket, key string) ([]string, error) {
	var keys []string
	it := b.List(&blob.ListOptions{Prefix: dirPrefix(key)})
	for {
		o, err := it.Next(ctx)
		if err != nil {
			if err == io.EOF {
				return keys, nil
			}
			return nil, errors.EnsureStack(err)
		}
		keys = append(keys, o.Key)
	}
}

func (f *BlobFS) Remove(ctx context.Context, uri string, recursive bool) error {
	b, key, err := f.bucket(ctx, uri)
	if err != nil {
		return err
	}
	if key != "" {
		if err := b.Delete(ctx, key); err != nil && !isNotFound(err) {
			return errors.EnsureStack(err)
		}
	}
	if !recursive {
		return nil
	}
	keys, err := f.keysUnder(ctx, b, key)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := b.Delete(ctx, k); err != nil && !isNotFound(err) {
			return errors.EnsureStack(err)
		}
	}
	return nil
}

func (f *BlobFS) Mkdir(ctx context.Context, uri string) error {
	_, _, err := f.bucket(ctx, uri)
	return err
}

func (f *BlobFS) Rename(ctx context.Context, src, dst string) error {
	sb, skey, err := f.bucket(ctx, src)
	if err != nil {
		return err
	}
	db, dkey, err := f.bucket(ctx, dst)
	if err != nil {
		return err
	}
	fi, err := f.Stat(ctx, src)
	if err != nil {
		return err
	}
	move := func(from, to string) error {
		if sb == db {
			if err := sb.Copy(ctx, to, from, nil); err != nil {
				return errors.EnsureStack(err)
			}
		} else if err := obj.Copy(ctx, sb, db, from, to); err != nil {
			return err
		}
		return errors.EnsureStack(sb.Delete(ctx, from))
	}
	if fi.Kind == KindFile {
		return move(skey, dkey)
	}
	keys, err := f.keysUnder(ctx, sb, skey)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := move(k, dirPrefix(dkey)+strings.TrimPrefix(k, dirPrefix(skey))); err != nil {
			return err
		}
	}
	return nil
}

func (f *BlobFS) Link(ctx context.Context, src, dst string) error {
	return errors.Wrapf(ErrUnsupported, "link %s", src)
}
