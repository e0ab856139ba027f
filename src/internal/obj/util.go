package obj

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/crs4/hadoop-galaxy/src/internal/errors"
)

// Copy copies the object at srcKey in src to dstKey in dst.
func Copy(ctx context.Context, src, dst *Bucket, srcKey, dstKey string) error {
	return WithPipe(func(w io.Writer) error {
		r, err := src.NewReader(ctx, srcKey, nil)
		if err != nil {
			return errors.EnsureStack(err)
		}
		defer r.Close()
		_, err = io.Copy(w, r)
		return errors.EnsureStack(err)
	}, func(r io.Reader) (retErr error) {
		w, err := dst.NewWriter(ctx, dstKey, nil)
		if err != nil {
			return errors.EnsureStack(err)
		}
		defer errors.Close(&retErr, w, "close writer for %s", dstKey)
		_, err = io.Copy(w, r)
		return errors.EnsureStack(err)
	})
}

// WithPipe calls rcb with a reader and wcb with a writer
func WithPipe(wcb func(w io.Writer) error, rcb func(r io.Reader) error) error {
	pr, pw := io.Pipe()
	eg := errgroup.Group{}
	eg.Go(func() error {
		if err := wcb(pw); err != nil {
			return pw.CloseWithError(err)
		}
		return pw.Close()
	})
	eg.Go(func() error {
		if err := rcb(pr); err != nil {
			return pr.CloseWithError(err)
		}
		return pr.Close()
	})
	return errors.EnsureStack(eg.Wait())
}
