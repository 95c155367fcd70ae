package drive

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 500 * time.Millisecond
)

// Retrying decorates a Provider with exponential backoff on transient
// failures. Permanent errors pass through on the first attempt; transient
// ones are retried up to the attempt cap and then surfaced to the caller,
// who treats them as a soft failure.
type Retrying struct {
	inner      Provider
	maxRetries uint64
	baseDelay  time.Duration
}

// WithRetry wraps p with the default backoff policy.
func WithRetry(p Provider) *Retrying {
	return &Retrying{inner: p, maxRetries: defaultMaxRetries, baseDelay: defaultBaseDelay}
}

func (r *Retrying) backoff() retry.Backoff {
	return retry.WithMaxRetries(r.maxRetries, retry.NewExponential(r.baseDelay))
}

func (r *Retrying) do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempt := 0
	return retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			slog.Warn("drive call failed, retrying", "op", op, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (r *Retrying) ListFolder(ctx context.Context, driveID, parentID string) (Listing, error) {
	var listing Listing
	err := r.do(ctx, "list_folder", func(ctx context.Context) error {
		var err error
		listing, err = r.inner.ListFolder(ctx, driveID, parentID)
		return err
	})
	return listing, err
}

func (r *Retrying) Download(ctx context.Context, fileID string) ([]byte, error) {
	var data []byte
	err := r.do(ctx, "download", func(ctx context.Context) error {
		var err error
		data, err = r.inner.Download(ctx, fileID)
		return err
	})
	return data, err
}

func (r *Retrying) Rename(ctx context.Context, fileID, newName string) error {
	return r.do(ctx, "rename", func(ctx context.Context) error {
		return r.inner.Rename(ctx, fileID, newName)
	})
}
