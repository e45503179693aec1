// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"context"
	"io"
	"time"
)

// TokenBucketRateLimiterConfig configures a [TokenBucketRateLimiter]:
// up to three independent [TokenBucket]s (connection rate, request
// rate, byte rate). A zero FlowRate on any of the three disables that
// particular limit (AllowConnection/AllowRequest/WrapWriter become
// no-ops for it).
type TokenBucketRateLimiterConfig struct {
	BaseConfig

	// Connection limits AllowConnection. A zero FlowRate disables it.
	Connection TokenBucketConfig

	// Request limits AllowRequest. A zero FlowRate disables it.
	Request TokenBucketConfig

	// Bytes limits WrapWriter's byte throughput. A zero FlowRate
	// disables it.
	Bytes TokenBucketConfig

	// MaxWaitTime caps how long a single AllowConnection/AllowRequest
	// call is willing to queue before failing with
	// [ErrRateLimitExceeded]; see [GrantOptions.MaxWaitTime].
	MaxWaitTime time.Duration
}

// Validate implements [ConfigRecord].
func (c *TokenBucketRateLimiterConfig) Validate() error {
	return c.BaseConfig.Validate()
}

// TokenBucketRateLimiter is the built-in [RateLimiter] implementation
// (§4.10), backed by up to three independent [TokenBucket]s: connection-
// and request-rate limiting are always separate. Giving the Connection
// and Request fields the same [TokenBucketConfig] still builds two
// distinct buckets; there is no option that fuses them.
type TokenBucketRateLimiter struct {
	NoopImpl
	*BaseComponent

	maxWaitTime time.Duration
	connBucket  *TokenBucket
	reqBucket   *TokenBucket
	byteBucket  *TokenBucket
}

var _ Component = &TokenBucketRateLimiter{}
var _ RateLimiter = &TokenBucketRateLimiter{}

// NewTokenBucketRateLimiter returns a [*TokenBucketRateLimiter] for cfg.
func NewTokenBucketRateLimiter(cfg *TokenBucketRateLimiterConfig) (*TokenBucketRateLimiter, error) {
	if err := CheckClass(cfg.Class, "TokenBucketRateLimiter"); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rl := &TokenBucketRateLimiter{maxWaitTime: cfg.MaxWaitTime}
	if cfg.Connection.FlowRate > 0 {
		rl.connBucket = NewTokenBucket(cfg.Connection)
	}
	if cfg.Request.FlowRate > 0 {
		rl.reqBucket = NewTokenBucket(cfg.Request)
	}
	if cfg.Bytes.FlowRate > 0 {
		rl.byteBucket = NewTokenBucket(cfg.Bytes)
	}
	rl.BaseComponent = NewBaseComponent("TokenBucketRateLimiter", rl)
	return rl, nil
}

// NewTokenBucketRateLimiterComponent is the [Constructor] registered
// for class "TokenBucketRateLimiter".
func NewTokenBucketRateLimiterComponent(cfg ConfigRecord) (Component, error) {
	rlCfg, ok := cfg.(*TokenBucketRateLimiterConfig)
	if !ok {
		return nil, NewError(KindConfiguration, "TokenBucketRateLimiter requires a *TokenBucketRateLimiterConfig", nil)
	}
	return NewTokenBucketRateLimiter(rlCfg)
}

// AllowConnection implements [RateLimiter].
func (rl *TokenBucketRateLimiter) AllowConnection(ctx context.Context, originAddr string) (bool, error) {
	return rl.grant(ctx, rl.connBucket)
}

// AllowRequest implements [RateLimiter].
func (rl *TokenBucketRateLimiter) AllowRequest(ctx context.Context, req *Request) (bool, error) {
	return rl.grant(ctx, rl.reqBucket)
}

func (rl *TokenBucketRateLimiter) grant(ctx context.Context, bucket *TokenBucket) (bool, error) {
	if bucket == nil {
		return true, nil
	}
	_, err := bucket.Grant(ctx, 1, GrantOptions{MaxWaitTime: rl.maxWaitTime})
	if err != nil {
		if AsKindIs(err, KindRateLimitExceeded) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// WrapWriter implements [RateLimiter]: wraps w so that every Write call
// first acquires bytes-worth of grant from the byte-rate bucket.
func (rl *TokenBucketRateLimiter) WrapWriter(ctx context.Context, w io.Writer) io.Writer {
	if rl.byteBucket == nil {
		return w
	}
	return &byteRateWriter{ctx: ctx, bucket: rl.byteBucket, underlying: w}
}

// byteRateWriter wraps an io.Writer so that outgoing body bytes flow
// through a byte-rate [TokenBucket] (§4.5's "wraps writers" clause).
type byteRateWriter struct {
	ctx        context.Context
	bucket     *TokenBucket
	underlying io.Writer
}

// Write implements io.Writer, granting len(p) bytes before writing.
func (w *byteRateWriter) Write(p []byte) (int, error) {
	if _, err := w.bucket.Grant(w.ctx, float64(len(p)), GrantOptions{AllowPartial: false}); err != nil {
		return 0, err
	}
	return w.underlying.Write(p)
}

// AsKindIs reports whether err is a [*Error] of the given [Kind].
func AsKindIs(err error, kind Kind) bool {
	k, ok := AsKind(err)
	return ok && k == kind
}
