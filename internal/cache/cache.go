// Package cache stores encoded display images so repeated render
// requests for the same frame and presentation parameters skip the
// window mapping and PNG encode entirely.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/render"
)

// ErrMiss is returned when a key is not present.
var ErrMiss = errors.New("cache miss")

// Cache is the rendered-image cache contract.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context, pattern string) error
}

// RenderKey builds the cache key for one rendered frame. Every
// presentation parameter participates: two states that render
// differently must never share a key.
func RenderKey(sopUID string, frameIndex int, st render.PresentationState) string {
	return fmt.Sprintf("render:%s:%d:wc%g:ww%g:inv%t:fh%t:fv%t:rot%d",
		sopUID, frameIndex,
		st.WindowCenter, st.WindowWidth,
		st.InvertColors, st.FlipHorizontal, st.FlipVertical,
		st.NormalizedRotation())
}

// ImageKeyPattern matches every rendered entry of one SOP instance, for
// invalidation when its series is closed.
func ImageKeyPattern(sopUID string) string {
	return "render:" + sopUID + ":*"
}
