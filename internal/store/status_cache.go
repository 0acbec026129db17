package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/superrexy/APD-Restaurant-Violation-App/internal/events"
)

// StatusCache keeps the latest CameraStatusChanged per camera under {prefix}{code}.
type StatusCache struct {
	kv     KV
	prefix string
	ttl    time.Duration
}

func NewStatusCache(kv KV, prefix string, ttl time.Duration) *StatusCache {
	return &StatusCache{kv: kv, prefix: prefix, ttl: ttl}
}

func (c *StatusCache) key(code string) string { return c.prefix + code }

// Put stores evt unless the cached entry is newer.
func (c *StatusCache) Put(ctx context.Context, evt events.CameraStatusChanged) error {
	cur, err := c.Get(ctx, evt.CameraCode)
	if err == nil && cur.OccurredAt.After(evt.OccurredAt) {
		return nil
	}
	if err != nil && !errors.Is(err, ErrMiss) {
		return err
	}

	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal camera status: %w", err)
	}
	if err := c.kv.Set(ctx, c.key(evt.CameraCode), string(b), c.ttl); err != nil {
		return fmt.Errorf("failed to cache camera status %s: %w", evt.CameraCode, err)
	}
	return nil
}

func (c *StatusCache) Get(ctx context.Context, code string) (*events.CameraStatusChanged, error) {
	raw, err := c.kv.Get(ctx, c.key(code))
	if err != nil {
		return nil, err
	}
	var evt events.CameraStatusChanged
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal camera status %s: %w", code, err)
	}
	return &evt, nil
}

// All returns every cached camera status ordered by camera code.
func (c *StatusCache) All(ctx context.Context) ([]events.CameraStatusChanged, error) {
	keys, err := c.kv.ScanKeys(ctx, c.prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan camera status keys: %w", err)
	}
	vals, err := c.kv.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("failed to read camera status keys: %w", err)
	}

	out := make([]events.CameraStatusChanged, 0, len(vals))
	for i, raw := range vals {
		if raw == "" {
			continue // expired between SCAN and MGET
		}
		var evt events.CameraStatusChanged
		if err := json.Unmarshal([]byte(raw), &evt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", keys[i], err)
		}
		if evt.CameraCode == "" {
			evt.CameraCode = strings.TrimPrefix(keys[i], c.prefix)
		}
		out = append(out, evt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CameraCode < out[j].CameraCode })
	return out, nil
}
