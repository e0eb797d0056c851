package view

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ufotracker/tracker/config"
	"github.com/ufotracker/tracker/consts"
)

var ErrAssetUnavailable = errors.New("rich renderer assets unavailable")

// AssetChecker remembers whether the 3D renderer's script can be fetched,
// so each view does not have to hit the assets host.
type AssetChecker struct {
	URL    string
	Client *http.Client
	TTL    time.Duration

	mu      sync.Mutex
	checked time.Time
	err     error
}

func NewAssetChecker(host string, timeout time.Duration) *AssetChecker {
	return &AssetChecker{
		URL:    config.AssetsBaseURL(host) + consts.GlobeAssetFile,
		Client: &http.Client{Timeout: timeout},
		TTL:    consts.AssetCacheTTL,
	}
}

// Refresh checks the asset now and caches the outcome.
func (c *AssetChecker) Refresh(ctx context.Context) error {
	err := c.head(ctx)
	if ctx.Err() != nil {
		// A cancelled caller says nothing about the asset.
		return err
	}
	c.mu.Lock()
	c.checked, c.err = time.Now(), err
	c.mu.Unlock()
	return err
}

// Check returns the cached outcome while it is fresh, or refreshes it.
func (c *AssetChecker) Check(ctx context.Context) error {
	c.mu.Lock()
	fresh := !c.checked.IsZero() && time.Since(c.checked) < c.TTL
	err := c.err
	c.mu.Unlock()
	if fresh {
		return err
	}
	return c.Refresh(ctx)
}

func (c *AssetChecker) head(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAssetUnavailable, err)
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAssetUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned %s", ErrAssetUnavailable, c.URL, resp.Status)
	}
	return nil
}
