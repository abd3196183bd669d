// Package release resolves published language-server releases from a
// GitHub-style release API and selects the platform-matched asset.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/quill-lang/quillup/internal/domain"
)

const defaultBaseURL = "https://api.github.com/repos/quill-lang/quill-ls"

// weeklyTagPrefix marks nightly builds; stable resolution skips them.
const weeklyTagPrefix = "weekly."

// Resolver queries the release provider and picks usable releases.
type Resolver struct {
	baseURL string
	client  *http.Client
	goos    string
	goarch  string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBaseURL overrides the provider endpoint. Used by tests.
func WithBaseURL(u string) Option {
	return func(r *Resolver) { r.baseURL = strings.TrimRight(u, "/") }
}

// WithPlatform overrides the detected platform. Used by tests.
func WithPlatform(goos, goarch string) Option {
	return func(r *Resolver) { r.goos, r.goarch = goos, goarch }
}

// NewResolver creates a Resolver for the running platform.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		goos:    runtime.GOOS,
		goarch:  runtime.GOARCH,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ResolveStable fetches the full release list and returns the first
// release (server order, newest first) that is not a draft, not a
// prerelease, and not weekly-tagged, together with its platform asset.
func (r *Resolver) ResolveStable(ctx context.Context) (domain.Release, domain.Asset, error) {
	var releases []domain.Release
	if err := r.getJSON(ctx, r.baseURL+"/releases", &releases); err != nil {
		return domain.Release{}, domain.Asset{}, err
	}

	for _, rel := range releases {
		if rel.Draft || rel.Prerelease || strings.HasPrefix(rel.TagName, weeklyTagPrefix) {
			continue
		}
		return r.withAsset(rel)
	}
	return domain.Release{}, domain.Asset{}, fmt.Errorf("no stable release found: %w", domain.ErrNoRelease)
}

// ResolveLatest fetches the provider's single "latest" release.
func (r *Resolver) ResolveLatest(ctx context.Context) (domain.Release, domain.Asset, error) {
	var rel domain.Release
	if err := r.getJSON(ctx, r.baseURL+"/releases/latest", &rel); err != nil {
		return domain.Release{}, domain.Asset{}, err
	}
	return r.withAsset(rel)
}

func (r *Resolver) withAsset(rel domain.Release) (domain.Release, domain.Asset, error) {
	asset, ok := SelectAsset(rel.Assets, r.goos, r.goarch)
	if !ok {
		return domain.Release{}, domain.Asset{}, fmt.Errorf(
			"release %s has no asset for %s/%s: %w",
			rel.TagName, r.goos, r.goarch, domain.ErrUnsupportedPlatform,
		)
	}
	return rel, asset, nil
}

// getJSON performs a GET and decodes the body, classifying failures as
// network errors (connect/HTTP status) or protocol errors (bad shape).
func (r *Resolver) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %v: %w", url, err, domain.ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: HTTP %d: %w", url, resp.StatusCode, domain.ErrNetwork)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %v: %w", url, err, domain.ErrProtocol)
	}
	return nil
}
