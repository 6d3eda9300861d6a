// Package imagefetch loads base images and import documents over HTTP or
// from the local filesystem.
package imagefetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/parcelview/internal/core/domain"
	"github.com/samirrijal/parcelview/internal/pkg/metrics"
)

const maxRedirects = 5

// Fetcher implements ports.ImageSource and ports.DocumentSource. Requests
// are made once; there are no retries.
type Fetcher struct {
	client   *fasthttp.Client
	timeout  time.Duration
	maxBytes int

	files    bool
	fileRoot string
}

// Option configures local file access.
type Option func(*Fetcher)

// WithFileRoot allows file:// URLs and bare paths that resolve inside root.
// An empty root leaves local files disabled.
func WithFileRoot(root string) Option {
	return func(f *Fetcher) {
		if root == "" {
			return
		}
		f.files = true
		f.fileRoot = root
	}
}

// AllowAnyFile allows reading any local path. Only for operator-supplied
// sources such as import documents.
func AllowAnyFile() Option {
	return func(f *Fetcher) {
		f.files = true
		f.fileRoot = ""
	}
}

// New creates a Fetcher that gives up after timeout and rejects bodies larger
// than maxBytes. Local files are refused unless an Option allows them.
func New(timeout time.Duration, maxBytes int, opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &fasthttp.Client{
			Name:                "parcelview",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxBytes,
		},
		timeout:  timeout,
		maxBytes: maxBytes,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch returns the bytes at rawURL. http and https URLs are requested;
// file:// URLs and bare paths are read from disk when allowed.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrImageFetch, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		data, err := f.fetchHTTP(ctx, rawURL)
		observe(u.Scheme, err)
		return data, err
	case "file":
		data, err := f.readFile(u.Path)
		observe("file", err)
		return data, err
	case "":
		data, err := f.readFile(rawURL)
		observe("file", err)
		return data, err
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", domain.ErrImageFetch, u.Scheme)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rawURL)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline := time.Now().Add(f.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	err := f.do(req, resp, deadline)
	if errors.Is(err, fasthttp.ErrBodyTooLarge) {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrImageFetch, rawURL, f.maxBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrImageFetch, rawURL, err)
	}

	switch code := resp.StatusCode(); {
	case code == fasthttp.StatusNotFound || code == fasthttp.StatusGone:
		return nil, fmt.Errorf("%w: %s", domain.ErrImageNotFound, rawURL)
	case code < 200 || code > 299:
		return nil, fmt.Errorf("%w: %s returned %d", domain.ErrImageFetch, rawURL, code)
	}

	// the response is released on return
	return append([]byte(nil), resp.Body()...), nil
}

// do follows redirects itself because DoRedirects takes no deadline.
func (f *Fetcher) do(req *fasthttp.Request, resp *fasthttp.Response, deadline time.Time) error {
	for i := 0; ; i++ {
		if err := f.client.DoDeadline(req, resp, deadline); err != nil {
			return err
		}
		if !fasthttp.StatusCodeIsRedirect(resp.StatusCode()) {
			return nil
		}
		if i == maxRedirects {
			return fasthttp.ErrTooManyRedirects
		}
		location := resp.Header.Peek(fasthttp.HeaderLocation)
		if len(location) == 0 {
			return fasthttp.ErrMissingLocation
		}
		req.URI().UpdateBytes(location)
	}
}

// resolve returns the real path to read, or an error when path is outside
// the allowed files.
func (f *Fetcher) resolve(path string) (string, error) {
	if !f.files {
		return "", fmt.Errorf("%w: local files are not allowed: %s", domain.ErrImageFetch, path)
	}
	if f.fileRoot == "" {
		return path, nil
	}

	root, err := filepath.EvalSymlinks(f.fileRoot)
	if err != nil {
		return "", fmt.Errorf("%w: image root: %v", domain.ErrImageFetch, err)
	}
	if root, err = filepath.Abs(root); err != nil {
		return "", fmt.Errorf("%w: image root: %v", domain.ErrImageFetch, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrImageFetch, err)
	}
	// symlinks are followed before the containment check
	target, err := filepath.EvalSymlinks(abs)
	if errors.Is(err, fs.ErrNotExist) {
		target = abs
		if dir, derr := filepath.EvalSymlinks(filepath.Dir(abs)); derr == nil {
			target = filepath.Join(dir, filepath.Base(abs))
		}
	} else if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrImageFetch, err)
	}

	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the image root", domain.ErrImageFetch, path)
	}
	return target, nil
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	path, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrImageNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrImageFetch, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrImageNotFound, path)
	}
	if info.Size() > int64(f.maxBytes) {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrImageFetch, path, f.maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrImageFetch, err)
	}
	return data, nil
}

func observe(scheme string, err error) {
	result := "ok"
	switch {
	case errors.Is(err, domain.ErrImageNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	metrics.ImageFetches.WithLabelValues(scheme, result).Inc()
}
