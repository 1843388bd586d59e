// Package fragment loads reusable page fragments such as the navigation and
// the footer.
package fragment

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/pageboot/internal/config"
	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/retry"
)

const (
	plainSuffix      = ".plain.html"
	markdownSuffix   = ".md"
	maxFragmentBytes = 2 * 1024 * 1024
)

// Source returns the HTML of the fragment at an absolute site path.
type Source interface {
	Fetch(ctx context.Context, path string) (string, error)
}

// New builds the Source selected by cfg. HTTP fragments are read from origin.
func New(cfg config.FragmentsConfig, origin string, client *http.Client) (Source, error) {
	var src Source
	switch cfg.Source {
	case config.FragmentSourceDir:
		dir, err := NewDirSource(cfg.Dir)
		if err != nil {
			return nil, err
		}
		src = dir
	case config.FragmentSourceHTTP, "":
		src = NewHTTPSource(origin, client).WithRetry(retry.NewPolicy(cfg.Retry))
	default:
		return nil, errors.ConfigError("unknown fragment source").WithContext("source", cfg.Source).Build()
	}
	if cfg.Sanitize {
		src = Sanitized(src)
	}
	return src, nil
}

// Parse parses fragment HTML into nodes as if it were the content of <main>.
func Parse(body string) ([]*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(body), &html.Node{
		Type:     html.ElementNode,
		Data:     "main",
		DataAtom: atom.Main,
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDOM, "failed to parse fragment").Build()
	}
	return nodes, nil
}

func validatePath(path string) error {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return errors.ValidationError("fragment path must be site relative").WithContext("path", path).Build()
	}
	return nil
}

// HTTPSource fetches <path>.plain.html from the site origin.
type HTTPSource struct {
	origin string
	client *http.Client
	policy retry.Policy
}

// NewHTTPSource returns an HTTPSource; a nil client uses http.DefaultClient.
func NewHTTPSource(origin string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{origin: strings.TrimSuffix(origin, "/"), client: client}
}

// WithRetry returns a copy that retries transient failures with p.
func (s *HTTPSource) WithRetry(p retry.Policy) *HTTPSource {
	c := *s
	c.policy = p
	return &c
}

// Fetch retries network failures and 5xx responses according to the retry
// policy; other failures are returned at once.
func (s *HTTPSource) Fetch(ctx context.Context, path string) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}
	var body string
	err := s.policy.Do(ctx, "fragment "+path, func(ctx context.Context) error {
		var err error
		body, err = s.fetch(ctx, path)
		return err
	})
	return body, err
}

func (s *HTTPSource) fetch(ctx context.Context, path string) (string, error) {
	target := s.origin + path + plainSuffix
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryValidation, "failed to create fragment request").
			WithContext("url", target).
			Build()
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryNetwork, "fragment request failed").
			WithContext("url", target).
			Retryable().
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound {
		return "", errors.NotFoundError("fragment not found").WithContext("path", path).Build()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b := errors.NetworkError("unexpected fragment response status").
			WithContext("url", target).
			WithContext("status", resp.StatusCode)
		if resp.StatusCode < http.StatusInternalServerError {
			b = b.WithRetry(errors.RetryNever)
		}
		return "", b.Build()
	}
	return readLimited(resp.Body, path)
}

// DirSource reads fragments from a local directory: <path>.plain.html, or
// <path>.md rendered to HTML.
type DirSource struct {
	dir string
	md  goldmark.Markdown
}

// NewDirSource returns a DirSource rooted at dir.
func NewDirSource(dir string) (*DirSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "fragment directory unavailable").
			WithContext("dir", dir).
			Build()
	}
	if !info.IsDir() {
		return nil, errors.ConfigError("fragment path is not a directory").WithContext("dir", dir).Build()
	}
	return &DirSource{dir: dir, md: goldmark.New()}, nil
}

func (s *DirSource) Fetch(_ context.Context, path string) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}
	root, err := os.OpenRoot(s.dir)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryStorage, "failed to open fragment directory").
			WithContext("dir", s.dir).
			Build()
	}
	defer func() {
		_ = root.Close()
	}()

	name := strings.TrimPrefix(path, "/")
	body, err := readFile(root, name+plainSuffix)
	if err == nil {
		return body, nil
	}
	if !stderrors.Is(err, fs.ErrNotExist) {
		return "", wrapRead(err, path)
	}

	source, err := readFile(root, name+markdownSuffix)
	if stderrors.Is(err, fs.ErrNotExist) {
		return "", errors.NotFoundError("fragment not found").WithContext("path", path).Build()
	}
	if err != nil {
		return "", wrapRead(err, path)
	}
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(source), &buf); err != nil {
		return "", errors.WrapError(err, errors.CategoryValidation, "failed to render markdown fragment").
			WithContext("path", path).
			Build()
	}
	return buf.String(), nil
}

func readFile(root *os.Root, name string) (string, error) {
	f, err := root.Open(name)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()
	return readLimited(f, name)
}

func wrapRead(err error, path string) error {
	return errors.WrapError(err, errors.CategoryStorage, "failed to read fragment").
		WithContext("path", path).
		Build()
}

func readLimited(r io.Reader, path string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFragmentBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxFragmentBytes {
		return "", errors.ValidationError("fragment too large").WithContext("path", path).Build()
	}
	return string(data), nil
}

// SanitizePolicy is the policy applied by Sanitized: user generated content
// plus the classes, pictures and icons fragments rely on.
func SanitizePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class", "id").Globally()
	p.AllowElements("picture", "source", "span")
	p.AllowAttrs("srcset", "type", "media").OnElements("source")
	p.AllowAttrs("loading", "width", "height").OnElements("img")
	return p
}

type sanitized struct {
	src    Source
	policy *bluemonday.Policy
}

// Sanitized wraps src so returned HTML passes through SanitizePolicy.
func Sanitized(src Source) Source {
	return &sanitized{src: src, policy: SanitizePolicy()}
}

func (s *sanitized) Fetch(ctx context.Context, path string) (string, error) {
	body, err := s.src.Fetch(ctx, path)
	if err != nil {
		return "", err
	}
	return s.policy.Sanitize(body), nil
}
