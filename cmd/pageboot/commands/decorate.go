package commands

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/pageboot/internal/app"
	"git.home.luguber.info/inful/pageboot/internal/config"
	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/logfields"
	"git.home.luguber.info/inful/pageboot/internal/page"
	"git.home.luguber.info/inful/pageboot/internal/version"
)

// DecorateCmd implements the 'decorate' command.
type DecorateCmd struct {
	Source   string        `arg:"" help:"HTML file or http(s) URL of the page"`
	URL      string        `name:"url" help:"Page URL for file sources (fragment selects the scroll target)"`
	Viewport int           `help:"Viewport width in CSS pixels" default:"1280"`
	Session  string        `help:"Session id; a random one is used when empty"`
	Output   string        `short:"o" help:"Write the decorated page to this file instead of stdout"`
	Settle   time.Duration `help:"Maximum time to wait for deferred work such as the hero video swap" default:"10s"`
}

func (d *DecorateCmd) Run(g *Global, root *CLI) error {
	cfg, _, err := root.loadConfig(g)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := io.Writer(os.Stdout)
	if d.Output != "" {
		f, err := os.Create(d.Output)
		if err != nil {
			return err
		}
		defer func() {
			_ = f.Close()
		}()
		out = f
	}
	return RunDecorate(ctx, cfg, d, out)
}

// RunDecorate loads one page through all phases, waits for deferred work and
// writes the result to out.
func RunDecorate(ctx context.Context, cfg *config.Config, d *DecorateCmd, out io.Writer) error {
	rt, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = rt.Close(context.WithoutCancel(ctx))
	}()

	body, pageURL, err := d.read(ctx, cfg.Server.OriginTimeout)
	if err != nil {
		return err
	}
	defer func() {
		_ = body.Close()
	}()

	session := d.Session
	if session == "" {
		session = uuid.NewString()
	}
	p, err := page.Parse(body, pageURL, page.Options{
		ViewportWidth: d.Viewport,
		SessionID:     session,
		Timer:         rt.Timer,
	})
	if err != nil {
		return err
	}
	if err := rt.Loader.Load(ctx, p); err != nil {
		return err
	}

	settleCtx, cancel := context.WithTimeout(ctx, d.Settle)
	defer cancel()
	if err := p.Settle(settleCtx); err != nil && !stderrors.Is(err, context.DeadlineExceeded) {
		return err
	} else if err != nil {
		// Render whatever state the deferred work reached.
		rt.Logger().Warn("Deferred work did not finish before the settle timeout",
			logfields.PageID(p.ID), logfields.Duration(d.Settle))
	}
	return p.Render(out)
}

func (d *DecorateCmd) read(ctx context.Context, timeout time.Duration) (io.ReadCloser, string, error) {
	if strings.HasPrefix(d.Source, "http://") || strings.HasPrefix(d.Source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.Source, http.NoBody)
		if err != nil {
			return nil, "", errors.WrapError(err, errors.CategoryValidation, "invalid page URL").Build()
		}
		req.Header.Set("User-Agent", version.UserAgent())
		resp, err := (&http.Client{Timeout: timeout}).Do(req)
		if err != nil {
			return nil, "", errors.WrapError(err, errors.CategoryNetwork, "failed to fetch page").
				WithContext("url", d.Source).
				Build()
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, "", errors.NetworkError("unexpected page response status").
				WithContext("url", d.Source).
				WithContext("status", resp.StatusCode).
				Build()
		}
		pageURL := d.Source
		if d.URL != "" {
			pageURL = d.URL
		}
		return resp.Body, pageURL, nil
	}

	f, err := os.Open(d.Source)
	if err != nil {
		return nil, "", errors.WrapError(err, errors.CategoryNotFound, "failed to open page").
			WithContext("path", d.Source).
			Build()
	}
	return f, d.URL, nil
}
