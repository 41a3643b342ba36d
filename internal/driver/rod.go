package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/yeomjw0907/catchdeal/internal/config"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Static assets and trackers are dead weight for parsing.
var blockedURLPatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg",
	"*.woff", "*.woff2", "*.ttf",
	"*googlesyndication*", "*doubleclick*", "*google-analytics*",
}

// RodDriver drives a Chromium instance over CDP.
type RodDriver struct {
	browser *rod.Browser
	launch  *launcher.Launcher
	logger  *slog.Logger
}

// Connect attaches to the browser described by cfg. With a debug URL
// configured it discovers the websocket endpoint of an already running
// browser; otherwise it launches one locally.
func Connect(ctx context.Context, cfg *config.BrowserConfig, logger *slog.Logger) (*RodDriver, error) {
	var (
		ws     string
		launch *launcher.Launcher
		err    error
	)

	if cfg.DebugURL != "" {
		ws, err = Discover(ctx, cfg.DebugURL, discoverInterval, logger)
		if err != nil {
			return nil, fmt.Errorf("discover debug endpoint: %w", err)
		}
	} else {
		launch = launcher.New().
			Headless(cfg.Headless).
			NoSandbox(true).
			Set("disable-gpu").
			Set("disable-dev-shm-usage").
			Set("disable-blink-features", "AutomationControlled")
		bin := cfg.BinPath
		if bin == "" {
			if path, has := launcher.LookPath(); has {
				bin = path
			}
		}
		if bin != "" {
			launch = launch.Bin(bin)
		}
		ws, err = launch.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
	}

	browser := rod.New().ControlURL(ws)
	if err := browser.Connect(); err != nil {
		if launch != nil {
			launch.Kill()
		}
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	logger.Info("browser attached", slog.Bool("remote", cfg.DebugURL != ""))
	return &RodDriver{
		browser: browser,
		launch:  launch,
		logger:  logger,
	}, nil
}

// NewPage opens a tab with the stealth script, a desktop user agent and
// resource blocking applied before any navigation.
func (d *RodDriver) NewPage(ctx context.Context) (Page, error) {
	page, err := d.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		d.logger.Warn("stealth injection failed", slog.String("error", err.Error()))
	}
	if err := (proto.NetworkSetUserAgentOverride{UserAgent: defaultUserAgent}).Call(page); err != nil {
		d.logger.Warn("user agent override failed", slog.String("error", err.Error()))
	}
	if err := (proto.NetworkEnable{}).Call(page); err == nil {
		if err := (proto.NetworkSetBlockedURLs{Urls: blockedURLPatterns}).Call(page); err != nil {
			d.logger.Warn("resource blocking failed", slog.String("error", err.Error()))
		}
	}

	return &rodPage{p: page}, nil
}

// SetCookies installs the session cookies browser-wide.
func (d *RodDriver) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   "/",
		})
	}
	if err := d.browser.Context(ctx).SetCookies(params); err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	return nil
}

// Close detaches from the browser and kills a locally launched one.
func (d *RodDriver) Close() error {
	var err error
	if d.browser != nil {
		err = d.browser.Close()
	}
	if d.launch != nil {
		d.launch.Kill()
	}
	return err
}

type rodPage struct {
	p *rod.Page
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	pg := p.p.Context(ctx)
	wait := pg.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	wait()
	return ctx.Err()
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	html, err := p.p.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("page html: %w", err)
	}
	return html, nil
}

func (p *rodPage) FrameHTML(ctx context.Context, selector string) (string, error) {
	el, err := p.p.Context(ctx).Element(selector)
	if err != nil {
		return "", fmt.Errorf("frame element: %w", err)
	}
	frame, err := el.Frame()
	if err != nil {
		return "", fmt.Errorf("enter frame: %w", err)
	}
	html, err := frame.HTML()
	if err != nil {
		return "", fmt.Errorf("frame html: %w", err)
	}
	return html, nil
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	el, err := p.p.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Fill(ctx context.Context, selector string, value string) error {
	el, err := p.p.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (p *rodPage) Text(ctx context.Context, selector string) (string, error) {
	el, err := p.p.Context(ctx).Element(selector)
	if err != nil {
		return "", fmt.Errorf("find %s: %w", selector, err)
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("text %s: %w", selector, err)
	}
	return text, nil
}

func (p *rodPage) Close() error {
	return p.p.Close()
}
