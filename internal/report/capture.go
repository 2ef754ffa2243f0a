package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"tradepilot/internal/logger"
)

const (
	captureWidthPx  = 1400
	captureHeightPx = 1200
)

var (
	headlessOnce sync.Once
	headlessErr  error
)

// ensureHeadless probes for a usable headless browser once per process.
func ensureHeadless(ctx context.Context) error {
	headlessOnce.Do(func() {
		parent, cancel := chromedp.NewContext(ctx)
		defer cancel()
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

// CapturePNG renders the report and screenshots it through a headless
// browser. Callers on hosts without a browser get an error, not a panic.
func (b *Builder) CapturePNG(ctx context.Context) ([]byte, error) {
	if err := ensureHeadless(ctx); err != nil {
		return nil, fmt.Errorf("headless browser unavailable: %w", err)
	}
	html, err := b.RenderHTML(ctx)
	if err != nil {
		return nil, err
	}

	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()
	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(captureWidthPx, captureHeightPx),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}

// WritePNGSnapshot captures the report and writes it under the output
// directory.
func (b *Builder) WritePNGSnapshot(ctx context.Context) (string, error) {
	png, err := b.CapturePNG(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(b.outputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(b.outputDir, fmt.Sprintf("report_%s.png", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", err
	}
	logger.Infof("report: wrote %s", path)
	return path, nil
}
