package locator

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"
)

const userAgent = "mediahub/1.0"

// Provision downloads the release binary into Dest.
//
// Concurrent callers in the same process share one download. Separate
// processes may still race; the binary is renamed into place so the last
// writer wins without leaving a torn file behind.
type Provision struct {
	URL          string
	Dest         string
	MaxRedirects int
	Timeout      time.Duration
	Client       *http.Client

	group singleflight.Group
}

func NewProvision(url, dest string, maxRedirects int, timeout time.Duration) *Provision {
	p := &Provision{
		URL:          url,
		Dest:         dest,
		MaxRedirects: maxRedirects,
		Timeout:      timeout,
	}
	p.Client = p.newClient()
	return p
}

func (p *Provision) Name() string { return "provision" }

func (p *Provision) Resolve(ctx context.Context) (string, error) {
	if p.URL == "" || p.Dest == "" {
		return "", errors.New("provisioning not configured")
	}

	// joined callers outlive the one that started the download, a caller
	// going away only stops waiting
	ch := p.group.DoChan(p.Dest, func() (any, error) {
		return p.download(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			slog.Debug("joined in-flight provisioning", slog.String("path", p.Dest))
		}
		return res.Val.(string), nil
	}
}

func (p *Provision) newClient() *http.Client {
	limit := p.MaxRedirects

	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			ForceAttemptHTTP2: true,
			IdleConnTimeout:   30 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > limit {
				return fmt.Errorf("stopped after %d redirects", limit)
			}
			return nil
		},
	}
}

func (p *Provision) download(ctx context.Context) (string, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	slog.Info("extraction tool missing, downloading",
		slog.String("url", p.URL),
		slog.String("path", p.Dest),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	client := p.Client
	if client == nil {
		client = p.newClient()
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download: %s", resp.Status)
	}

	dir := filepath.Dir(p.Dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".yt-dlp-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Chmod(tmp.Name(), 0755); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), p.Dest); err != nil {
		return "", err
	}

	slog.Info("extraction tool downloaded",
		slog.String("path", p.Dest),
		slog.String("size", humanize.Bytes(uint64(n))),
	)

	return p.Dest, nil
}
