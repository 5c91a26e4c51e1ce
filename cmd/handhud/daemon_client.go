package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/ayusman/handhud/internal/config"
	"github.com/ayusman/handhud/internal/mode"
)

const lockFileName = "handhud.lock"

func instanceLockPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir(), lockFileName)
}

// daemonRunning reports whether a serve process holds the instance lock.
func daemonRunning(cfg *config.Config) (bool, error) {
	path := instanceLockPath(cfg)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("check instance lock: %w", err)
	}
	if locked {
		_ = lock.Unlock()
		return false, nil
	}
	return true, nil
}

var errOverrideNotFound = errors.New("override not found")

// daemonClient edits the override table through a running daemon so its
// live table is reloaded.
type daemonClient struct {
	base *url.URL
	http *http.Client
}

func newDaemonClient(addr string) (*daemonClient, error) {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	base, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse server address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""
	return &daemonClient{
		base: base,
		http: &http.Client{Timeout: 5 * time.Second},
	}, nil
}

func (c *daemonClient) PutOverride(ctx context.Context, label string, m mode.Mode) error {
	body, err := json.Marshal(map[string]string{"mode": string(m)})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, label, body)
}

func (c *daemonClient) DeleteOverride(ctx context.Context, label string) error {
	return c.do(ctx, http.MethodDelete, label, nil)
}

func (c *daemonClient) do(ctx context.Context, method, label string, body []byte) error {
	endpoint := c.base.JoinPath("api", "overrides", url.PathEscape(label))
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errOverrideNotFound
	case resp.StatusCode >= 400:
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, payload.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	return nil
}
