// Package mirror downloads the prepared NZGD dataset file from an FTP
// mirror. The mirror serves the already-extracted SQLite database, not the
// upstream NZGD itself; after a successful download the caller reloads the
// snapshot from the new file.
package mirror

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jlaffaye/ftp"
)

type Client struct {
	host string // host:port
	path string // remote path of the dataset file
}

func New(host, path string) *Client {
	return &Client{host: host, path: path}
}

// Fetch downloads the dataset to destPath. The file is written to a
// temporary name in the same directory and renamed into place so a reader
// never sees a partial database. Transient failures are retried with
// exponential backoff for up to five minutes.
func (c *Client) Fetch(destPath string) error {
	operation := func() error {
		return c.fetchOnce(destPath)
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 5 * time.Minute
	return backoff.Retry(operation, bo)
}

func (c *Client) fetchOnce(destPath string) error {
	conn, err := ftp.Dial(c.host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("ftp dial %s: %w", c.host, err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(c.path)
	if err != nil {
		return fmt.Errorf("ftp retr %s: %w", c.path, err)
	}
	defer resp.Close()

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".nzgd-snapshot-*")
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create temp file: %w", err))
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp); err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", c.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return backoff.Permanent(fmt.Errorf("replace %s: %w", destPath, err))
	}
	return nil
}
