package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"

	"github.com/umputun/newsdigest/pkg/domain"
)

// WriteFrontPage writes the edition's JSON snapshot to
// <jsonDir>/<date>/<bucket>.json, replacing the whole file. Reruns of the
// same edition overwrite rather than append.
func WriteFrontPage(ctx context.Context, jsonDir string, ed domain.Edition, page domain.FrontPage) error {
	dir := filepath.Join(jsonDir, ed.Date)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create json dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal front page: %w", err)
	}

	path := filepath.Join(dir, ed.Bucket+".json")
	retrier := repeater.NewBackoff(3, 50*time.Millisecond, repeater.WithMaxDelay(time.Second))
	if err := retrier.Do(ctx, func() error { return os.WriteFile(path, data, 0o600) }); err != nil {
		return fmt.Errorf("write front page %s: %w", path, err)
	}
	lgr.Printf("[INFO] wrote json snapshot %s", path)
	return nil
}
