package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
)

// Quarantine persists raw enrichment responses for later inspection, one flat
// file per (article, attempt). Responses are kept whether parsing succeeded
// or not; the bad ones are what the store exists for.
type Quarantine struct {
	dir string
}

// NewQuarantine creates a store rooted at dir. The directory is created by
// the pipeline's writability probe before any save happens.
func NewQuarantine(dir string) *Quarantine {
	return &Quarantine{dir: dir}
}

// Save writes one raw response. The file name carries the article index, a
// fingerprint of the article content and the attempt number, e.g.
// 007_3f2a9c0d11ab_a1.txt. Failures are logged and swallowed, a broken
// quarantine never aborts a run.
func (q *Quarantine) Save(ctx context.Context, idx int, content, response string, attempt int) {
	name := fmt.Sprintf("%03d_%s_a%d.txt", idx, fingerprint(content), attempt)
	path := filepath.Join(q.dir, name)

	retrier := repeater.NewBackoff(3, 50*time.Millisecond, repeater.WithMaxDelay(time.Second))
	err := retrier.Do(ctx, func() error {
		return os.WriteFile(path, []byte(response), 0o600)
	})
	if err != nil {
		lgr.Printf("[WARN] quarantine write failed for %s: %v", name, err)
		return
	}
	lgr.Printf("[DEBUG] quarantined response %s", name)
}

// fingerprint returns the first 12 hex characters of the content's sha256,
// enough to tell articles apart within a run.
func fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:6])
}
