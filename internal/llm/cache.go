// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// cacheBackend persists every completion to disk and replays it when the
// same call is made again, so a resumed run does not pay for model calls
// its crashed predecessor already made. Keyed by model + prompts.
type cacheBackend struct {
	inner  Backend
	dir    string
	logger *zap.Logger
}

// WithCache wraps a backend with a response cache under dir. The
// directory is created on first write.
func WithCache(inner Backend, dir string, logger *zap.Logger) Backend {
	return &cacheBackend{inner: inner, dir: dir, logger: logger}
}

func (b *cacheBackend) Model() string { return b.inner.Model() }

func (b *cacheBackend) Complete(ctx context.Context, req Request) (Response, error) {
	path := filepath.Join(b.dir, b.key(req)+".response.json")

	if data, err := os.ReadFile(path); err == nil {
		var resp Response
		if err := json.Unmarshal(data, &resp); err == nil {
			b.logger.Debug("replaying cached response",
				zap.String("model", b.inner.Model()),
				zap.String("path", path))
			return resp, nil
		}
		// Unreadable cache entries are rewritten below.
	}

	resp, err := b.inner.Complete(ctx, req)
	if err != nil {
		return Response{}, err
	}
	if err := b.store(path, resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (b *cacheBackend) store(path string, resp Response) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cached response: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing cached response: %w", err)
	}
	return nil
}

func (b *cacheBackend) key(req Request) string {
	h := sha256.New()
	h.Write([]byte(b.inner.Model()))
	h.Write([]byte{0})
	h.Write([]byte(req.System))
	h.Write([]byte{0})
	h.Write([]byte(req.User))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
