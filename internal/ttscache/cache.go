// Package ttscache is the content-addressed store of synthesized audio: a
// small file-backed cache keyed by a truncated SHA-256 digest of the spoken
// text, deduping concurrent synthesis calls for the same phrase the way the
// teacher's stream_manager deduplicates concurrent work per channel.
package ttscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/tksa/ai-receptionist/internal/observability"
)

// Synthesizer is the subset of aiclient.Client the cache depends on.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Cache is a content-addressed store of synthesized audio files on disk.
type Cache struct {
	dir    string
	synth  Synthesizer
	flight singleflight.Group
}

// New creates a Cache rooted at dir. dir is created if it does not exist.
func New(dir string, synth Synthesizer) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ttscache: create cache dir: %w", err)
	}
	return &Cache{dir: dir, synth: synth}, nil
}

// Fingerprint returns the cache key for text: the first 12 hex characters of
// its SHA-256 digest. §9 notes a 12-hex digest (48 bits) is adequate for the
// small closed set of phrases this system ever speaks.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:12]
}

// path returns the on-disk path for a fingerprint.
func (c *Cache) path(fingerprint string) string {
	return filepath.Join(c.dir, fingerprint+".wav")
}

// EnsureAudio returns the path to a WAV file containing the synthesized
// speech for text. If useCache is true and a non-empty file already exists
// for text's fingerprint, it is returned without calling the synthesizer (P3).
// Concurrent EnsureAudio calls for the same text collapse into a single
// upstream Synthesize call via singleflight, and the file write is atomic
// (temp file + rename) so no caller ever observes a partial file (P2).
func (c *Cache) EnsureAudio(ctx context.Context, text string, useCache bool) (string, error) {
	fingerprint := Fingerprint(text)
	dest := c.path(fingerprint)

	if useCache && fileNonEmpty(dest) {
		observability.RecordTTSCache(true)
		return dest, nil
	}

	type outcome struct {
		path string
		hit  bool
	}

	result, err, _ := c.flight.Do(fingerprint, func() (any, error) {
		// Re-check under the single-flight key: another goroutine may have
		// finished the write while we were waiting to be scheduled.
		if useCache && fileNonEmpty(dest) {
			return outcome{path: dest, hit: true}, nil
		}

		audio, err := c.synth.Synthesize(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("ttscache: synthesize %q: %w", fingerprint, err)
		}

		if err := writeAtomic(dest, audio); err != nil {
			return nil, err
		}
		return outcome{path: dest, hit: false}, nil
	})

	if err != nil {
		return "", err
	}

	out := result.(outcome)
	observability.RecordTTSCache(out.hit)
	return out.path, nil
}

// PreWarm calls EnsureAudio for every phrase, logging and continuing past
// any single failure, matching the teacher's pre_generate_common_audio.
func (c *Cache) PreWarm(ctx context.Context, phrases []string) {
	logger := observability.GetLogger()
	for _, phrase := range phrases {
		if _, err := c.EnsureAudio(ctx, phrase, true); err != nil {
			logger.Warn().Err(err).Str("phrase", phrase).Msg("tts pre-warm failed")
		}
	}
}

func fileNonEmpty(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() > 0
}

// writeAtomic writes data to a temp sibling of dest, fsyncs it, then renames
// it into place so concurrent readers never observe a partial file.
func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tts-*.tmp")
	if err != nil {
		return fmt.Errorf("ttscache: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("ttscache: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("ttscache: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ttscache: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("ttscache: rename into place: %w", err)
	}
	return nil
}
