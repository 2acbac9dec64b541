package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/vmihailenco/msgpack/v5"

	"texify/internal/diag"
	"texify/internal/source"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// Digest is a SHA-256 cache key.
type Digest [32]byte

// DiskCache stores the diagnostics of inspected files keyed by content,
// settings and tool version. Thread-safe for concurrent access.
type DiskCache struct {
	mu     sync.RWMutex
	dir    string
	logger hclog.Logger
}

// DiskPayload is the cached result of inspecting one file.
type DiskPayload struct {
	Schema      uint16
	Path        string
	Diagnostics []cachedDiagnostic
}

type cachedDiagnostic struct {
	Rule      string
	Severity  uint8
	Message   string
	Start     uint32
	End       uint32
	WholeFile bool
	Fixes     []cachedFix
}

type cachedFix struct {
	ID            string
	Title         string
	Groups        []string
	Applicability uint8
	Edits         []cachedEdit
}

type cachedEdit struct {
	Start   uint32
	End     uint32
	NewText string
	OldText string
}

// OpenDiskCache initializes a disk cache under $XDG_CACHE_HOME/<app>.
func OpenDiskCache(app string, logger hclog.Logger) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewDiskCache(filepath.Join(base, app), logger)
}

// NewDiskCache initializes a disk cache rooted at dir.
func NewDiskCache(dir string, logger hclog.Logger) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &DiskCache{dir: dir, logger: logger.Named("cache")}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	return filepath.Join(c.dir, "diags", hexKey[:2], hexKey+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key Digest, payload *DiskPayload) error {
	if c == nil || payload == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			c.logger.Warn("failed to remove temp file", "path", tmp, "error", rmErr)
		}
	}()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Get reads and deserializes a payload. A payload written by another schema
// version counts as a miss.
func (c *DiskCache) Get(key Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			c.logger.Warn("failed to close cache entry", "error", closeErr)
		}
	}()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll removes every cached entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

// CacheKey combines the file content hash with everything else that changes
// inspection output. ext is the file extension, which some rules depend on.
func CacheKey(content [32]byte, configHash, toolVersion, mode, ext string) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, part := range []string{configHash, toolVersion, mode, strings.ToLower(ext)} {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(part))
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func diagnosticsToPayload(path string, items []diag.Diagnostic) *DiskPayload {
	payload := &DiskPayload{
		Schema:      diskCacheSchemaVersion,
		Path:        path,
		Diagnostics: make([]cachedDiagnostic, len(items)),
	}
	for i, d := range items {
		cd := cachedDiagnostic{
			Rule:      d.Rule,
			Severity:  uint8(d.Severity),
			Message:   d.Message,
			Start:     d.Primary.Start,
			End:       d.Primary.End,
			WholeFile: d.WholeFile,
			Fixes:     make([]cachedFix, len(d.Fixes)),
		}
		for j, f := range d.Fixes {
			cf := cachedFix{
				ID:            f.ID,
				Title:         f.Title,
				Groups:        f.Groups,
				Applicability: uint8(f.Applicability),
				Edits:         make([]cachedEdit, len(f.Edits)),
			}
			for k, e := range f.Edits {
				cf.Edits[k] = cachedEdit{Start: e.Span.Start, End: e.Span.End, NewText: e.NewText, OldText: e.OldText}
			}
			cd.Fixes[j] = cf
		}
		payload.Diagnostics[i] = cd
	}
	return payload
}

// payloadToDiagnostics rebinds cached diagnostics to file.
func payloadToDiagnostics(payload *DiskPayload, file source.FileID) []diag.Diagnostic {
	out := make([]diag.Diagnostic, len(payload.Diagnostics))
	for i, cd := range payload.Diagnostics {
		d := diag.New(diag.Severity(cd.Severity), cd.Rule, source.Span{File: file, Start: cd.Start, End: cd.End}, cd.Message)
		d.WholeFile = cd.WholeFile
		for _, cf := range cd.Fixes {
			f := diag.Fix{
				ID:            cf.ID,
				Title:         cf.Title,
				Groups:        cf.Groups,
				Applicability: diag.FixApplicability(cf.Applicability),
				Edits:         make([]diag.TextEdit, len(cf.Edits)),
			}
			for k, e := range cf.Edits {
				f.Edits[k] = diag.TextEdit{
					Span:    source.Span{File: file, Start: e.Start, End: e.End},
					NewText: e.NewText,
					OldText: e.OldText,
				}
			}
			d = d.WithFix(f)
		}
		out[i] = d
	}
	return out
}
