package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"mdm/internal/digest"
	"mdm/internal/models"
)

const (
	tmpDirName = ".tmp"

	// MaxSegmentLength bounds a namespace or object id.
	MaxSegmentLength = 128
)

// LocalFS stores object bytes in per-tier directory trees laid out as
// <root>/<namespace>/<object id>/<digest prefix>-<write id>. Every Put gets
// its own file, so a write never replaces bytes another record points at.
type LocalFS struct {
	roots map[models.StorageTier]string
}

// NewLocalFS creates the hot and cold roots (and their staging dirs) if
// they do not exist yet.
func NewLocalFS(hotRoot, coldRoot string) (*LocalFS, error) {
	fs := &LocalFS{roots: make(map[models.StorageTier]string, 2)}
	for tier, root := range map[models.StorageTier]string{
		models.TierHot:  hotRoot,
		models.TierCold: coldRoot,
	} {
		root = strings.TrimSpace(root)
		if root == "" {
			return nil, fmt.Errorf("%s storage root is required", strings.ToLower(string(tier)))
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Join(abs, tmpDirName), 0o755); err != nil {
			return nil, fmt.Errorf("create %s storage root: %w", strings.ToLower(string(tier)), err)
		}
		fs.roots[tier] = abs
	}
	return fs, nil
}

// Root returns the absolute root directory of tier.
func (l *LocalFS) Root(tier models.StorageTier) (string, bool) {
	if l == nil {
		return "", false
	}
	root, ok := l.roots[tier]
	return root, ok
}

// Put streams r into a staging file, hashing as it goes, then renames it
// to a fresh file under the object's directory.
func (l *LocalFS) Put(ctx context.Context, tier models.StorageTier, namespace, objectID string, r io.Reader) (PutResult, error) {
	var zero PutResult
	if l == nil {
		return zero, fmt.Errorf("storage backend is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	root, ok := l.roots[tier]
	if !ok {
		return zero, fmt.Errorf("%w: unknown tier %q", ErrInvalidAddress, tier)
	}
	if err := ValidateSegment(namespace); err != nil {
		return zero, fmt.Errorf("namespace: %w", err)
	}
	if err := ValidateSegment(objectID); err != nil {
		return zero, fmt.Errorf("object id: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Join(root, tmpDirName), "put-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	h := digest.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}

	writeID, err := uuid.NewRandom()
	if err != nil {
		cleanup()
		return zero, fmt.Errorf("generate write id: %w", err)
	}
	sum := h.Hex()

	dir := filepath.Join(root, namespace, objectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		cleanup()
		return zero, err
	}
	dst := filepath.Join(dir, sum[:16]+"-"+writeID.String())
	if err := os.Rename(tmpPath, dst); err != nil {
		cleanup()
		return zero, err
	}

	return PutResult{Location: dst, SizeBytes: n, SHA256: sum}, nil
}

// Open returns a reader over the bytes stored at location in tier.
func (l *LocalFS) Open(ctx context.Context, tier models.StorageTier, location string) (io.ReadCloser, error) {
	if l == nil {
		return nil, fmt.Errorf("storage backend is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.pathFromLocation(tier, location)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (l *LocalFS) pathFromLocation(tier models.StorageTier, location string) (string, error) {
	root, ok := l.roots[tier]
	if !ok {
		return "", fmt.Errorf("%w: unknown tier %q", ErrInvalidAddress, tier)
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("%w: location is required", ErrInvalidAddress)
	}
	clean := filepath.Clean(location)
	if !filepath.IsAbs(clean) {
		clean = filepath.Join(root, clean)
	}
	rel, err := filepath.Rel(root, clean)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: location outside %s tier", ErrInvalidAddress, strings.ToLower(string(tier)))
	}
	if rel == tmpDirName || strings.HasPrefix(rel, tmpDirName+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: location inside staging area", ErrInvalidAddress)
	}
	return clean, nil
}

// ValidateSegment checks that value can be used as exactly one path element.
func ValidateSegment(value string) error {
	switch {
	case value == "":
		return fmt.Errorf("%w: empty path segment", ErrInvalidAddress)
	case value == "." || value == "..":
		return fmt.Errorf("%w: %q is not allowed", ErrInvalidAddress, value)
	case value == tmpDirName:
		return fmt.Errorf("%w: %q is reserved", ErrInvalidAddress, value)
	case len(value) > MaxSegmentLength:
		return fmt.Errorf("%w: segment longer than %d bytes", ErrInvalidAddress, MaxSegmentLength)
	case strings.ContainsAny(value, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidAddress, value)
	}
	return nil
}
