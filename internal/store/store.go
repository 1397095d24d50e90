// Package store adapts a versioned blob (one file in a remote repository)
// into fetch/commit operations on the code document. A commit only succeeds
// when the version token handed out by the preceding fetch is still current.
// The package never retries; callers decide what to do with ErrVersionConflict.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"passdist/entity"
	"passdist/lib/sl"
	"passdist/lib/validate"
)

var (
	ErrStoreUnavailable = errors.New("store: unavailable")
	ErrDecode           = errors.New("store: malformed document")
	ErrVersionConflict  = errors.New("store: version conflict")
	ErrNotFound         = errors.New("store: not found")
)

// Blob is a single-path versioned object store. Put with an empty version
// creates the object and must fail with ErrVersionConflict if it exists.
type Blob interface {
	Get(ctx context.Context, path string) ([]byte, string, error)
	Put(ctx context.Context, path string, content []byte, version, message string) (string, error)
}

type Store struct {
	blob Blob
	path string
	log  *slog.Logger
}

func New(blob Blob, path string, log *slog.Logger) *Store {
	if blob == nil {
		panic("store: blob is nil")
	}
	return &Store{
		blob: blob,
		path: path,
		log:  log.With(sl.Module("store"), slog.String("path", path)),
	}
}

func (s *Store) Path() string {
	return s.path
}

// Fetch reads and decodes the current document together with its version token.
func (s *Store) Fetch(ctx context.Context) (*entity.CodeSet, string, error) {
	raw, version, err := s.blob.Get(ctx, s.path)
	if err != nil {
		return nil, "", unavailable("fetch", err)
	}
	set, err := Decode(raw)
	if err != nil {
		s.log.With(
			slog.String("version", version),
			slog.Int("size", len(raw)),
		).Error("decode document", sl.Err(err))
		return nil, "", err
	}
	return set, version, nil
}

// Commit writes set if version is still current and returns the new token.
func (s *Store) Commit(ctx context.Context, set *entity.CodeSet, version, message string) (string, error) {
	data, err := Encode(set)
	if err != nil {
		return "", err
	}
	next, err := s.blob.Put(ctx, s.path, data, version, message)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return "", err
		}
		return "", unavailable("commit", err)
	}
	s.log.With(
		slog.String("from", version),
		slog.String("to", next),
	).Debug("document committed")
	return next, nil
}

func unavailable(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// Decode parses and validates a document; all failures wrap ErrDecode.
func Decode(raw []byte) (*entity.CodeSet, error) {
	var set entity.CodeSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if set.Codes == nil {
		return nil, fmt.Errorf("%w: no code list", ErrDecode)
	}
	if err := validate.Struct(&set); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &set, nil
}

// Encode renders the canonical, two-space indented form of the document.
func Encode(set *entity.CodeSet) ([]byte, error) {
	if set == nil {
		return nil, fmt.Errorf("encode: document is nil")
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return data, nil
}
