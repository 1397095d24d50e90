package store_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passdist/entity"
	"passdist/internal/store"
	"passdist/internal/store/memory"
)

const path = "passwords-data.json"

var testLog = slog.New(slog.DiscardHandler)

type failingBlob struct {
	err error
}

func (f failingBlob) Get(context.Context, string) ([]byte, string, error) {
	return nil, "", f.err
}

func (f failingBlob) Put(context.Context, string, []byte, string, string) (string, error) {
	return "", f.err
}

func TestFetchCommitRoundTrip(t *testing.T) {
	blob := memory.New()
	s := store.New(blob, path, testLog)

	set := entity.NewCodeSet([]string{"A", "B"}, time.Now())
	v1, err := s.Commit(context.Background(), set, "", "seed")
	require.NoError(t, err)

	got, v, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, v1, v)
	assert.Len(t, got.Codes, 2)

	got.Codes[0].MarkUsed(time.Now())
	v2, err := s.Commit(context.Background(), got, v, "use A")
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)
}

func TestCommitStaleVersion(t *testing.T) {
	blob := memory.New()
	s := store.New(blob, path, testLog)
	set := entity.NewCodeSet([]string{"A"}, time.Now())
	v1, err := s.Commit(context.Background(), set, "", "seed")
	require.NoError(t, err)
	_, err = s.Commit(context.Background(), set, v1, "first")
	require.NoError(t, err)

	_, err = s.Commit(context.Background(), set, v1, "second")
	assert.ErrorIs(t, err, store.ErrVersionConflict)
	assert.NotErrorIs(t, err, store.ErrStoreUnavailable)

	_, err = s.Commit(context.Background(), set, "", "create again")
	assert.ErrorIs(t, err, store.ErrVersionConflict)
}

func TestFetchMissingDocument(t *testing.T) {
	s := store.New(memory.New(), path, testLog)
	_, _, err := s.Fetch(context.Background())
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTransportErrorsAreUnavailable(t *testing.T) {
	boom := errors.New("connection reset")
	s := store.New(failingBlob{err: boom}, path, testLog)

	_, _, err := s.Fetch(context.Background())
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	assert.ErrorIs(t, err, boom)

	_, err = s.Commit(context.Background(), entity.NewCodeSet(nil, time.Now()), "v", "m")
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
}

func TestFetchMalformedDocument(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":      `{"codes": [`,
		"no list":       `{"metadata": {"totalCount": 0}}`,
		"bad flag":      `{"codes": [{"id": 1, "code": "A", "used": "perhaps"}]}`,
		"duplicate ids": `{"codes": [{"id": 1, "code": "A"}, {"id": 1, "code": "B"}]}`,
		"missing code":  `{"codes": [{"id": 1, "used": false}]}`,
		"zero id":       `{"codes": [{"id": 0, "code": "A"}]}`,
		"used no time":  `{"codes": [{"id": 1, "code": "A", "used": true}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			blob := memory.New()
			blob.Set(path, []byte(raw))
			s := store.New(blob, path, testLog)

			_, _, err := s.Fetch(context.Background())
			assert.ErrorIs(t, err, store.ErrDecode)
		})
	}
}

func TestDecodeEmptyList(t *testing.T) {
	set, err := store.Decode([]byte(`{"metadata": {"totalCount": 0, "lastUpdated": "2024-01-01T00:00:00Z"}, "codes": []}`))
	require.NoError(t, err)
	assert.Empty(t, set.Codes)
}
