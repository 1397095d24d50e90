package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passdist/entity"
	"passdist/internal/store"
	"passdist/internal/store/memory"
)

func TestReadCodes(t *testing.T) {
	input := "password,comment\n  abc ,first\n\n,empty\nxyz\n\"q,r\",quoted\n"
	codes, err := readCodes(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "xyz", "q,r"}, codes)
}

func TestReadCodesHeaderOnly(t *testing.T) {
	codes, err := readCodes(strings.NewReader("password\n"))
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestReadCodesMalformed(t *testing.T) {
	_, err := readCodes(strings.NewReader("password\n\"unterminated\n"))
	assert.Error(t, err)
}

func TestPublish(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	ctx := context.Background()
	blob := memory.New()
	set := entity.NewCodeSet([]string{"A", "B"}, time.Now())

	_, err := publish(ctx, blob, "doc.json", set, false, log)
	require.NoError(t, err)

	_, err = publish(ctx, blob, "doc.json", set, false, log)
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	next := entity.NewCodeSet([]string{"C"}, time.Now())
	_, err = publish(ctx, blob, "doc.json", next, true, log)
	require.NoError(t, err)

	got, _, err := store.New(blob, "doc.json", log).Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, got.Codes, 1)
	assert.Equal(t, "C", got.Codes[0].Code)
	assert.Equal(t, 1, got.Metadata.TotalCount)
}

func TestPrintSummary(t *testing.T) {
	codes := make([]string, 1500)
	for i := range codes {
		codes[i] = fmt.Sprintf("C%04d", i)
	}
	set := entity.NewCodeSet(codes, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	printSummary(&buf, set, 2048, "out.json")
	out := buf.String()
	assert.Contains(t, out, "codes: 1,500\n")
	assert.Contains(t, out, "used: 0\n")
	assert.Contains(t, out, "available: 1,500\n")
	assert.Contains(t, out, "usage rate: 0.00%\n")
	assert.Contains(t, out, "created: 2024-05-01\n")
	assert.Contains(t, out, "size: 2.0 kB\n")
	assert.Contains(t, out, "written to: out.json\n")
}
