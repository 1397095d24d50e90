package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"passdist/entity"
	"passdist/internal/store"
)

// readCodes returns the first column of every row after the header,
// trimmed, with empty values dropped.
func readCodes(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var codes []string
	header := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(record) == 0 {
			continue
		}
		code := strings.TrimSpace(record[0])
		if code == "" {
			continue
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// publish creates the document; with force an existing one is replaced
// using its current version.
func publish(ctx context.Context, blob store.Blob, path string, set *entity.CodeSet, force bool, log *slog.Logger) (string, error) {
	version := ""
	if force {
		_, current, err := blob.Get(ctx, path)
		switch {
		case err == nil:
			version = current
		case errors.Is(err, store.ErrNotFound):
		default:
			return "", err
		}
	}
	message := fmt.Sprintf("seed %d codes", len(set.Codes))
	if version != "" {
		message = fmt.Sprintf("reseed %d codes", len(set.Codes))
	}
	return store.New(blob, path, log).Commit(ctx, set, version, message)
}

func printSummary(w io.Writer, set *entity.CodeSet, size int, outPath string) {
	stats := set.Stats()
	_, _ = fmt.Fprintf(w, "codes: %s\n", humanize.Comma(int64(set.Metadata.TotalCount)))
	_, _ = fmt.Fprintf(w, "used: %s\n", humanize.Comma(int64(stats.Used)))
	_, _ = fmt.Fprintf(w, "available: %s\n", humanize.Comma(int64(stats.Available)))
	_, _ = fmt.Fprintf(w, "usage rate: %s\n", stats.UsageRate)
	_, _ = fmt.Fprintf(w, "created: %s\n", set.Metadata.CreatedDate)
	_, _ = fmt.Fprintf(w, "size: %s\n", humanize.Bytes(uint64(size)))
	if outPath != "" {
		_, _ = fmt.Fprintf(w, "written to: %s\n", outPath)
	}
}
