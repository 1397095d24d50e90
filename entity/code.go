// Package entity defines domain types shared across the application.
//
// The code document is decoded leniently: older seed runs stored the "used"
// flag as a string and the code value under "password", inside a "passwords"
// list. Everything is normalized here so that the rest of the code only ever
// sees the canonical form.
package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DocumentVersion = "1.0"

// Flag is a boolean that also accepts the string and numeric encodings
// found in hand-edited or legacy documents. It always encodes as a JSON bool.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = false
		return nil
	}
	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("flag: %w", err)
		}
		*f = Flag(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("flag: %w", err)
		}
		b, err := parseFlag(s)
		if err != nil {
			return err
		}
		*f = Flag(b)
		return nil
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("flag: unsupported value %s", data)
		}
		switch n {
		case 0:
			*f = false
		case 1:
			*f = true
		default:
			return fmt.Errorf("flag: unsupported number %s", data)
		}
		return nil
	}
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true, nil
	case "false", "0", "no", "n", "":
		return false, nil
	}
	return false, fmt.Errorf("flag: unsupported string %q", s)
}

// CodeRecord is a single distributable code. UsedAt is set iff Used is true.
type CodeRecord struct {
	ID     int        `json:"id" validate:"required"`
	Code   string     `json:"code" validate:"required"`
	Used   Flag       `json:"used"`
	UsedAt *time.Time `json:"usedAt"`
}

func (c *CodeRecord) UnmarshalJSON(data []byte) error {
	type plain CodeRecord
	var raw struct {
		plain
		Password string          `json:"password"`
		UsedAt   json.RawMessage `json:"usedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = CodeRecord(raw.plain)
	if c.Code == "" {
		c.Code = raw.Password
	}
	c.UsedAt = nil
	if !c.Used {
		return nil
	}
	usedAt, err := parseOptionalTime(raw.UsedAt)
	if err != nil {
		return fmt.Errorf("code %d: usedAt: %w", c.ID, err)
	}
	c.UsedAt = usedAt
	return nil
}

func parseOptionalTime(data json.RawMessage) (*time.Time, error) {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		return nil, nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *CodeRecord) MarkUsed(at time.Time) {
	at = at.UTC()
	c.Used = true
	c.UsedAt = &at
}

func (c *CodeRecord) Release() {
	c.Used = false
	c.UsedAt = nil
}

type Metadata struct {
	// TotalCount is fixed when the document is seeded and is not kept in
	// sync with len(Codes) afterwards.
	TotalCount  int       `json:"totalCount"`
	CreatedDate string    `json:"createdDate"`
	LastUpdated time.Time `json:"lastUpdated"`
	Version     string    `json:"version,omitempty"`
}

// UnmarshalJSON treats a null or empty lastUpdated as unset.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	type plain Metadata
	var raw struct {
		plain
		LastUpdated json.RawMessage `json:"lastUpdated"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metadata(raw.plain)
	lastUpdated, err := parseOptionalTime(raw.LastUpdated)
	if err != nil {
		return fmt.Errorf("metadata: lastUpdated: %w", err)
	}
	if lastUpdated != nil {
		m.LastUpdated = *lastUpdated
	}
	return nil
}

// usedFallback is the best known time for a record marked used without a
// usedAt: the last document update, else the creation date.
func (m *Metadata) usedFallback() (time.Time, bool) {
	if !m.LastUpdated.IsZero() {
		return m.LastUpdated.UTC(), true
	}
	if created, err := time.Parse(time.DateOnly, strings.TrimSpace(m.CreatedDate)); err == nil {
		return created, true
	}
	return time.Time{}, false
}

// CodeSet is the whole shared document.
type CodeSet struct {
	Metadata Metadata     `json:"metadata"`
	Codes    []CodeRecord `json:"codes" validate:"unique=ID,dive"`
}

func (s *CodeSet) UnmarshalJSON(data []byte) error {
	type plain CodeSet
	var raw struct {
		plain
		Passwords []CodeRecord `json:"passwords"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = CodeSet(raw.plain)
	if s.Codes == nil {
		s.Codes = raw.Passwords
	}
	for i := range s.Codes {
		c := &s.Codes[i]
		if !c.Used || c.UsedAt != nil {
			continue
		}
		at, ok := s.Metadata.usedFallback()
		if !ok {
			return fmt.Errorf("code %d: used without usedAt and no document timestamp", c.ID)
		}
		c.UsedAt = &at
	}
	return nil
}

// NewCodeSet builds a fresh document with sequential ids starting at 1.
func NewCodeSet(codes []string, now time.Time) *CodeSet {
	now = now.UTC()
	set := &CodeSet{
		Metadata: Metadata{
			TotalCount:  len(codes),
			CreatedDate: now.Format(time.DateOnly),
			LastUpdated: now,
			Version:     DocumentVersion,
		},
		Codes: make([]CodeRecord, 0, len(codes)),
	}
	for i, code := range codes {
		set.Codes = append(set.Codes, CodeRecord{ID: i + 1, Code: code})
	}
	return set
}

// Unused returns indexes into Codes of records not yet handed out.
func (s *CodeSet) Unused() []int {
	idx := make([]int, 0, len(s.Codes))
	for i := range s.Codes {
		if !s.Codes[i].Used {
			idx = append(idx, i)
		}
	}
	return idx
}

func (s *CodeSet) Touch(now time.Time) {
	s.Metadata.LastUpdated = now.UTC()
}

// ReleaseAll marks every record unused and reports how many were used.
func (s *CodeSet) ReleaseAll() int {
	released := 0
	for i := range s.Codes {
		if s.Codes[i].Used {
			released++
		}
		s.Codes[i].Release()
	}
	return released
}

func (s *CodeSet) Stats() *Stats {
	used := 0
	for i := range s.Codes {
		if s.Codes[i].Used {
			used++
		}
	}
	return NewStats(len(s.Codes), used)
}
