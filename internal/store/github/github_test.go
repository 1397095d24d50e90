package github

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passdist/internal/store"
)

const (
	owner = "octo"
	repo  = "Password"
	token = "ghp_testtoken"
)

// fakeContents emulates the subset of the contents API used by Client.
type fakeContents struct {
	mu       sync.Mutex
	files    map[string][]byte
	rawOnly  bool
	lastPut  putRequest
	requests []string
}

func newFake() *fakeContents {
	return &fakeContents{files: make(map[string][]byte)}
}

func sha(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func (f *fakeContents) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.RequestURI())

	if r.Header.Get("Authorization") != "Bearer "+token {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
		return
	}
	prefix := "/repos/" + owner + "/" + repo + "/contents/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, prefix)

	switch r.Method {
	case http.MethodGet:
		data, ok := f.files[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		if r.Header.Get("Accept") == mediaRaw {
			_, _ = w.Write(data)
			return
		}
		res := contentResponse{Type: "file", Sha: sha(data), Size: len(data)}
		if f.rawOnly {
			res.Encoding = "none"
		} else {
			res.Encoding = "base64"
			enc := base64.StdEncoding.EncodeToString(data)
			// the API wraps content at 60 characters
			for len(enc) > 60 {
				res.Content += enc[:60] + "\n"
				enc = enc[60:]
			}
			res.Content += enc
		}
		_ = json.NewEncoder(w).Encode(res)
	case http.MethodPut:
		var req putRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.lastPut = req
		current, exists := f.files[path]
		if exists && req.Sha == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"Invalid request.\n\n\"sha\" wasn't supplied."}`))
			return
		}
		if exists && req.Sha != sha(current) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"passwords-data.json does not match ` + req.Sha + `"}`))
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.files[path] = data
		status := http.StatusOK
		if !exists {
			status = http.StatusCreated
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"content":{"sha":"` + sha(data) + `"},"commit":{"sha":"c0ffee"}}`))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, handler http.Handler, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.APIURL = srv.URL
	cfg.Owner = owner
	cfg.Repo = repo
	if cfg.Token == "" {
		cfg.Token = token
	}
	return NewClient(cfg, slog.New(slog.DiscardHandler))
}

func TestGetDecodesWrappedBase64(t *testing.T) {
	fake := newFake()
	content := []byte(`{"codes":[{"id":1,"code":"A1B2C3D","used":false,"usedAt":null}],"metadata":{"totalCount":1}}`)
	fake.files["passwords-data.json"] = content
	c := newTestClient(t, fake, Config{})

	data, version, err := c.Get(context.Background(), "passwords-data.json")
	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.Equal(t, sha(content), version)
}

func TestGetFallsBackToRaw(t *testing.T) {
	fake := newFake()
	fake.rawOnly = true
	fake.files["big.json"] = []byte(`{"codes":[]}`)
	c := newTestClient(t, fake, Config{})

	data, version, err := c.Get(context.Background(), "big.json")
	require.NoError(t, err)
	assert.Equal(t, `{"codes":[]}`, string(data))
	assert.Equal(t, sha(data), version)
	assert.Len(t, fake.requests, 2)
}

func TestGetNotFound(t *testing.T) {
	c := newTestClient(t, newFake(), Config{})
	_, _, err := c.Get(context.Background(), "missing.json")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetBadCredentials(t *testing.T) {
	c := newTestClient(t, newFake(), Config{Token: "wrong"})
	_, _, err := c.Get(context.Background(), "passwords-data.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad credentials")
	assert.NotErrorIs(t, err, store.ErrVersionConflict)
}

func TestGetSendsBranchAsRef(t *testing.T) {
	fake := newFake()
	fake.files["data/codes.json"] = []byte(`{}`)
	c := newTestClient(t, fake, Config{Branch: "main"})

	_, _, err := c.Get(context.Background(), "/data/codes.json")
	require.NoError(t, err)
	assert.Equal(t, "GET /repos/octo/Password/contents/data/codes.json?ref=main", fake.requests[0])
}

func TestPutCreateUpdateAndConflict(t *testing.T) {
	fake := newFake()
	c := newTestClient(t, fake, Config{Branch: "main", CommitterName: "passdist", CommitterEmail: "bot@example.com"})
	ctx := context.Background()

	v1, err := c.Put(ctx, "passwords-data.json", []byte("one"), "", "seed")
	require.NoError(t, err)
	assert.Equal(t, sha([]byte("one")), v1)
	assert.Equal(t, "main", fake.lastPut.Branch)
	require.NotNil(t, fake.lastPut.Committer)
	assert.Equal(t, "passdist", fake.lastPut.Committer.Name)
	assert.Equal(t, "seed", fake.lastPut.Message)

	_, err = c.Put(ctx, "passwords-data.json", []byte("again"), "", "seed")
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	v2, err := c.Put(ctx, "passwords-data.json", []byte("two"), v1, "update")
	require.NoError(t, err)
	assert.Equal(t, sha([]byte("two")), v2)

	_, err = c.Put(ctx, "passwords-data.json", []byte("three"), v1, "stale")
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	assert.Equal(t, []byte("two"), fake.files["passwords-data.json"])
	assert.NotContains(t, fake.requests[len(fake.requests)-1], "?ref=")
}

func TestPutServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}), Config{})

	_, err := c.Put(context.Background(), "passwords-data.json", []byte("x"), "v", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.NotErrorIs(t, err, store.ErrVersionConflict)
}

func TestRequestHonoursContext(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), Config{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := c.Get(ctx, "passwords-data.json")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorksThroughStoreAdapter(t *testing.T) {
	fake := newFake()
	fake.files["passwords-data.json"] = []byte(`{"metadata":{"totalCount":1,"createdDate":"2024-01-01","lastUpdated":"2024-01-01T00:00:00.000Z"},"passwords":[{"id":1,"password":"A1B2C3D","used":"FALSE","usedAt":null}]}`)
	c := newTestClient(t, fake, Config{})
	s := store.New(c, "passwords-data.json", slog.New(slog.DiscardHandler))

	set, version, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Codes, 1)
	assert.Equal(t, "A1B2C3D", set.Codes[0].Code)

	set.Codes[0].MarkUsed(time.Now())
	_, err = s.Commit(context.Background(), set, version, "use code")
	require.NoError(t, err)

	_, err = s.Commit(context.Background(), set, version, "use code again")
	assert.ErrorIs(t, err, store.ErrVersionConflict)
}
