package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"passdist/internal/store"
	"passdist/lib/sl"
)

const (
	defaultAPIURL = "https://api.github.com"
	apiVersion    = "2022-11-28"
	mediaJSON     = "application/vnd.github+json"
	mediaRaw      = "application/vnd.github.raw"
)

type Config struct {
	APIURL         string
	Owner          string
	Repo           string
	Branch         string
	Token          string
	CommitterName  string
	CommitterEmail string
	Timeout        time.Duration
}

// Client implements store.Blob on top of the repository contents API.
// The blob sha is used as the version token.
type Client struct {
	hc      *http.Client
	baseURL string
	owner   string
	repo    string
	branch  string
	token   string
	author  *committer
	log     *slog.Logger
}

type committer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type contentResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Size     int    `json:"size"`
	Sha      string `json:"sha"`
	Content  string `json:"content"`
}

type putRequest struct {
	Message   string     `json:"message"`
	Content   string     `json:"content"`
	Sha       string     `json:"sha,omitempty"`
	Branch    string     `json:"branch,omitempty"`
	Committer *committer `json:"committer,omitempty"`
}

type putResponse struct {
	Content struct {
		Sha string `json:"sha"`
	} `json:"content"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &Client{
		hc:      &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimSuffix(cfg.APIURL, "/"),
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		branch:  cfg.Branch,
		token:   cfg.Token,
		log: logger.With(
			sl.Module("github"),
			slog.String("repo", cfg.Owner+"/"+cfg.Repo),
		),
	}
	if cfg.CommitterName != "" && cfg.CommitterEmail != "" {
		c.author = &committer{Name: cfg.CommitterName, Email: cfg.CommitterEmail}
	}
	return c
}

func (c *Client) Get(ctx context.Context, path string) ([]byte, string, error) {
	body, status, err := c.request(ctx, http.MethodGet, path, mediaJSON, nil)
	if err != nil {
		return nil, "", err
	}
	if status == http.StatusNotFound {
		return nil, "", fmt.Errorf("%s: %w", path, store.ErrNotFound)
	}
	if status >= 300 {
		return nil, "", statusError(status, body)
	}

	var content contentResponse
	if err = json.Unmarshal(body, &content); err != nil {
		return nil, "", fmt.Errorf("github: decode contents: %w", err)
	}
	if content.Type != "" && content.Type != "file" {
		return nil, "", fmt.Errorf("github: %s is a %s, not a file", path, content.Type)
	}

	if content.Encoding != "base64" {
		// files over 1MB come without inline content
		raw, rawStatus, err := c.request(ctx, http.MethodGet, path, mediaRaw, nil)
		if err != nil {
			return nil, "", err
		}
		if rawStatus >= 300 {
			return nil, "", statusError(rawStatus, raw)
		}
		return raw, content.Sha, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
	if err != nil {
		return nil, "", fmt.Errorf("github: decode base64 content: %w", err)
	}
	return data, content.Sha, nil
}

func (c *Client) Put(ctx context.Context, path string, content []byte, version, message string) (string, error) {
	payload := putRequest{
		Message:   message,
		Content:   base64.StdEncoding.EncodeToString(content),
		Sha:       version,
		Branch:    c.branch,
		Committer: c.author,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("github: marshal payload: %w", err)
	}

	body, status, err := c.request(ctx, http.MethodPut, path, mediaJSON, data)
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusConflict, status == http.StatusPreconditionFailed:
		return "", store.ErrVersionConflict
	case status == http.StatusUnprocessableEntity && mentionsSha(body):
		return "", store.ErrVersionConflict
	case status == http.StatusNotFound:
		return "", fmt.Errorf("%s: %w", path, store.ErrNotFound)
	case status >= 300:
		return "", statusError(status, body)
	}

	var res putResponse
	if err = json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("github: decode put response: %w", err)
	}
	if res.Content.Sha == "" {
		return "", fmt.Errorf("github: put response without sha")
	}
	return res.Content.Sha, nil
}

func (c *Client) endpoint(path string, withRef bool) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(c.owner), url.PathEscape(c.repo), strings.Join(segments, "/"))
	if withRef && c.branch != "" {
		q := url.Values{}
		q.Set("ref", c.branch)
		endpoint += "?" + q.Encode()
	}
	return endpoint
}

// request returns the body and status of any completed exchange;
// only transport failures are reported as error
func (c *Client) request(ctx context.Context, method, path, accept string, payload []byte) ([]byte, int, error) {
	// writes name the branch in the body
	endpoint := c.endpoint(path, method == http.MethodGet)
	log := c.log.With(
		slog.String("method", method),
		slog.String("path", path),
	)

	status := "ERROR"
	t1 := time.Now()
	defer func() {
		log.Debug("github API request completed",
			slog.String("duration", fmt.Sprintf("%.3fms", float64(time.Since(t1))/float64(time.Millisecond))),
			slog.String("status", status))
	}()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("github: create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		log.Warn("request failed", sl.Err(err), sl.Secret("token", c.token))
		return nil, 0, fmt.Errorf("github: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("github: read body: %w", err)
	}
	status = resp.Status
	return body, resp.StatusCode, nil
}

func statusError(status int, body []byte) error {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return fmt.Errorf("github %d: %s", status, e.Message)
	}
	return fmt.Errorf("github %d: %s", status, bytes.TrimSpace(body))
}

func mentionsSha(body []byte) bool {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(e.Message), "sha")
}
