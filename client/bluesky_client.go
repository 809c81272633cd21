package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crosspost-labs/crosspost/common"
)

const defaultBlueskyHost = "https://bsky.social"

// BlueskyClient posts records over the AT Protocol XRPC HTTP API using an
// app password session.
type BlueskyClient struct {
	cfg        common.PlatformConfig
	host       string
	httpClient *http.Client

	mu        sync.RWMutex
	accessJwt string
	did       string
}

type blueskySession struct {
	AccessJwt string `json:"accessJwt"`
	Did       string `json:"did"`
	Handle    string `json:"handle"`
}

type blueskyCreateRecordResponse struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// NewBlueskyClient creates a new Bluesky posting client.
func NewBlueskyClient(cfg common.PlatformConfig) *BlueskyClient {
	host := cfg.BlueskyHost
	if host == "" {
		host = defaultBlueskyHost
	}
	return &BlueskyClient{
		cfg:        cfg,
		host:       strings.TrimSuffix(host, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Connect creates an app-password session and stores the access token.
func (c *BlueskyClient) Connect(ctx context.Context) error {
	body := map[string]string{
		"identifier": c.cfg.BlueskyHandle,
		"password":   c.cfg.BlueskyAppPassword,
	}

	var session blueskySession
	if err := c.xrpcPost(ctx, "com.atproto.server.createSession", "", body, &session); err != nil {
		return err
	}

	c.mu.Lock()
	c.accessJwt = session.AccessJwt
	c.did = session.Did
	c.mu.Unlock()

	log.Info().
		Str("handle", c.cfg.BlueskyHandle).
		Str("did", session.Did).
		Msg("Created Bluesky session")
	return nil
}

// Disconnect drops the session token. App password sessions need no
// server-side teardown.
func (c *BlueskyClient) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.accessJwt = ""
	c.did = ""
	c.mu.Unlock()
	return nil
}

// Post creates an app.bsky.feed.post record in the account's repo.
func (c *BlueskyClient) Post(ctx context.Context, content PostContent) (*PostResponse, error) {
	c.mu.RLock()
	jwt, did := c.accessJwt, c.did
	c.mu.RUnlock()

	if jwt == "" {
		return nil, &PlatformError{Platform: common.PlatformBluesky, Message: "client not connected"}
	}

	body := map[string]interface{}{
		"repo":       did,
		"collection": "app.bsky.feed.post",
		"record": map[string]interface{}{
			"$type":     "app.bsky.feed.post",
			"text":      content.Text,
			"createdAt": time.Now().UTC().Format(time.RFC3339),
		},
	}

	var created blueskyCreateRecordResponse
	if err := c.xrpcPost(ctx, "com.atproto.repo.createRecord", jwt, body, &created); err != nil {
		return nil, err
	}

	rkey := recordKey(created.URI)
	log.Info().Str("uri", created.URI).Msg("Created Bluesky post")

	return &PostResponse{
		ID:  created.URI,
		URL: fmt.Sprintf("https://bsky.app/profile/%s/post/%s", c.cfg.BlueskyHandle, rkey),
		Raw: map[string]interface{}{
			"cid": created.CID,
			"did": did,
		},
	}, nil
}

// HealthProbe hits the unauthenticated describeServer endpoint.
func (c *BlueskyClient) HealthProbe(ctx context.Context) Health {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/xrpc/com.atproto.server.describeServer", nil)
	if err != nil {
		return HealthDown
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("Bluesky health probe failed")
		return HealthDown
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return HealthOK
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return HealthDegraded
	default:
		return HealthDown
	}
}

// Platform implements PlatformClient.
func (c *BlueskyClient) Platform() common.PlatformType {
	return common.PlatformBluesky
}

// xrpcPost performs one authenticated XRPC procedure call and decodes the
// response into out.
func (c *BlueskyClient) xrpcPost(ctx context.Context, method, jwt string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &PlatformError{Platform: common.PlatformBluesky, Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/xrpc/"+method, bytes.NewReader(payload))
	if err != nil {
		return &PlatformError{Platform: common.PlatformBluesky, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if jwt != "" {
		req.Header.Set("Authorization", "Bearer "+jwt)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &PlatformError{Platform: common.PlatformBluesky, Message: fmt.Sprintf("%s request failed", method), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &PlatformError{Platform: common.PlatformBluesky, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		rle := &RateLimitError{Platform: common.PlatformBluesky, Message: xrpcErrorMessage(data)}
		if after := resp.Header.Get("Retry-After"); after != "" {
			if secs, convErr := strconv.Atoi(after); convErr == nil {
				rle.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return rle
	}
	if resp.StatusCode != http.StatusOK {
		return &PlatformError{
			Platform: common.PlatformBluesky,
			Message:  fmt.Sprintf("%s returned %d: %s", method, resp.StatusCode, xrpcErrorMessage(data)),
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &PlatformError{Platform: common.PlatformBluesky, Message: "failed to decode response", Err: err}
		}
	}
	return nil
}

// xrpcErrorMessage extracts the message from an XRPC error body, falling
// back to the raw body.
func xrpcErrorMessage(data []byte) string {
	var xrpcErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &xrpcErr); err == nil && xrpcErr.Message != "" {
		return xrpcErr.Message
	}
	return strings.TrimSpace(string(data))
}

// recordKey extracts the record key from an AT URI such as
// at://did:plc:abc/app.bsky.feed.post/3jxyz.
func recordKey(uri string) string {
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}
