package applet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/qdesktop/qapplet/internal/transport"
)

// ProxyRequest is a request relayed through the OAuth2 proxy, which holds
// the client key and secret on the applet's behalf.
type ProxyRequest struct {
	APIKey      string `json:"apiKey"`
	URI         string `json:"uri"`
	QS          any    `json:"qs,omitempty"`
	Method      string `json:"method"`
	ContentType string `json:"contentType"`
	Body        any    `json:"body,omitempty"`
}

// ProxyClient talks to the OAuth2 proxy, a legacy integration kept for
// applets that still depend on it.
type ProxyClient struct {
	t      *transport.Client
	logger *slog.Logger
}

// NewProxyClient creates a [ProxyClient] for the proxy at baseURL.
// A nil logger selects [slog.Default].
func NewProxyClient(baseURL string, logger *slog.Logger) *ProxyClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProxyClient{t: transport.NewClient(baseURL, logger), logger: logger}
}

// ProxyClient returns a [ProxyClient] for the configured proxy URL.
func (a *Applet) ProxyClient() *ProxyClient {
	return NewProxyClient(a.proxyURL, a.logger)
}

// Perform relays req through the proxy and returns the proxied response
// body. Method and content type default to GET and application/json.
func (p *ProxyClient) Perform(ctx context.Context, req ProxyRequest) (json.RawMessage, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.ContentType == "" {
		req.ContentType = "application/json"
	}
	return p.post(ctx, req, "error while sending proxy request")
}

// Token fetches an OAuth2 access token for apiKey.
func (p *ProxyClient) Token(ctx context.Context, apiKey string) (json.RawMessage, error) {
	return p.get(ctx, "/token", apiKey, "error while getting access token from proxy")
}

// RefreshToken asks the proxy to refresh the access token for apiKey.
func (p *ProxyClient) RefreshToken(ctx context.Context, apiKey string) (json.RawMessage, error) {
	return p.get(ctx, "/refresh_my_access_token", apiKey, "error while refreshing access token from proxy")
}

// ClientPayload fetches the applet's OAuth2 client payload for apiKey.
func (p *ProxyClient) ClientPayload(ctx context.Context, apiKey string) (json.RawMessage, error) {
	body, err := p.get(ctx, "/applet_payload", apiKey, "error while getting OAuth client payload from proxy")
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decode client payload: %w", err)
	}
	return wrapper.Payload, nil
}

// Close releases idle connections.
func (p *ProxyClient) Close() {
	p.t.Close()
}

// ProxyRequest posts a raw request body to the proxy.
//
// Deprecated: use [ProxyClient.Perform].
func (a *Applet) ProxyRequest(ctx context.Context, body any) (json.RawMessage, error) {
	p := a.ProxyClient()
	defer p.Close()
	return p.post(ctx, body, "error while sending proxy request")
}

func (p *ProxyClient) post(ctx context.Context, body any, failure string) (json.RawMessage, error) {
	endpoint := p.t.BaseURL() + "/proxy"
	p.logger.Info("proxying OAuth2 request", "url", endpoint)

	resp := p.t.Do(ctx, http.MethodPost, endpoint, nil, body)
	if resp.Error != nil {
		p.logger.Error(failure, "error", resp.Error)
		return nil, fmt.Errorf("oauth2 proxy: %w", resp.Error)
	}
	return resp.Body, nil
}

func (p *ProxyClient) get(ctx context.Context, path, apiKey, failure string) (json.RawMessage, error) {
	endpoint := p.t.BaseURL() + path
	p.logger.Info("calling OAuth2 proxy", "url", endpoint)

	resp := p.t.Do(ctx, http.MethodGet, endpoint, url.Values{"apiKey": {apiKey}}, nil)
	if resp.Error != nil {
		p.logger.Error(failure, "error", resp.Error)
		return nil, fmt.Errorf("oauth2 proxy %s: %w", path, resp.Error)
	}
	return resp.Body, nil
}
