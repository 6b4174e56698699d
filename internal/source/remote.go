package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jmespath/go-jmespath"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/cetmix/towered/internal/config"
	"github.com/cetmix/towered/internal/types"
)

// maxResponseSize caps how much of a remote response is read
const maxResponseSize = 10 << 20

// Remote fetches candidates from an HTTP API
type Remote struct {
	client        *http.Client
	baseURL       string
	variablesPath string
	secretsPath   string
	query         *jmespath.JMESPath
}

// NewRemote builds a Remote from settings. Client credentials take precedence
// over a static token. ctx is kept by the token source for token refreshes.
func NewRemote(ctx context.Context, settings config.RemoteSettings) (*Remote, error) {
	if settings.BaseURL == "" {
		return nil, fmt.Errorf("remote source requires a base URL")
	}

	expr := settings.Query
	if expr == "" {
		expr = "@"
	}
	query, err := jmespath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid remote query %q: %w", expr, err)
	}

	client := http.DefaultClient
	switch {
	case settings.ClientID != "":
		cc := &clientcredentials.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			TokenURL:     settings.TokenURL,
			Scopes:       settings.Scopes,
		}
		client = cc.Client(ctx)
	case settings.Token != "":
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: settings.Token,
			TokenType:   "Bearer",
		}))
	}

	return &Remote{
		client:        client,
		baseURL:       settings.BaseURL,
		variablesPath: settings.VariablesPath,
		secretsPath:   settings.SecretsPath,
		query:         query,
	}, nil
}

// Variables implements Source
func (r *Remote) Variables(ctx context.Context) ([]types.Candidate, error) {
	return r.fetch(ctx, r.variablesPath, nil)
}

// Secrets implements Source. The key type is sent as the key_type query parameter.
func (r *Remote) Secrets(ctx context.Context, keyType types.KeyType) ([]types.Candidate, error) {
	params := url.Values{}
	if keyType != "" {
		params.Set("key_type", string(keyType))
	}
	return r.fetch(ctx, r.secretsPath, params)
}

func (r *Remote) fetch(ctx context.Context, path string, params url.Values) ([]types.Candidate, error) {
	endpoint, err := url.JoinPath(r.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("invalid remote URL: %w", err)
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, endpoint)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}

	return r.extract(doc)
}

// extract applies the JMESPath query and decodes the result as candidates
func (r *Remote) extract(doc any) ([]types.Candidate, error) {
	result, err := r.query.Search(doc)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	// Round-trip through JSON to map the generic result onto Candidate
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query result: %w", err)
	}
	var items []types.Candidate
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("query result is not a list of {name, reference}: %w", err)
	}
	return items, nil
}
