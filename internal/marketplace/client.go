package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"

	"github.com/wavemaker-labs/wmx/internal/branding"
	"github.com/wavemaker-labs/wmx/internal/wmx"
)

// Client talks to the marketplace catalog API.
type Client struct {
	baseURL string
	apiKey  string
	http    *pester.Client
}

// SearchParams filter a component search.
type SearchParams struct {
	Query    string
	Category string
	Tags     []string
	Limit    int
	Offset   int
}

// New returns a catalog client for the given API base URL. The underlying
// HTTP client retries transient failures with exponential backoff.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	httpClient := pester.New()
	httpClient.Timeout = timeout
	httpClient.MaxRetries = 3
	httpClient.Backoff = pester.ExponentialBackoff
	httpClient.KeepLog = true

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpClient,
	}
}

// GetComponent fetches full metadata for a component id.
func (c *Client) GetComponent(ctx context.Context, id string) (*wmx.Component, error) {
	body, err := c.getJSON(ctx, "/components/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var comp wmx.Component
	if err := json.Unmarshal(body, &comp); err != nil {
		return nil, &wmx.ValidationError{
			Kind:   wmx.KindMalformedComponent,
			Detail: fmt.Sprintf("component %s: undecodable catalog response: %v", id, err),
		}
	}
	if err := checkComponent(&comp); err != nil {
		return nil, err
	}
	return &comp, nil
}

// ResolveComponent resolves a component id plus optional version to an
// immutable ComponentRef. An empty version resolves to the newest
// published version.
func (c *Client) ResolveComponent(ctx context.Context, id, version string) (*wmx.ComponentRef, error) {
	comp, err := c.GetComponent(ctx, id)
	if err != nil {
		return nil, err
	}

	if version == "" {
		version = comp.Version
	}

	revision, err := resolveRevision(comp, version)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"component": id,
		"version":   version,
		"revision":  revision,
	}).Debug("resolved component")

	return &wmx.ComponentRef{
		ID:         comp.ID,
		Version:    version,
		SourceRepo: comp.GitURL,
		Revision:   revision,
		Subdir:     comp.GitPath,
	}, nil
}

// ListVersions returns the published version strings for a component,
// newest first.
func (c *Client) ListVersions(ctx context.Context, id string) ([]string, error) {
	comp, err := c.GetComponent(ctx, id)
	if err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(comp.Versions)+1)
	seen := make(map[string]bool)
	if comp.Version != "" {
		versions = append(versions, comp.Version)
		seen[comp.Version] = true
	}
	for _, v := range comp.Versions {
		if !seen[v.Version] {
			versions = append(versions, v.Version)
			seen[v.Version] = true
		}
	}
	return versions, nil
}

// Search queries the catalog for components matching the given parameters.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]wmx.Component, error) {
	q := url.Values{}
	if params.Query != "" {
		q.Set("query", params.Query)
	}
	if params.Category != "" {
		q.Set("category", params.Category)
	}
	for _, tag := range params.Tags {
		q.Add("tags", tag)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}

	body, err := c.getJSON(ctx, "/components", q)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Components []wmx.Component `json:"components"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &wmx.ValidationError{
			Kind:   wmx.KindMalformedComponent,
			Detail: fmt.Sprintf("undecodable search response: %v", err),
		}
	}
	return payload.Components, nil
}

// getJSON performs a GET request and returns the response body, mapping
// transport and status failures into the pipeline error taxonomy.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", branding.UserAgent())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &wmx.FetchError{
			Kind: wmx.KindNetworkError,
			Repo: u,
			Err:  err,
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &wmx.FetchError{
			Kind: wmx.KindNotFound,
			Repo: u,
			Err:  errors.New("component not found in catalog"),
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &wmx.FetchError{
			Kind: wmx.KindAuthRequired,
			Repo: u,
			Err:  fmt.Errorf("catalog returned status %d", resp.StatusCode),
		}
	case resp.StatusCode != http.StatusOK:
		return nil, &wmx.FetchError{
			Kind: wmx.KindNetworkError,
			Repo: u,
			Err:  fmt.Errorf("catalog returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &wmx.FetchError{
			Kind: wmx.KindNetworkError,
			Repo: u,
			Err:  fmt.Errorf("reading response body: %w", err),
		}
	}
	return body, nil
}

// checkComponent verifies the fields the pipeline depends on are present.
func checkComponent(comp *wmx.Component) error {
	var missing []string
	if comp.ID == "" {
		missing = append(missing, "id")
	}
	if comp.Name == "" {
		missing = append(missing, "name")
	}
	if comp.GitURL == "" {
		missing = append(missing, "git_url")
	}
	if comp.Version == "" {
		missing = append(missing, "version")
	}
	if len(missing) > 0 {
		return &wmx.ValidationError{
			Kind:   wmx.KindMalformedComponent,
			Detail: fmt.Sprintf("catalog response missing required fields: %v", missing),
		}
	}
	// The id later becomes a directory name under componentsDir; reject
	// anything that is not a single path segment at the boundary.
	if !wmx.SafeComponentID(comp.ID) {
		return &wmx.ValidationError{
			Kind:   wmx.KindMalformedComponent,
			Detail: fmt.Sprintf("catalog returned unusable component id %q", comp.ID),
		}
	}
	return nil
}

// resolveRevision maps a requested version to the repository revision to
// fetch: the published version's own tag when declared, the default branch
// for the newest version, and the conventional "v<version>" tag otherwise.
func resolveRevision(comp *wmx.Component, version string) (string, error) {
	for _, v := range comp.Versions {
		if v.Version == version {
			if v.Revision != "" {
				return v.Revision, nil
			}
			break
		}
	}

	if version == comp.Version {
		if comp.GitBranch != "" {
			return comp.GitBranch, nil
		}
		return "v" + version, nil
	}

	// Older versions must be published in the version list.
	for _, v := range comp.Versions {
		if v.Version == version {
			return "v" + version, nil
		}
	}

	return "", &wmx.FetchError{
		Kind:     wmx.KindNotFound,
		Repo:     comp.GitURL,
		Revision: version,
		Err:      fmt.Errorf("version %s of %s is not published", version, comp.ID),
	}
}
