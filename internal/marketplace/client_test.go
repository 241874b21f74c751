package marketplace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wavemaker-labs/wmx/internal/wmx"
)

const chartWidgetJSON = `{
	"id": "chart-widget",
	"name": "ChartWidget",
	"display_name": "Chart Widget",
	"description": "Interactive chart component",
	"category": "Visualization",
	"git_url": "https://github.com/wavemaker/wmx-chart-widget.git",
	"git_branch": "main",
	"version": "2.1.0",
	"versions": [
		{"version": "2.1.0"},
		{"version": "2.0.0", "revision": "release-2.0.0"},
		{"version": "1.5.2"}
	],
	"author": {"name": "WaveMaker Team"}
}`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "", 5*time.Second)
}

func TestResolveComponentLatest(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/components/chart-widget" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(chartWidgetJSON))
	}))

	ref, err := c.ResolveComponent(context.Background(), "chart-widget", "")
	if err != nil {
		t.Fatalf("ResolveComponent: %v", err)
	}
	if ref.Version != "2.1.0" {
		t.Errorf("Version = %q, want 2.1.0 (newest)", ref.Version)
	}
	if ref.Revision != "main" {
		t.Errorf("Revision = %q, want main (default branch for newest)", ref.Revision)
	}
	if ref.SourceRepo != "https://github.com/wavemaker/wmx-chart-widget.git" {
		t.Errorf("SourceRepo = %q", ref.SourceRepo)
	}
}

func TestResolveComponentPinnedVersion(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartWidgetJSON))
	}))

	tests := []struct {
		version      string
		wantRevision string
	}{
		{"2.0.0", "release-2.0.0"}, // declared tag wins
		{"1.5.2", "v1.5.2"},        // conventional tag fallback
	}
	for _, tt := range tests {
		ref, err := c.ResolveComponent(context.Background(), "chart-widget", tt.version)
		if err != nil {
			t.Fatalf("ResolveComponent(%s): %v", tt.version, err)
		}
		if ref.Revision != tt.wantRevision {
			t.Errorf("ResolveComponent(%s).Revision = %q, want %q", tt.version, ref.Revision, tt.wantRevision)
		}
	}
}

func TestResolveComponentUnpublishedVersion(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartWidgetJSON))
	}))

	_, err := c.ResolveComponent(context.Background(), "chart-widget", "9.9.9")
	var fe *wmx.FetchError
	if !errors.As(err, &fe) || fe.Kind != wmx.KindNotFound {
		t.Fatalf("err = %v, want FetchError{NotFound}", err)
	}
}

func TestGetComponentNotFound(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())

	_, err := c.GetComponent(context.Background(), "nope")
	var fe *wmx.FetchError
	if !errors.As(err, &fe) || fe.Kind != wmx.KindNotFound {
		t.Fatalf("err = %v, want FetchError{NotFound}", err)
	}
}

func TestGetComponentAuthRequired(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.GetComponent(context.Background(), "chart-widget")
	var fe *wmx.FetchError
	if !errors.As(err, &fe) || fe.Kind != wmx.KindAuthRequired {
		t.Fatalf("err = %v, want FetchError{AuthRequired}", err)
	}
}

func TestGetComponentMalformed(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "x", "name": "X"}`)) // missing git_url, version
	}))

	_, err := c.GetComponent(context.Background(), "x")
	var ve *wmx.ValidationError
	if !errors.As(err, &ve) || ve.Kind != wmx.KindMalformedComponent {
		t.Fatalf("err = %v, want ValidationError{MalformedComponent}", err)
	}
}

func TestGetComponentRejectsUnsafeID(t *testing.T) {
	ids := []string{"../evil", "a/b", `a\b`, ".."}
	for _, id := range ids {
		body := fmt.Sprintf(`{"id": %q, "name": "Evil", "git_url": "https://example.com/evil.git", "version": "1.0.0"}`, id)
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))

		_, err := c.GetComponent(context.Background(), "evil")
		var ve *wmx.ValidationError
		if !errors.As(err, &ve) || ve.Kind != wmx.KindMalformedComponent {
			t.Errorf("GetComponent with id %q: err = %v, want ValidationError{MalformedComponent}", id, err)
		}
	}
}

func TestListVersionsNewestFirst(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartWidgetJSON))
	}))

	versions, err := c.ListVersions(context.Background(), "chart-widget")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	want := []string{"2.1.0", "2.0.0", "1.5.2"}
	if len(versions) != len(want) {
		t.Fatalf("versions = %v, want %v", versions, want)
	}
	for i := range want {
		if versions[i] != want[i] {
			t.Errorf("versions[%d] = %q, want %q", i, versions[i], want[i])
		}
	}
}

func TestSearchSendsParamsAndAuth(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"components": [` + chartWidgetJSON + `]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-token", 5*time.Second)
	results, err := c.Search(context.Background(), SearchParams{Query: "chart", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "chart-widget" {
		t.Errorf("results = %+v", results)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotQuery == "" {
		t.Error("expected query parameters to be sent")
	}
}
