package wmx

import (
	"strings"
	"testing"
)

const validDescriptor = `{
	"name": "ChartWidget",
	"displayName": "Chart Widget",
	"version": "2.1.0",
	"description": "Interactive chart component",
	"category": "Visualization",
	"tags": ["chart", "dashboard"]
}`

func TestParseDescriptorValid(t *testing.T) {
	d, err := ParseDescriptor([]byte(validDescriptor))
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}
	if d.Name != "ChartWidget" {
		t.Errorf("Name = %q, want ChartWidget", d.Name)
	}
	if d.Version != "2.1.0" {
		t.Errorf("Version = %q, want 2.1.0", d.Version)
	}
	if len(d.Tags) != 2 {
		t.Errorf("Tags = %v, want 2 entries", d.Tags)
	}
}

func TestValidateDescriptorMissingFields(t *testing.T) {
	result, err := ValidateDescriptor([]byte(`{"name": "X"}`))
	if err != nil {
		t.Fatalf("ValidateDescriptor: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid result for descriptor missing required fields")
	}
	if len(result.Issues) == 0 {
		t.Fatal("expected at least one issue")
	}
}

func TestValidateDescriptorBadVersion(t *testing.T) {
	data := strings.Replace(validDescriptor, "2.1.0", "not-a-version", 1)
	result, err := ValidateDescriptor([]byte(data))
	if err != nil {
		t.Fatalf("ValidateDescriptor: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid result for non-semver version")
	}

	found := false
	for _, issue := range result.Issues {
		if issue.Path == "/version" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an issue at /version, got %+v", result.Issues)
	}
}

func TestParseDescriptorRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseDescriptor([]byte(`{"name": `)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestParseDescriptorEmptyRequired(t *testing.T) {
	data := strings.Replace(validDescriptor, "Interactive chart component", "", 1)
	if _, err := ParseDescriptor([]byte(data)); err == nil {
		t.Fatal("expected error for empty description")
	}
}
