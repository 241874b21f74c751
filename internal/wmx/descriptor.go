package wmx

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DescriptorName is the file that marks a directory as a WMX component.
const DescriptorName = "wmconfig.json"

//go:embed schema/wmconfig.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

// Descriptor is the parsed wmconfig.json of a component.
type Descriptor struct {
	Name               string   `json:"name"`
	DisplayName        string   `json:"displayName"`
	Version            string   `json:"version"`
	Description        string   `json:"description"`
	Category           string   `json:"category"`
	Type               string   `json:"type,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	Author             string   `json:"author,omitempty"`
	License            string   `json:"license,omitempty"`
	Dependencies       []string `json:"dependencies,omitempty"`
	ReactNativeVersion string   `json:"reactNativeVersion,omitempty"`
}

// DescriptorResult contains the outcome of a descriptor validation.
type DescriptorResult struct {
	Valid  bool
	Issues []DescriptorIssue
}

// DescriptorIssue is a single schema violation.
type DescriptorIssue struct {
	Path    string // instance location (e.g., "/version")
	Message string
	Keyword string // schema keyword that failed
}

// RecommendedFiles are checked by `wmx validate` and reported as warnings
// when missing; their absence never blocks installation.
var RecommendedFiles = map[string]string{
	"index.ts":  "Component entry file (React Native implementation)",
	"icon.svg":  "Component icon (SVG format)",
	"README.md": "Component documentation",
}

// getSchema compiles the embedded JSON schema once and returns it.
func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("wmconfig.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("wmconfig.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// ValidateDescriptor validates raw wmconfig.json bytes against the embedded
// schema. The error return is for schema compilation or malformed JSON;
// schema violations are reported in the DescriptorResult.
func ValidateDescriptor(data []byte) (*DescriptorResult, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing wmconfig.json: %w", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return &DescriptorResult{Valid: true}, nil
	}

	validationErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return nil, fmt.Errorf("unexpected validation error type: %w", err)
	}

	return &DescriptorResult{
		Valid:  false,
		Issues: extractIssues(validationErr),
	}, nil
}

// ParseDescriptor validates and decodes wmconfig.json bytes. A schema
// violation is returned as an error listing the first few issues.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	result, err := ValidateDescriptor(data)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, fmt.Errorf("invalid descriptor: %s", result.Summary())
	}

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding wmconfig.json: %w", err)
	}
	return &d, nil
}

// ParseDescriptorFile reads and parses a component directory's wmconfig.json.
func ParseDescriptorFile(dir string) (*Descriptor, error) {
	data, err := os.ReadFile(filepath.Join(dir, DescriptorName))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", DescriptorName, err)
	}
	return ParseDescriptor(data)
}

// Summary renders the issues as a single semicolon-separated line.
func (r *DescriptorResult) Summary() string {
	var parts []string
	for _, issue := range r.Issues {
		if issue.Path != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", issue.Path, issue.Message))
		} else {
			parts = append(parts, issue.Message)
		}
	}
	return strings.Join(parts, "; ")
}

// extractIssues walks the ValidationError tree and returns leaf-level issues.
func extractIssues(ve *jsonschema.ValidationError) []DescriptorIssue {
	var issues []DescriptorIssue
	collectIssues(ve, &issues)

	if len(issues) == 0 {
		return []DescriptorIssue{{Message: ve.Error()}}
	}
	return dedupeIssues(issues)
}

// collectIssues recursively walks the error tree to find leaf errors with
// specific property information.
func collectIssues(ve *jsonschema.ValidationError, issues *[]DescriptorIssue) {
	if len(ve.Causes) == 0 {
		path := "/" + strings.Join(ve.InstanceLocation, "/")
		if len(ve.InstanceLocation) == 0 {
			path = ""
		}

		keyword := ""
		if ve.ErrorKind != nil {
			kwPath := ve.ErrorKind.KeywordPath()
			if len(kwPath) > 0 {
				keyword = kwPath[len(kwPath)-1]
			}
		}

		msg := ""
		if ve.ErrorKind != nil {
			msg = ve.ErrorKind.LocalizedString(printer)
		}

		// Skip generic container errors that aren't informative.
		if keyword == "allOf" || keyword == "$ref" || keyword == "" {
			return
		}

		*issues = append(*issues, DescriptorIssue{
			Path:    path,
			Message: msg,
			Keyword: keyword,
		})
		return
	}

	for _, cause := range ve.Causes {
		collectIssues(cause, issues)
	}
}

// dedupeIssues removes duplicate issues (same path + keyword + message).
func dedupeIssues(issues []DescriptorIssue) []DescriptorIssue {
	seen := make(map[string]bool)
	var result []DescriptorIssue
	for _, issue := range issues {
		key := issue.Path + "|" + issue.Keyword + "|" + issue.Message
		if !seen[key] {
			seen[key] = true
			result = append(result, issue)
		}
	}
	return result
}
