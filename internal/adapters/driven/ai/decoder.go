package ai

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// schemaFiles maps each structured kind to its embedded schema
var schemaFiles = map[domain.GenerationKind]string{
	domain.GenerationReviewerFeedback:  "schemas/reviewer_feedback.json",
	domain.GenerationReviewerQuestions: "schemas/reviewer_questions.json",
	domain.GenerationScorePrediction:   "schemas/score_prediction.json",
	domain.GenerationComparison:        "schemas/comparison.json",
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// StructuredDecoder turns raw model output into validated JSON documents
type StructuredDecoder struct {
	schemas map[domain.GenerationKind]*jsonschema.Schema
}

// NewStructuredDecoder compiles the embedded schemas
func NewStructuredDecoder() (*StructuredDecoder, error) {
	compiler := jsonschema.NewCompiler()
	for _, path := range schemaFiles {
		data, err := schemaFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", path, err)
		}
		if err := compiler.AddResource(schemaURL(path), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", path, err)
		}
	}

	d := &StructuredDecoder{schemas: make(map[domain.GenerationKind]*jsonschema.Schema, len(schemaFiles))}
	for kind, path := range schemaFiles {
		compiled, err := compiler.Compile(schemaURL(path))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", path, err)
		}
		d.schemas[kind] = compiled
	}
	return d, nil
}

// Decode returns an ok result for free-text kinds and for structured output
// that validates. Anything else becomes a parse_error result.
func (d *StructuredDecoder) Decode(kind domain.GenerationKind, raw string) *domain.GenerationResult {
	if !kind.Structured() {
		return domain.TextResult(raw)
	}
	schema, ok := d.schemas[kind]
	if !ok {
		return domain.ParseErrorResult(raw, fmt.Sprintf("no schema for %s", kind))
	}

	doc, err := extractJSON(raw)
	if err != nil {
		return domain.ParseErrorResult(raw, err.Error())
	}
	var value any
	if err := json.Unmarshal(doc, &value); err != nil {
		return domain.ParseErrorResult(raw, err.Error())
	}
	if err := schema.Validate(value); err != nil {
		return domain.ParseErrorResult(raw, fmt.Sprintf("schema validation: %v", err))
	}
	return domain.DataResult(raw, doc)
}

// extractJSON finds the first JSON document in s. Models often wrap the
// document in prose or a markdown fence.
func extractJSON(s string) (json.RawMessage, error) {
	if doc, ok := firstDocument(s); ok {
		return doc, nil
	}
	if m := fencedJSON.FindStringSubmatch(s); m != nil {
		if doc, ok := firstDocument(m[1]); ok {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("no JSON document found")
}

func firstDocument(s string) (json.RawMessage, bool) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil, false
	}
	var doc json.RawMessage
	if err := json.NewDecoder(strings.NewReader(s[start:])).Decode(&doc); err != nil {
		return nil, false
	}
	return doc, true
}

func schemaURL(path string) string {
	return "mem://plana/" + path
}

// expectsObject reports whether a structured kind's top level is an object.
// Chat APIs that force JSON output can only force objects.
func expectsObject(kind domain.GenerationKind) bool {
	return kind.Structured() && kind != domain.GenerationReviewerQuestions
}
