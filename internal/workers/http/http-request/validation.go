package httprequest

import (
	"encoding/json"
	"fmt"

	"advanced-http-worker/internal/common/errors"
	"advanced-http-worker/internal/common/validation"
)

const methodPattern = `^(?i)(GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS)$`

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"items": {
				Type:        "array",
				Description: "Input items, one request per element",
				Items: &validation.Property{
					Type: "object",
				},
			},
		},
		AdditionalProperties: true,
	}
}

func GetOutputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"results", "itemCount", "failedCount"},
		Properties: map[string]validation.Property{
			"results": {
				Type:        "array",
				Description: "One record per input item, in item order",
				Items: &validation.Property{
					Type: "object",
				},
			},
			"itemCount": {
				Type:        "integer",
				Description: "Number of records",
				Minimum:     floatPtr(0),
			},
			"failedCount": {
				Type:        "integer",
				Description: "Records holding an error instead of a response",
				Minimum:     floatPtr(0),
			},
		},
		AdditionalProperties: false,
	}
}

// GetParametersSchema describes the node parameters carried in job custom headers.
func GetParametersSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"method": {
				Type:        "string",
				Description: "HTTP method",
				Pattern:     strPtr(methodPattern),
			},
			"url": {
				Type:        "string",
				Description: "Target URL",
				MaxLength:   intPtr(8192),
			},
			"useDynamicData": {
				Type:        "boolean",
				Description: "Read method, url, headers and body from item.query",
			},
			"headers": {
				Type:        "array",
				Description: "Static request headers",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"name"},
					Properties: map[string]validation.Property{
						"name": {Type: "string"},
					},
				},
			},
			"body": {
				Description: "Static request body",
			},
			"options": {
				Type: "object",
				Properties: map[string]validation.Property{
					"timeout":        {Type: "integer", Minimum: floatPtr(0)},
					"followRedirect": {Type: "boolean"},
					"maxRedirects":   {Type: "integer", Minimum: floatPtr(0)},
					"fullResponse":   {Type: "boolean"},
					"validateSSL":    {Type: "boolean"},
					"responsePath":   {Type: "string"},
					"concurrency":    {Type: "integer", Minimum: floatPtr(0), Maximum: floatPtr(64)},
				},
			},
			"continueOnFail": {
				Type: "boolean",
			},
		},
		AdditionalProperties: false,
	}
}

// ValidateParameters checks params against GetParametersSchema.
func ValidateParameters(params *NodeParameters) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return errors.NewInvalidParametersError(err.Error())
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return errors.NewInvalidParametersError(err.Error())
	}

	result := validation.ValidateDocument(doc, GetParametersSchema().Document())
	if !result.Valid {
		return errors.NewInvalidParametersError(fmt.Sprintf("Validation errors: %v", result.GetErrorMessages()))
	}
	return nil
}

func intPtr(i int) *int {
	return &i
}

func floatPtr(f float64) *float64 {
	return &f
}

func strPtr(s string) *string {
	return &s
}
