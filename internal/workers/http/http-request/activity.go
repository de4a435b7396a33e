package httprequest

import (
	"advanced-http-worker/internal/common/config"
	"advanced-http-worker/internal/common/errors"
	"advanced-http-worker/pkg/registry"
)

// Activity is the registry entry for this worker.
func Activity() registry.Activity {
	return registry.Activity{
		ID:                   config.HTTPRequestWorker,
		DisplayName:          "Advanced HTTP Request",
		Description:          "Sends one HTTP request per input item, from static settings or from the item's query, and returns the responses in item order",
		Category:             "http",
		Version:              "1.0.0",
		TaskType:             TaskType,
		ImplementationStatus: "completed",
		InputSchema:          GetInputSchema().Document(),
		OutputSchema:         GetOutputSchema().Document(),
		ParameterSchema:      GetParametersSchema().Document(),
		ErrorCodes: []string{
			string(errors.ErrCodeInputParsingFailed),
			string(errors.ErrCodeInvalidParameters),
			string(errors.ErrCodeInvalidInput),
			string(errors.ErrCodeInvalidURL),
			string(errors.ErrCodeCoercionFailed),
			string(errors.ErrCodeHTTPRequestFailed),
			string(errors.ErrCodeHTTPClientError),
			string(errors.ErrCodeHTTPRequestTimeout),
		},
		Timeout:   DefaultConfig().Timeout.String(),
		Retries:   errors.GetRetryCount(errors.ErrCodeHTTPRequestFailed),
		Workflows: []string{},
		Tags:      []string{"http", "rest", "integration"},
	}
}
