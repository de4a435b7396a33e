// pkg/registry/schema.go
package registry

type ActivityRegistry struct {
	Version     string     `json:"version" yaml:"version"`
	LastUpdated string     `json:"lastUpdated" yaml:"lastUpdated"`
	Activities  []Activity `json:"activities" yaml:"activities"`
}

type Activity struct {
	ID                   string                 `json:"id" yaml:"id"`
	DisplayName          string                 `json:"displayName" yaml:"displayName"`
	Description          string                 `json:"description" yaml:"description"`
	Category             string                 `json:"category" yaml:"category"`
	Version              string                 `json:"version" yaml:"version"`
	TaskType             string                 `json:"taskType" yaml:"taskType"`
	ImplementationStatus string                 `json:"implementationStatus" yaml:"implementationStatus"`
	InputSchema          map[string]interface{} `json:"inputSchema" yaml:"inputSchema"`
	OutputSchema         map[string]interface{} `json:"outputSchema" yaml:"outputSchema"`
	// ParameterSchema describes the job custom headers the worker reads.
	ParameterSchema map[string]interface{} `json:"parameterSchema,omitempty" yaml:"parameterSchema,omitempty"`
	ErrorCodes      []string               `json:"errorCodes" yaml:"errorCodes"`
	Timeout         string                 `json:"timeout" yaml:"timeout"`
	Retries         int                    `json:"retries" yaml:"retries"`
	Workflows       []string               `json:"workflows" yaml:"workflows"`
	Tags            []string               `json:"tags" yaml:"tags"`
}
