package httprequest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActivity(t *testing.T) {
	a := Activity()

	assert.Equal(t, "http-request", a.ID)
	assert.Equal(t, TaskType, a.TaskType)
	assert.Equal(t, "1m0s", a.Timeout)
	assert.Equal(t, 3, a.Retries)
	assert.Contains(t, a.ErrorCodes, "INVALID_URL")
	assert.Contains(t, a.ErrorCodes, "HTTP_REQUEST_TIMEOUT")
	assert.Contains(t, a.OutputSchema["required"], "results")
	assert.Equal(t, false, a.ParameterSchema["additionalProperties"])
}
