package turnstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusValue string

func (s statusValue) String() string { return string(s) }

func TestToolFailed(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]interface{}
		want   bool
	}{
		{"nil map", nil, false},
		{"empty map", map[string]interface{}{}, false},
		{"error key with string", map[string]interface{}{"error": "bad"}, true},
		{"error key with nil", map[string]interface{}{"error": nil}, true},
		{"error key with false", map[string]interface{}{"error": false}, true},
		{"status error", map[string]interface{}{"status": "error"}, true},
		{"status ERROR", map[string]interface{}{"status": "ERROR"}, true},
		{"status Error", map[string]interface{}{"status": "Error"}, true},
		{"status stringer", map[string]interface{}{"status": statusValue("eRRoR")}, true},
		{"status ok", map[string]interface{}{"status": "ok"}, false},
		{"status with padding", map[string]interface{}{"status": " error "}, false},
		{"status failed", map[string]interface{}{"status": "failed"}, false},
		{"status nil", map[string]interface{}{"status": nil}, false},
		{"status number", map[string]interface{}{"status": 500}, false},
		{"errors key", map[string]interface{}{"errors": []string{"x"}}, false},
		{"nested error", map[string]interface{}{"result": map[string]interface{}{"error": "x"}}, false},
		{"message mentions error", map[string]interface{}{"message": "error"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToolFailed(tt.fields))
			assert.Equal(t, tt.want, ToolResult{Fields: tt.fields}.Failed())
		})
	}
}

func TestStreamErrorString(t *testing.T) {
	assert.Equal(t, "RATE_LIMIT: slow down", StreamError{Code: "RATE_LIMIT", Message: "slow down"}.Error())
	assert.Equal(t, "slow down", StreamError{Message: "slow down"}.Error())
	assert.Equal(t, "RATE_LIMIT", StreamError{Code: "RATE_LIMIT"}.Error())
	assert.Equal(t, "stream error", StreamError{}.Error())
}

func TestDiagnosePriority(t *testing.T) {
	assert.Equal(t, DiagnosticToolError, Diagnose(true, true, ""))
	assert.Equal(t, DiagnosticToolError, Diagnose(false, true, "text"))
	assert.Equal(t, DiagnosticEmptyAnswer, Diagnose(true, false, ""))
	assert.Equal(t, DiagnosticNone, Diagnose(true, false, "text"))
	assert.Equal(t, DiagnosticNone, Diagnose(false, false, ""))

	assert.Equal(t, "", DiagnosticNone.Message())
	assert.Contains(t, DiagnosticToolError.Message(), "error occurred during tool execution")
	assert.Contains(t, DiagnosticEmptyAnswer.Message(), "no text response")
	assert.Equal(t, "tool_error", DiagnosticToolError.String())
}
