package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckParameterForInjection_CleanValue(t *testing.T) {
	result := CheckParameterForInjection("file_name", "orders.csv")
	assert.Nil(t, result)
}

func TestCheckParameterForInjection_NonString(t *testing.T) {
	assert.Nil(t, CheckParameterForInjection("threshold", 0.8))
	assert.Nil(t, CheckParameterForInjection("flag", true))
}

func TestCheckParameterForInjection_InjectionAttempt(t *testing.T) {
	result := CheckParameterForInjection("search_term", "'; DROP TABLE schema_columns--")
	require.NotNil(t, result)
	assert.True(t, result.IsSQLi)
	assert.Equal(t, "search_term", result.ParamName)
	assert.NotEmpty(t, result.Fingerprint)
}

func TestCheckAllParameters(t *testing.T) {
	params := map[string]any{
		"file_name":   "customers.csv",
		"search_term": "1' OR '1'='1",
		"threshold":   0.6,
	}
	results := CheckAllParameters(params)
	require.Len(t, results, 1)
	assert.Equal(t, "search_term", results[0].ParamName)
}

func TestCheckAllParameters_AllClean(t *testing.T) {
	params := map[string]any{
		"file1": "orders.csv",
		"file2": "customers.csv",
	}
	assert.Empty(t, CheckAllParameters(params))
}
