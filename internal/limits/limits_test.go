package limits

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAnalysisLimits(t *testing.T) {
	limits := DefaultAnalysisLimits()

	assert.Equal(t, 2000, limits.MaxResponseBodyForLLM, "Response body cap should be 2000 chars")
	assert.Equal(t, 20, limits.MaxFindingsInPrompt, "Only first 20 findings go to the prompt")
	assert.Equal(t, 10, limits.MaxCandidateFiles, "Candidate file search is capped at 10")
	assert.Equal(t, 3, limits.MaxInspectedFiles, "Only 3 candidate files are read")
	assert.Equal(t, 10_000, limits.MaxReportChars)
	assert.Equal(t, 5000, limits.MaxRawContentChars)
	assert.Equal(t, int64(10*1024*1024), limits.MaxFileSize)
}

func TestNewLimiter(t *testing.T) {
	limiter := NewLimiter(nil)
	require.NotNil(t, limiter, "Limiter should not be nil")
	require.NotNil(t, limiter.limits, "Limits should not be nil")

	custom := DefaultAnalysisLimits()
	custom.MaxFindingsInPrompt = 5

	limiter = NewLimiter(custom)
	assert.Equal(t, 5, limiter.GetLimits().MaxFindingsInPrompt)
}

func TestLimiter_UpdateLimits(t *testing.T) {
	limiter := NewLimiter(nil)

	valid := DefaultAnalysisLimits()
	valid.MaxCandidateFiles = 20

	err := limiter.UpdateLimits(valid)
	assert.NoError(t, err, "Valid limits should be updated without error")
	assert.Equal(t, 20, limiter.GetLimits().MaxCandidateFiles)

	invalid := DefaultAnalysisLimits()
	invalid.MaxResponseBodyForLLM = -1

	err = limiter.UpdateLimits(invalid)
	require.Error(t, err, "Invalid limits should return error")
	assert.Contains(t, err.Error(), "MaxResponseBodyForLLM must be positive")
	assert.Equal(t, 20, limiter.GetLimits().MaxCandidateFiles, "Failed update must keep previous limits")
}

func TestLimiter_ValidateLimits(t *testing.T) {
	limiter := NewLimiter(nil)
	assert.NoError(t, limiter.ValidateLimits(), "Default limits should be valid")

	limiter.limits.MaxInspectedFiles = 50
	err := limiter.ValidateLimits()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds MaxCandidateFiles")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "пр", Truncate("привет", 2), "Truncate must count runes, not bytes")
}

func TestTruncateWithMarker(t *testing.T) {
	body := strings.Repeat("x", 30)

	out := TruncateWithMarker(body, 10)
	assert.True(t, strings.HasPrefix(out, strings.Repeat("x", 10)))
	assert.Contains(t, out, "[TRUNCATED: 20 chars omitted]")

	assert.Equal(t, "short", TruncateWithMarker("short", 10))
}
