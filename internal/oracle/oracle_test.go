package oracle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_FencedObject(t *testing.T) {
	var got struct {
		Name string `json:"course_name"`
	}
	err := Decode("```json\n{\"course_name\": \"程序设计基础\"}\n```", &got)
	require.NoError(t, err)
	assert.Equal(t, "程序设计基础", got.Name)
}

func TestDecode_ArrayWithProse(t *testing.T) {
	var got []map[string]any
	err := Decode("以下是结果：\n[{\"major\": \"软件工程\"}, {\"major\": \"[x]\"}]\n以上。", &got)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "[x]", got[1]["major"])
}

func TestDecode_Malformed(t *testing.T) {
	var got map[string]any
	err := Decode("not json at all", &got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))

	err = Decode("   ", &got)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestStripCodeBlock(t *testing.T) {
	tests := map[string]string{
		"```json\n[]\n```": "[]",
		"```\n{}\n```":     "{}",
		"  {\"a\":1}  ":    `{"a":1}`,
		"```json{}```":     "{}",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripCodeBlock(in), "input %q", in)
	}
}

func TestFindFirstJSON(t *testing.T) {
	assert.Equal(t, `{"a":"}"}`, FindFirstJSON(`x {"a":"}"} y`))
	assert.Equal(t, `[1,[2]]`, FindFirstJSON(`answer: [1,[2]] done`))
	assert.Equal(t, "", FindFirstJSON(`{"a": [}`))
	assert.Equal(t, "", FindFirstJSON("none"))
}

func TestStatusError_Retryable(t *testing.T) {
	assert.True(t, (&StatusError{StatusCode: 429}).Retryable())
	assert.True(t, (&StatusError{StatusCode: 503}).Retryable())
	assert.False(t, (&StatusError{StatusCode: 400}).Retryable())
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 4, EstimateTokens("课程目标"))
	assert.Equal(t, 1, EstimateTokens(" "))
	assert.Greater(t, EstimateTokens("课程 course goals"), 2)
}

func TestRequests(t *testing.T) {
	assert.True(t, TableRequest("x").JSON)
	assert.False(t, SectionRequest("x").JSON, "array answers cannot use object mode")
	assert.Equal(t, "relations", RelationsRequest("x").Task)
	assert.InDelta(t, 0.1, IdentityRequest("x").Temperature, 1e-6)
}
