package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPrompt_Variables(t *testing.T) {
	rendered, err := RenderPrompt(
		"Translate {word} into {language}",
		map[string]string{"word": "cat", "language": "French"},
		"",
	)
	require.NoError(t, err)
	assert.Equal(t, "Translate cat into French", rendered)
}

func TestRenderPrompt_Input(t *testing.T) {
	rendered, err := RenderPrompt("Summarize: {input}", nil, "a long article")
	require.NoError(t, err)
	assert.Equal(t, "Summarize: a long article", rendered)
}

func TestRenderPrompt_VariablesTakePrecedence(t *testing.T) {
	// With vars supplied, input is ignored even for the {input} slot
	rendered, err := RenderPrompt(
		"Summarize: {input}",
		map[string]string{"input": "from vars"},
		"from input",
	)
	require.NoError(t, err)
	assert.Equal(t, "Summarize: from vars", rendered)
}

func TestRenderPrompt_MissingVariableLeftVerbatim(t *testing.T) {
	rendered, err := RenderPrompt(
		"Translate {word} into {language}",
		map[string]string{"word": "cat"},
		"",
	)
	require.NoError(t, err)
	assert.Equal(t, "Translate cat into {language}", rendered)
}

func TestRenderPrompt_NoSubstitution(t *testing.T) {
	rendered, err := RenderPrompt("plain prompt", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "plain prompt", rendered)
}

func TestRenderPrompt_EmptyAfterSubstitution(t *testing.T) {
	_, err := RenderPrompt("{text}", map[string]string{"text": "  "}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestRenderPrompt_EmptyTemplate(t *testing.T) {
	_, err := RenderPrompt("", nil, "")
	assert.Error(t, err)
}
