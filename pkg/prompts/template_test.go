package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	t.Parallel()

	res, err := RenderTemplate("Hello, {{.who}}!", TemplateFormatGoTemplate, map[string]any{"who": "world"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", res)

	res, err = RenderTemplate("Hello, {{ who }}!", TemplateFormatJinja2, map[string]any{"who": "world"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", res)

	_, err = RenderTemplate("Hello", TemplateFormat("mustache"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTemplateFormat)
}

func TestCheckValidTemplate(t *testing.T) {
	t.Parallel()

	err := CheckValidTemplate("Hello, {{.who}}!", TemplateFormatGoTemplate, []string{"who"})
	require.NoError(t, err)

	err = CheckValidTemplate("Hello, {{.who!", TemplateFormatGoTemplate, []string{"who"})
	require.Error(t, err)

	err = CheckValidTemplate("Hello", TemplateFormat("mustache"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTemplateFormat)
}
