package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   []string
	}{
		{
			name:   "dedup preserves first occurrence order",
			prompt: "Hi {{a}} and {{b}} and {{a}}",
			want:   []string{"a", "b"},
		},
		{
			name:   "whitespace inside braces",
			prompt: "{{ title }} by {{author}}",
			want:   []string{"title", "author"},
		},
		{
			name:   "no placeholders",
			prompt: "static prompt",
			want:   []string{},
		},
		{
			name:   "single braces ignored",
			prompt: "{a} {{b}}",
			want:   []string{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractVariables(tt.prompt))
		})
	}
}

func TestExtractVariablesIdempotent(t *testing.T) {
	prompt := "{{x}} {{y}} {{x}} {{z}}"
	first := ExtractVariables(prompt)
	second := ExtractVariables(prompt)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"x", "y", "z"}, first)
}

func TestRender(t *testing.T) {
	prompt := "Describe {{item}} in the {{category}} category. Budget: {{budget}}"

	got := Render(prompt, map[string]string{
		"item":     "laptop stand",
		"category": "Office Supplies",
	})

	assert.Equal(t, "Describe laptop stand in the Office Supplies category. Budget: {{budget}}", got)
}

func TestRenderNoInputsLeavesPromptUntouched(t *testing.T) {
	prompt := "Hello {{name}}"
	assert.Equal(t, prompt, Render(prompt, nil))
}
