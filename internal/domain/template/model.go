package template

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PromptTemplate is a named prompt string with {{var}} placeholders. A
// template is immutable once created; there is no update path.
type PromptTemplate struct {
	ID             uuid.UUID `db:"id"`
	Name           string    `db:"name"`
	PromptTemplate string    `db:"prompt_template"`
	Variables      []string  `db:"variables"`
	Endpoint       string    `db:"endpoint"`
	CreatedAt      time.Time `db:"created_at"`
}

var placeholderRe = regexp.MustCompile(`{{\s*(\w+)\s*}}`)

// ExtractVariables returns the distinct placeholder names in first-occurrence
// order.
func ExtractVariables(prompt string) []string {
	seen := make(map[string]struct{})
	vars := make([]string, 0)
	for _, match := range placeholderRe.FindAllStringSubmatch(prompt, -1) {
		name := match[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		vars = append(vars, name)
	}
	return vars
}

// Render substitutes placeholders by literal replacement. Placeholders with
// no matching input stay in the output verbatim; lenient on purpose.
func Render(prompt string, inputs map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(prompt, func(placeholder string) string {
		name := placeholderRe.FindStringSubmatch(placeholder)[1]
		if value, ok := inputs[name]; ok {
			return value
		}
		return placeholder
	})
}

// Normalize trims surrounding whitespace the dialog forms tend to leave in
// template names.
func Normalize(name string) string {
	return strings.TrimSpace(name)
}
