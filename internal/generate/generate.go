// Package generate produces tutor replies through the Gemini API.
package generate

import "context"

// Generator produces a model reply for a prompt. Implementations must
// return a non-empty reply or an error, never both empty.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
