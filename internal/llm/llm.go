package llm

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnavailable = errors.New("llm unavailable")

// FactProvider produces one short cultural fact about a country.
type FactProvider interface {
	CulturalFact(ctx context.Context, country string) (string, error)
}

// FactPrompt renders the fixed prompt template for a cultural fact. The
// constraints keep the output short and safe for chat channels.
func FactPrompt(country string) string {
	return fmt.Sprintf(`You are a concise cultural assistant. Provide ONE interesting, specific cultural fact about %s.
Constraints:
- 1 short paragraph (<= 60 words).
- Avoid politics, NSFW, stereotypes, or unverified claims.
- Prefer festivals, food, arts, etiquette, traditions, or language.
- If ambiguity, assume the most likely sovereign state.
- No emojis.`, country)
}
