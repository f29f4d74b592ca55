// Package prompt builds the system instruction sent with every generation.
package prompt

import (
	"encoding/json"
	"strings"
)

const baseInstruction = `You are a world-class Frontend Engineer.
Generate a complete, production-ready landing page as a single HTML file.
REQUIREMENTS:
- Use Tailwind CSS via CDN.
- Use Lucide Icons via CDN.
- Use Google Fonts.
- RETURN ONLY RAW HTML.
- Do not wrap the output in markdown code fences.`

// IdeaInstruction asks for a short, format-constrained website idea.
const IdeaInstruction = "Return ONLY a short website idea. Strict format: 'Landing page for [unique topic]'. " +
	"Do not describe the design or look. Examples: 'Landing page for cat food', 'Landing page for a law firm'. " +
	"Keep it under 6 words."

// IdeaUserPrompt is the fixed user turn for idea requests.
const IdeaUserPrompt = "Give me one unique, random website idea."

// Compose returns the system instruction for a generation. When images is non-empty
// the model is told to reuse exactly those URLs.
func Compose(images []string) string {
	if len(images) == 0 {
		return baseInstruction
	}

	var b strings.Builder
	b.WriteString(baseInstruction)
	b.WriteString("\n### IMAGE ASSETS: Use these exact image URLs and do not invent others: ")

	// URLs carry query strings; keep '&' readable for the model.
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.Encode(images)

	return strings.TrimRight(b.String(), "\n")
}
