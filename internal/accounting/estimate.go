package accounting

import "unicode/utf8"

// EstimateInputTokens approximates prompt tokens at four characters per token.
func EstimateInputTokens(systemInstruction, userPrompt string) int {
	chars := utf8.RuneCountInString(systemInstruction) + utf8.RuneCountInString(userPrompt)
	return (chars + 3) / 4
}

// EstimateOutputTokens approximates completion tokens at 3.5 characters per token,
// i.e. ceil(chars / 3.5).
func EstimateOutputTokens(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (2*chars + 6) / 7
}
