package scoring

import (
	"regexp"
	"strings"

	"OpportunityScanner/internal/domain"
)

var (
	interrogativeStart = regexp.MustCompile(`(?i)^(who|what|when|where|why|how|does|do|is|are|can|could|should|would|anyone|anybody)\b`)

	advicePattern = regexp.MustCompile(`(?i)\b(any advice|advice on|advice for|help me|how do i|how should i|struggling with|struggling to|not sure how|not sure if|stuck on)\b`)

	experiencePattern = regexp.MustCompile(`(?i)\b(i built|i made|we built|we made|i have been|i've been|my experience|in my experience|i tried|i just shipped|i just launched|lessons learned|just finished)\b`)

	controversialPattern = regexp.MustCompile(`(?i)\b(unpopular opinion|hot take|overrated|underrated|am i the only one|fight me|change my mind|is dead|is a scam)\b`)

	recommendationPattern = regexp.MustCompile(`(?i)\b(recommend|recommendation|recommendations|suggestion|suggestions|alternative to|alternatives to|which one|what should i use|best tool|best library|best framework|best way to)\b`)
)

// DetectFlags inspects candidate text for conversation-intent signals.
// Pure; safe for concurrent use.
func DetectFlags(text string) domain.ConversationFlags {
	return domain.ConversationFlags{
		IsQuestion:         strings.Contains(text, "?") || interrogativeStart.MatchString(strings.TrimSpace(text)),
		SeeksAdvice:        advicePattern.MatchString(text),
		SharesExperience:   experiencePattern.MatchString(text),
		Controversial:      controversialPattern.MatchString(text),
		AsksRecommendation: recommendationPattern.MatchString(text),
	}
}
