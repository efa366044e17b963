package scoring

import (
	"strings"
	"time"

	"OpportunityScanner/internal/domain"
)

const (
	phraseWeight   = 2.0
	wordWeight     = 1.0
	coverageWeight = 0.8
	densityWeight  = 0.2
	maxDensity     = 0.5

	questionBoost       = 0.20
	adviceBoost         = 0.15
	experienceBoost     = 0.10
	recommendationBoost = 0.15
	maxSocialBoost      = 0.10

	likesPerBoost   = 100.0
	repliesPerBoost = 20.0

	highThreshold   = 0.8
	mediumThreshold = 0.5
	lowThreshold    = 0.3
)

// MatchResult carries the relevance score and the keywords that produced it.
type MatchResult struct {
	Score   float64
	Matched []string
}

// Match scores text against a keyword set. Exact-phrase hits weigh 2.0,
// individual-word overlaps weigh 1.0; the score blends keyword coverage with
// a density bonus and is clamped to [0,1]. Deterministic and side-effect free.
func Match(text string, keywords []string) MatchResult {
	if len(keywords) == 0 {
		return MatchResult{}
	}

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return MatchResult{}
	}

	normText := " " + strings.Join(tokens, " ") + " "
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		tokenSet[tok] = struct{}{}
	}

	var raw float64
	matched := make([]string, 0, len(keywords))

	for _, kw := range keywords {
		normKw := Normalize(kw)
		if normKw == "" {
			continue
		}

		if strings.Contains(normText, " "+normKw+" ") {
			raw += phraseWeight
			matched = append(matched, kw)
			continue
		}

		for _, word := range strings.Fields(normKw) {
			if _, ok := tokenSet[word]; ok {
				raw += wordWeight
				matched = append(matched, kw)
				break
			}
		}
	}

	if len(matched) == 0 {
		return MatchResult{}
	}

	coverage := float64(len(matched)) / float64(len(keywords))
	density := raw / float64(len(tokens)) * 100
	if density > maxDensity {
		density = maxDensity
	}

	return MatchResult{
		Score:   clamp(coverage*coverageWeight + density*densityWeight),
		Matched: matched,
	}
}

// EngagementPotential combines the match score with intent and social-proof
// boosts, clamped to [0,1].
func EngagementPotential(matchScore float64, flags domain.ConversationFlags, stats domain.EngagementStats) float64 {
	v := matchScore
	if flags.IsQuestion {
		v += questionBoost
	}
	if flags.SeeksAdvice {
		v += adviceBoost
	}
	if flags.SharesExperience {
		v += experienceBoost
	}
	if flags.AsksRecommendation {
		v += recommendationBoost
	}
	v += capBoost(float64(stats.Likes) / likesPerBoost)
	v += capBoost(float64(stats.Replies) / repliesPerBoost)
	return clamp(v)
}

// ClassifyPriority maps the average of match score and engagement potential
// onto the priority scale.
func ClassifyPriority(matchScore, engagement float64) domain.Priority {
	avg := (matchScore + engagement) / 2
	switch {
	case avg >= highThreshold:
		return domain.PriorityHigh
	case avg >= mediumThreshold:
		return domain.PriorityMedium
	case avg >= lowThreshold:
		return domain.PriorityLow
	default:
		return domain.PriorityMinimal
	}
}

// Scorer evaluates candidates against configured thresholds.
type Scorer struct {
	minTextLength int
	scoreFloor    float64
}

// NewScorer builds a scorer; zero thresholds fall back to sane minimums.
func NewScorer(minTextLength int, scoreFloor float64) *Scorer {
	if minTextLength <= 0 {
		minTextLength = 10
	}
	if scoreFloor <= 0 {
		scoreFloor = 0.02
	}
	return &Scorer{minTextLength: minTextLength, scoreFloor: scoreFloor}
}

// Evaluate turns a candidate into an Opportunity. The boolean is false when
// the candidate is too short or scores below the floor; such candidates are
// discarded before any further processing.
func (s *Scorer) Evaluate(c domain.Candidate, keywords []string, kind domain.OpportunityKind, source domain.SourceType, ttl time.Duration, now time.Time) (domain.Opportunity, bool) {
	if len(strings.TrimSpace(c.Text)) < s.minTextLength {
		return domain.Opportunity{}, false
	}

	match := Match(c.Text, keywords)
	if match.Score < s.scoreFloor {
		return domain.Opportunity{}, false
	}

	flags := DetectFlags(c.Text)
	engagement := EngagementPotential(match.Score, flags, c.Engagement)

	return domain.Opportunity{
		Key:                 c.Key(),
		Kind:                kind,
		SourceType:          source,
		Text:                c.Text,
		Author:              c.Author,
		MatchScore:          match.Score,
		MatchedKeywords:     match.Matched,
		Flags:               flags,
		EngagementPotential: engagement,
		Priority:            ClassifyPriority(match.Score, engagement),
		PublishedAt:         c.PublishedAt,
		CreatedAt:           now,
		ExpiresAt:           now.Add(ttl),
	}, true
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func capBoost(v float64) float64 {
	if v > maxSocialBoost {
		return maxSocialBoost
	}
	return v
}
