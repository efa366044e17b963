package domain

import (
	"fmt"
	"time"
)

// SourceType distinguishes detection sources; TTL defaults differ per type.
type SourceType string

const (
	SourceTimeline SourceType = "timeline"
	SourceSearch   SourceType = "search"
)

// DefaultTTL returns the opportunity retention window for this source type.
func (s SourceType) DefaultTTL() time.Duration {
	if s == SourceSearch {
		return 48 * time.Hour
	}
	return 24 * time.Hour
}

// Priority classifies how urgently an opportunity should reach a human.
type Priority string

const (
	PriorityHigh    Priority = "high"
	PriorityMedium  Priority = "medium"
	PriorityLow     Priority = "low"
	PriorityMinimal Priority = "minimal"
)

// Weight gives priorities a total order for sorting (higher is more urgent).
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// NaturalKey identifies one piece of external content within the context that
// detected it. At most one live Opportunity/ApprovalItem exists per key.
type NaturalKey struct {
	ExternalID string
	Context    string
}

func (k NaturalKey) String() string {
	return fmt.Sprintf("%s/%s", k.Context, k.ExternalID)
}

// EngagementStats carries the raw social-proof counters of a candidate.
type EngagementStats struct {
	Likes   int
	Replies int
	Reposts int
}

// Candidate is a raw fetched item, not yet scored and never persisted as-is.
type Candidate struct {
	ExternalID  string
	Context     string
	Author      string
	Text        string
	PublishedAt time.Time
	Engagement  EngagementStats
}

// Key derives the candidate's natural key.
func (c Candidate) Key() NaturalKey {
	return NaturalKey{ExternalID: c.ExternalID, Context: c.Context}
}

// ConversationFlags mark intent signals detected in candidate text.
type ConversationFlags struct {
	IsQuestion         bool
	SeeksAdvice        bool
	SharesExperience   bool
	Controversial      bool
	AsksRecommendation bool
}

// OpportunityKind separates ordinary matches from cross-account detections,
// which bypass the usual routing thresholds.
type OpportunityKind string

const (
	KindMention      OpportunityKind = "mention"
	KindKeyword      OpportunityKind = "keyword"
	KindCrossAccount OpportunityKind = "cross_account"
)

// Opportunity is a candidate that cleared relevance scoring.
type Opportunity struct {
	Key                 NaturalKey
	Kind                OpportunityKind
	SourceType          SourceType
	Text                string
	Author              string
	MatchScore          float64
	MatchedKeywords     []string
	Flags               ConversationFlags
	EngagementPotential float64
	Priority            Priority
	PublishedAt         time.Time
	CreatedAt           time.Time
	ExpiresAt           time.Time
}
