package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalStatus is the closed set of workflow states. PENDING is the only
// non-terminal state; every transition out of it is final.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
	StatusExpired  ApprovalStatus = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s ApprovalStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusExpired
}

// ApprovalItem is a persisted, user-actionable record awaiting resolution.
// DraftText is mutable only while the item is pending.
type ApprovalItem struct {
	ID             uuid.UUID
	Key            NaturalKey
	DraftText      string
	Status         ApprovalStatus
	Priority       Priority
	CreatedAt      time.Time
	ExpiresAt      time.Time
	ResolvedAt     *time.Time
	ResolutionNote string
	RemoteID       string
}

// Expired reports whether the approval window has elapsed at the given time.
func (a ApprovalItem) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// PublishReceipt is what the platform returns for a successful publish.
type PublishReceipt struct {
	RemoteID string
}

// NotificationChannel distinguishes the two delivery paths.
type NotificationChannel string

const (
	ChannelRealtime NotificationChannel = "realtime"
	ChannelDigest   NotificationChannel = "digest"
)

// NotificationRecord is the durable audit entry used to enforce cooldown and
// digest-interval rules across restarts.
type NotificationRecord struct {
	UserID     string
	Channel    NotificationChannel
	SentAt     time.Time
	PayloadRef string
}
