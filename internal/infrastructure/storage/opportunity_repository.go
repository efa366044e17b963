package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"OpportunityScanner/internal/domain"
	"OpportunityScanner/internal/ports"
)

// OpportunityRepository persists scored opportunities in Postgres.
type OpportunityRepository struct {
	db *sql.DB
}

var _ ports.OpportunityRepository = (*OpportunityRepository)(nil)

// NewOpportunityRepository wires a sql.DB implementation.
func NewOpportunityRepository(db *sql.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

// CreateIfAbsent inserts the opportunity unless its natural key is already
// live. ON CONFLICT DO NOTHING plus the affected-row count turns a lost
// insert race into an explicit domain.ErrDuplicate.
func (r *OpportunityRepository) CreateIfAbsent(ctx context.Context, opp domain.Opportunity) error {
	query := `INSERT INTO opportunities (
	              external_id, detecting_context, kind, source_type, author, content,
	              match_score, matched_keywords,
	              is_question, seeks_advice, shares_experience, controversial, asks_recommendation,
	              engagement_potential, priority, published_at, created_at, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	          ON CONFLICT (external_id, detecting_context) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		opp.Key.ExternalID,
		opp.Key.Context,
		string(opp.Kind),
		string(opp.SourceType),
		opp.Author,
		opp.Text,
		opp.MatchScore,
		pq.StringArray(opp.MatchedKeywords),
		opp.Flags.IsQuestion,
		opp.Flags.SeeksAdvice,
		opp.Flags.SharesExperience,
		opp.Flags.Controversial,
		opp.Flags.AsksRecommendation,
		opp.EngagementPotential,
		string(opp.Priority),
		opp.PublishedAt,
		opp.CreatedAt,
		opp.ExpiresAt,
	)
	if err != nil {
		return &domain.StorageError{Op: "insert opportunity", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "insert opportunity", Err: err}
	}
	if affected == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

// SweepExpired removes opportunities past their TTL. Idempotent; safe to
// run concurrently with inserts and other sweeps.
func (r *OpportunityRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM opportunities WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, &domain.StorageError{Op: "sweep opportunities", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, &domain.StorageError{Op: "sweep opportunities", Err: err}
	}
	return affected, nil
}
