package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// ComplianceDocument is a stored compliance record exposed through share links.
type ComplianceDocument struct {
	ID           string         `db:"id" json:"id"`
	ResourceType string         `db:"resource_type" json:"resource_type"`
	Payload      types.JSONText `db:"payload" json:"payload"`
}

// ResourceRepository reads compliance documents by type and id.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository constructs a resource repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// FindByIDs returns documents of resourceType in the order of ids. Missing ids are skipped.
func (r *ResourceRepository) FindByIDs(ctx context.Context, resourceType string, ids []string) ([]ComplianceDocument, error) {
	if len(ids) == 0 {
		return []ComplianceDocument{}, nil
	}
	const query = `SELECT id, resource_type, payload FROM compliance_resources WHERE resource_type = $1 AND id = ANY($2) ORDER BY array_position($2, id)`
	docs := make([]ComplianceDocument, 0, len(ids))
	if err := r.db.SelectContext(ctx, &docs, query, resourceType, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find compliance resources: %w", err)
	}
	return docs, nil
}
