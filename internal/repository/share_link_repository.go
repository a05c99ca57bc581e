package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/compliance-links-api/internal/models"
)

// ErrDuplicateToken signals a token collision on insert; callers retry with a new token.
var ErrDuplicateToken = errors.New("share link token already exists")

const uniqueViolation = "23505"

const shareLinkColumns = `id, token, resource_type, resource_ids, created_by, created_at, expires_at, password_hash, one_time_use, max_access_count, access_count, revoked, revoked_at, watermark, metadata`

// ShareLinkRepository persists share links and their access ledger in PostgreSQL.
type ShareLinkRepository struct {
	db *sqlx.DB
}

// NewShareLinkRepository creates a new repository.
func NewShareLinkRepository(db *sqlx.DB) *ShareLinkRepository {
	return &ShareLinkRepository{db: db}
}

// Insert stores a new share link.
func (r *ShareLinkRepository) Insert(ctx context.Context, link *models.ShareLink) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if len(link.Metadata) == 0 {
		link.Metadata = []byte(`{}`)
	}
	const query = `INSERT INTO share_links (id, token, resource_type, resource_ids, created_by, created_at, expires_at, password_hash, one_time_use, max_access_count, access_count, revoked, watermark, metadata) VALUES (:id, :token, :resource_type, :resource_ids, :created_by, :created_at, :expires_at, :password_hash, :one_time_use, :max_access_count, :access_count, :revoked, :watermark, :metadata)`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && strings.Contains(pqErr.Constraint, "token") {
			return ErrDuplicateToken
		}
		return fmt.Errorf("insert share link: %w", err)
	}
	return nil
}

// FindByToken returns a link by its public token.
func (r *ShareLinkRepository) FindByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	query := `SELECT ` + shareLinkColumns + ` FROM share_links WHERE token = $1 LIMIT 1`
	var link models.ShareLink
	if err := r.db.GetContext(ctx, &link, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find share link by token: %w", err)
	}
	return &link, nil
}

// ClaimAccess atomically consumes one unit of access and records the
// successful attempt in the same transaction. It returns the new access count
// and false when the link is no longer redeemable at now.
func (r *ShareLinkRepository) ClaimAccess(ctx context.Context, token string, now time.Time, record *models.AccessRecord) (int, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const claim = `UPDATE share_links SET access_count = access_count + 1
WHERE token = $1 AND revoked = FALSE AND expires_at > $2
AND access_count < CASE WHEN one_time_use THEN 1 ELSE COALESCE(max_access_count, 2147483647) END
RETURNING id, access_count`

	var claimed struct {
		ID          string `db:"id"`
		AccessCount int    `db:"access_count"`
	}
	if err := tx.GetContext(ctx, &claimed, claim, token, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("claim share link access: %w", err)
	}

	record.LinkID = claimed.ID
	record.Success = true
	record.FailureReason = nil
	if err := insertAccessRecord(ctx, tx, record); err != nil {
		return 0, false, err
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit claim: %w", err)
	}
	return claimed.AccessCount, true, nil
}

// SetRevoked marks the link revoked. Repeated calls keep the first revocation time.
func (r *ShareLinkRepository) SetRevoked(ctx context.Context, token string, revokedAt time.Time) error {
	const query = `UPDATE share_links SET revoked = TRUE, revoked_at = COALESCE(revoked_at, $2) WHERE token = $1`
	res, err := r.db.ExecContext(ctx, query, token, revokedAt)
	if err != nil {
		return fmt.Errorf("revoke share link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke share link rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AppendAccessLog writes a single access ledger entry.
func (r *ShareLinkRepository) AppendAccessLog(ctx context.Context, record *models.AccessRecord) error {
	return insertAccessRecord(ctx, r.db, record)
}

// ListAccessLogs returns the ledger for a link ordered by attempt time.
func (r *ShareLinkRepository) ListAccessLogs(ctx context.Context, linkID string) ([]models.AccessRecord, error) {
	const query = `SELECT id, link_id, accessed_at, ip_address, user_agent, success, failure_reason FROM share_link_access_logs WHERE link_id = $1 ORDER BY accessed_at ASC, id ASC`
	records := make([]models.AccessRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, linkID); err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}
	return records, nil
}

// List returns links matching the filter with total count.
func (r *ShareLinkRepository) List(ctx context.Context, filter models.ShareLinkFilter) ([]models.ShareLink, int, error) {
	baseQuery := `FROM share_links WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}
	if filter.ResourceType != "" {
		conditions = append(conditions, fmt.Sprintf("resource_type = $%d", len(args)+1))
		args = append(args, filter.ResourceType)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", shareLinkColumns, baseQuery, pageSize, offset)
	links := make([]models.ShareLink, 0)
	if err := r.db.SelectContext(ctx, &links, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list share links: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count share links: %w", err)
	}
	return links, total, nil
}

func insertAccessRecord(ctx context.Context, exec sqlx.ExtContext, record *models.AccessRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.AccessedAt.IsZero() {
		record.AccessedAt = time.Now().UTC()
	}
	const query = `INSERT INTO share_link_access_logs (id, link_id, accessed_at, ip_address, user_agent, success, failure_reason) VALUES (:id, :link_id, :accessed_at, :ip_address, :user_agent, :success, :failure_reason)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, record); err != nil {
		return fmt.Errorf("append access log: %w", err)
	}
	return nil
}
