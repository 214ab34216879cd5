package call

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepo persists calls in the calls table.
type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

// UpsertIncoming inserts the call row if it does not exist yet.
// ON CONFLICT DO NOTHING keeps redelivered call-start events from clobbering
// fields a later recording event already wrote.
func (r *PostgresRepo) UpsertIncoming(ctx context.Context, c Call) error {
	now := r.clock().UTC()
	status := c.Status
	if status == "" {
		status = StatusIncoming
	}
	callerType := c.CallerType
	if callerType == "" {
		callerType = CallerTypeUnknown
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO calls (
			call_sid, tenant_id, caller_number, inbound_to,
			caller_type, call_status, answered_live, sms_sent,
			recording_duration, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, 0, $8, $8)
		ON CONFLICT (call_sid) DO NOTHING`,
		c.CallSid, c.TenantID, c.CallerNumber, c.InboundTo,
		callerType, status, c.AnsweredLive, now,
	)
	return err
}

const callColumns = `
	call_sid, tenant_id, caller_number, inbound_to,
	caller_type, call_status, answered_live, sms_sent,
	recording_url, recording_duration,
	transcript, ai_summary,
	caller_name, name_source, name_confidence,
	created_at, updated_at`

func (r *PostgresRepo) GetBySid(ctx context.Context, callSid string) (Call, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+callColumns+` FROM calls WHERE call_sid = $1`, callSid)
	c, err := scanCall(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	return c, err
}

// SaveRecordingResult is the post-processor's single update. Rerunning it with
// the same inputs is a no-op in effect.
func (r *PostgresRepo) SaveRecordingResult(ctx context.Context, u RecordingUpdate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE calls SET
			recording_url = $2,
			recording_duration = $3,
			transcript = $4,
			ai_summary = $5,
			caller_type = $6,
			caller_name = $7,
			name_source = $8,
			name_confidence = $9,
			call_status = $10,
			updated_at = $11
		WHERE call_sid = $1`,
		u.CallSid,
		u.RecordingURL, u.RecordingDuration,
		u.Transcript, u.Summary, u.CallerType,
		u.CallerName, u.NameSource, u.NameConfidence,
		StatusCompleted, r.clock().UTC(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSMSSent flips sms_sent false->true. The WHERE clause makes the flip
// race-safe under concurrent redelivery: exactly one caller sees flipped=true.
func (r *PostgresRepo) MarkSMSSent(ctx context.Context, callSid string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE calls SET sms_sent = TRUE, updated_at = $2
		WHERE call_sid = $1 AND sms_sent = FALSE`,
		callSid, r.clock().UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]Call, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+callColumns+` FROM calls WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`,
		tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCall(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCall(scan func(dest ...any) error) (Call, error) {
	var c Call
	var (
		recordingURL                       sql.NullString
		transcript, summary                sql.NullString
		callerName, nameSource             sql.NullString
		nameConfidence                     sql.NullFloat64
	)
	err := scan(
		&c.CallSid, &c.TenantID, &c.CallerNumber, &c.InboundTo,
		&c.CallerType, &c.Status, &c.AnsweredLive, &c.SMSSent,
		&recordingURL, &c.RecordingDuration,
		&transcript, &summary,
		&callerName, &nameSource, &nameConfidence,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return Call{}, err
	}
	c.RecordingURL = recordingURL.String
	if transcript.Valid {
		c.Transcript = &transcript.String
	}
	if summary.Valid {
		c.Summary = &summary.String
	}
	if callerName.Valid {
		c.CallerName = &callerName.String
	}
	if nameSource.Valid {
		c.NameSource = &nameSource.String
	}
	if nameConfidence.Valid {
		c.NameConfidence = &nameConfidence.Float64
	}
	return c, nil
}
