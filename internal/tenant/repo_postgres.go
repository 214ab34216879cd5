package tenant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"voicedesk-platform/internal/hours"
)

// PostgresRepo reads tenants from the tenants table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const tenantColumns = `
	id, email, inbound_number, plan, timezone,
	business_hours,
	business_hours_enabled, business_hours_start, business_hours_end,
	tts_voice_gender, voicemail_token,
	voicemail_in_mode, voicemail_in_tts, voicemail_in_audio_path,
	voicemail_out_mode, voicemail_out_tts, voicemail_out_audio_path,
	voicemail_type, voicemail_message, ooh_voicemail_type, ooh_voicemail_message,
	created_at`

func (r *PostgresRepo) GetByInboundNumber(ctx context.Context, number string) (Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+tenantColumns+` FROM tenants WHERE inbound_number = $1`, number)
	return scanTenant(row)
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

func scanTenant(row *sql.Row) (Tenant, error) {
	var t Tenant
	var (
		email, timezone, gender, token            sql.NullString
		rawHours                                  []byte
		legacyEnabled                             sql.NullBool
		legacyStart, legacyEnd                    sql.NullString
		inMode, inTTS, inPath                     sql.NullString
		outMode, outTTS, outPath                  sql.NullString
		oldInMode, oldInText, oldOutMode, oldText sql.NullString
	)

	err := row.Scan(
		&t.ID, &email, &t.InboundNumber, &t.Plan, &timezone,
		&rawHours,
		&legacyEnabled, &legacyStart, &legacyEnd,
		&gender, &token,
		&inMode, &inTTS, &inPath,
		&outMode, &outTTS, &outPath,
		&oldInMode, &oldInText, &oldOutMode, &oldText,
		&t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Tenant{}, ErrNotFound
	}
	if err != nil {
		return Tenant{}, err
	}

	t.Email = email.String
	t.Timezone = timezone.String
	t.TTSVoiceGender = gender.String
	t.PlaybackToken = token.String
	t.BusinessHours = parseBusinessHours(rawHours)
	t.LegacyHours = hours.LegacyWindow{
		Enabled: legacyEnabled.Bool,
		Start:   legacyStart.String,
		End:     legacyEnd.String,
	}
	t.Greeting = GreetingFields{
		InMode:        inMode.String,
		InTTS:         inTTS.String,
		InAudioPath:   inPath.String,
		OutMode:       outMode.String,
		OutTTS:        outTTS.String,
		OutAudioPath:  outPath.String,
		LegacyInMode:  oldInMode.String,
		LegacyInText:  oldInText.String,
		LegacyOutMode: oldOutMode.String,
		LegacyOutText: oldText.String,
	}
	return t, nil
}

// parseBusinessHours tolerates both jsonb objects and double-encoded JSON
// strings; older portal versions saved the schedule stringified.
func parseBusinessHours(raw []byte) hours.WeeklySchedule {
	if len(raw) == 0 {
		return nil
	}
	var sched hours.WeeklySchedule
	if err := json.Unmarshal(raw, &sched); err == nil && len(sched) > 0 {
		return sched
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		if err := json.Unmarshal([]byte(s), &sched); err == nil && len(sched) > 0 {
			return sched
		}
	}
	return nil
}
