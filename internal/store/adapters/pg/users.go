package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

type userRepo struct{ pool *pgxpool.Pool }

const userColumns = `
	id, tenant_id, email, phone, display_name, password_hash, profile, roles, status,
	email_verified, verify_token_hash, verify_expires_at, reset_token_hash, reset_expires_at,
	phone_verified, sms_code_hash, sms_expires_at,
	magic_token_hash, magic_expires_at,
	social, failed_attempts, last_failure_at, last_success_at, last_ip,
	created_at, updated_at`

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func scanUser(row pgx.Row) (*repository.User, error) {
	var (
		u                                     repository.User
		email, phone, pwd, lastIP             *string
		verifyHash, resetHash, smsHash, magic *string
		verifyExp, resetExp, smsExp, magicExp *time.Time
		lastFailure, lastSuccess              *time.Time
		profile, social                       []byte
		status                                string
	)
	err := row.Scan(
		&u.ID, &u.TenantID, &email, &phone, &u.DisplayName, &pwd, &profile, &u.Roles, &status,
		&u.Methods.EmailPassword.Verified, &verifyHash, &verifyExp, &resetHash, &resetExp,
		&u.Methods.PhoneSMS.Verified, &smsHash, &smsExp,
		&magic, &magicExp,
		&social, &u.Security.FailedAttempts, &lastFailure, &lastSuccess, &lastIP,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Email, u.Phone, u.PasswordHash = deref(email), deref(phone), deref(pwd)
	u.Status = repository.UserStatus(status)
	u.Methods.EmailPassword.VerificationHash = deref(verifyHash)
	u.Methods.EmailPassword.VerificationExpiry = derefTime(verifyExp)
	u.Methods.EmailPassword.ResetHash = deref(resetHash)
	u.Methods.EmailPassword.ResetExpiry = derefTime(resetExp)
	u.Methods.PhoneSMS.CodeHash = deref(smsHash)
	u.Methods.PhoneSMS.CodeExpiry = derefTime(smsExp)
	u.Methods.MagicLink.TokenHash = deref(magic)
	u.Methods.MagicLink.Expiry = derefTime(magicExp)
	u.Security.LastFailure = derefTime(lastFailure)
	u.Security.LastSuccess = derefTime(lastSuccess)
	u.Security.LastIP = deref(lastIP)

	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &u.Profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}
	if len(social) > 0 {
		if err := json.Unmarshal(social, &u.Methods.Social); err != nil {
			return nil, fmt.Errorf("decode social: %w", err)
		}
	}
	return &u, nil
}

func (r *userRepo) queryOne(ctx context.Context, op, where string, args ...any) (*repository.User, error) {
	query := `SELECT ` + userColumns + ` FROM app_user WHERE ` + where + ` LIMIT 1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, tenantID, userID string) (*repository.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, repository.ErrNotFound
	}
	return r.queryOne(ctx, "get user by id", `tenant_id = $1 AND id = $2`, tenantID, userID)
}

func (r *userRepo) FindByEmail(ctx context.Context, tenantID, email string) (*repository.User, error) {
	return r.queryOne(ctx, "find user by email", `tenant_id = $1 AND email = $2 AND status <> 'deleted'`, tenantID, email)
}

func (r *userRepo) FindByPhone(ctx context.Context, tenantID, phone string) (*repository.User, error) {
	return r.queryOne(ctx, "find user by phone", `tenant_id = $1 AND phone = $2 AND status <> 'deleted'`, tenantID, phone)
}

func (r *userRepo) FindBySocial(ctx context.Context, tenantID, provider, externalID string) (*repository.User, error) {
	return r.queryOne(ctx, "find user by social",
		`tenant_id = $1 AND social -> $2 ->> 'id' = $3 AND status <> 'deleted'`, tenantID, provider, externalID)
}

func (r *userRepo) DisplayNameExists(ctx context.Context, tenantID, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM app_user WHERE tenant_id = $1 AND display_name = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, tenantID, name).Scan(&exists); err != nil {
		return false, mapErr("display name exists", err)
	}
	return exists, nil
}

func encodeJSON(v any, empty string) ([]byte, error) {
	if v == nil {
		return []byte(empty), nil
	}
	return json.Marshal(v)
}

func (r *userRepo) Insert(ctx context.Context, u *repository.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = repository.StatusActive
	}
	if u.Roles == nil {
		u.Roles = []string{}
	}
	profile, err := encodeJSON(u.Profile, "{}")
	if err != nil {
		return fmt.Errorf("pg: encode profile: %w", err)
	}
	var social []byte
	if u.Methods.Social == nil {
		social = []byte("{}")
	} else if social, err = json.Marshal(u.Methods.Social); err != nil {
		return fmt.Errorf("pg: encode social: %w", err)
	}

	const query = `
		INSERT INTO app_user (
			id, tenant_id, email, phone, display_name, password_hash, profile, roles, status,
			email_verified, phone_verified, social
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`
	err = r.pool.QueryRow(ctx, query,
		u.ID, u.TenantID, nullIfEmpty(u.Email), nullIfEmpty(u.Phone), u.DisplayName, nullIfEmpty(u.PasswordHash),
		profile, u.Roles, string(u.Status),
		u.Methods.EmailPassword.Verified, u.Methods.PhoneSMS.Verified, social,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapErr("insert user", err)
}

func (r *userRepo) Update(ctx context.Context, u *repository.User) error {
	profile, err := encodeJSON(u.Profile, "{}")
	if err != nil {
		return fmt.Errorf("pg: encode profile: %w", err)
	}
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	const query = `
		UPDATE app_user
		SET display_name = $3, profile = $4, roles = $5, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
		RETURNING updated_at`
	err = r.pool.QueryRow(ctx, query, u.TenantID, u.ID, u.DisplayName, profile, roles).Scan(&u.UpdatedAt)
	return mapErr("update user", err)
}

// SetPasswordHash es un compare-and-swap sobre password_hash. Sin filas
// afectadas distingue usuario inexistente de hash cambiado.
func (r *userRepo) SetPasswordHash(ctx context.Context, tenantID, userID, expectedHash, newHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE app_user SET password_hash = $4, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND password_hash IS NOT DISTINCT FROM $3`,
		tenantID, userID, nullIfEmpty(expectedHash), newHash)
	if err != nil {
		return mapErr("set password hash", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM app_user WHERE tenant_id = $1 AND id = $2)`, tenantID, userID,
	).Scan(&exists); err != nil {
		return mapErr("set password hash", err)
	}
	if exists {
		return repository.ErrConflict
	}
	return repository.ErrNotFound
}

func (r *userRepo) ChangePhone(ctx context.Context, tenantID, userID, phone, codeHash string, expiry time.Time) error {
	return r.exec(ctx, "change phone", `
		UPDATE app_user
		SET phone = $3, phone_verified = FALSE, sms_code_hash = $4, sms_expires_at = $5, updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, userID, phone, codeHash, expiry)
}

// exec corre un UPDATE por id y traduce 0 filas a ErrNotFound.
func (r *userRepo) exec(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) SetStatus(ctx context.Context, tenantID, userID string, status repository.UserStatus) error {
	return r.exec(ctx, "set status",
		`UPDATE app_user SET status = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
		tenantID, userID, string(status))
}

func (r *userRepo) IncrementFailures(ctx context.Context, tenantID, userID, ip string, at time.Time) (int, error) {
	// Incremento atómico en una sola sentencia: sin read-modify-write.
	const query = `
		UPDATE app_user
		SET failed_attempts = failed_attempts + 1, last_failure_at = $3,
		    last_ip = COALESCE($4, last_ip), updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
		RETURNING failed_attempts`
	var n int
	if err := r.pool.QueryRow(ctx, query, tenantID, userID, at, nullIfEmpty(ip)).Scan(&n); err != nil {
		return 0, mapErr("increment failures", err)
	}
	return n, nil
}

func (r *userRepo) RecordSuccess(ctx context.Context, tenantID, userID, ip string, at time.Time) error {
	return r.exec(ctx, "record success", `
		UPDATE app_user
		SET failed_attempts = 0, last_success_at = $3, last_ip = COALESCE($4, last_ip), updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, userID, at, nullIfEmpty(ip))
}

func (r *userRepo) ResetFailures(ctx context.Context, tenantID, userID string) error {
	return r.exec(ctx, "reset failures",
		`UPDATE app_user SET failed_attempts = 0, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
		tenantID, userID)
}

func (r *userRepo) SetMagicLink(ctx context.Context, tenantID, userID, tokenHash string, expiry time.Time) error {
	return r.exec(ctx, "set magic link",
		`UPDATE app_user SET magic_token_hash = $3, magic_expires_at = $4, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
		tenantID, userID, tokenHash, expiry)
}

// consume ejecuta un UPDATE condicional (token y expiración en el WHERE).
// Si no afectó filas distingue vencido de inexistente con un SELECT aparte;
// el camino exitoso es solo el UPDATE, así dos consumidores nunca ganan ambos.
func (r *userRepo) consume(ctx context.Context, op, update string, updateArgs []any, probe string, probeArgs []any) (*repository.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, update+` RETURNING `+userColumns, updateArgs...))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapErr(op, err)
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM app_user WHERE `+probe+`)`, probeArgs...).Scan(&exists); err != nil {
		return nil, mapErr(op, err)
	}
	if exists {
		return nil, repository.ErrExpired
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) ConsumeMagicLink(ctx context.Context, tenantID, tokenHash string, now time.Time) (*repository.User, error) {
	return r.consume(ctx, "consume magic link",
		`UPDATE app_user SET magic_token_hash = NULL, magic_expires_at = NULL, updated_at = NOW()
		 WHERE tenant_id = $1 AND magic_token_hash = $2 AND status <> 'deleted' AND magic_expires_at > $3`,
		[]any{tenantID, tokenHash, now},
		`tenant_id = $1 AND magic_token_hash = $2 AND status <> 'deleted'`,
		[]any{tenantID, tokenHash})
}

func (r *userRepo) SetSMSCode(ctx context.Context, tenantID, userID, codeHash string, expiry time.Time) error {
	return r.exec(ctx, "set sms code",
		`UPDATE app_user SET sms_code_hash = $3, sms_expires_at = $4, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
		tenantID, userID, codeHash, expiry)
}

func (r *userRepo) ConsumeSMSCode(ctx context.Context, tenantID, phone, codeHash string, now time.Time) (*repository.User, error) {
	return r.consume(ctx, "consume sms code",
		`UPDATE app_user SET sms_code_hash = NULL, sms_expires_at = NULL, phone_verified = TRUE, updated_at = NOW()
		 WHERE tenant_id = $1 AND phone = $2 AND sms_code_hash = $3 AND status <> 'deleted' AND sms_expires_at > $4`,
		[]any{tenantID, phone, codeHash, now},
		`tenant_id = $1 AND phone = $2 AND sms_code_hash = $3 AND status <> 'deleted'`,
		[]any{tenantID, phone, codeHash})
}

func (r *userRepo) SetVerificationToken(ctx context.Context, tenantID, userID, tokenHash string, expiry time.Time) error {
	return r.exec(ctx, "set verification token",
		`UPDATE app_user SET verify_token_hash = $3, verify_expires_at = $4, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
		tenantID, userID, tokenHash, expiry)
}

func (r *userRepo) ConsumeVerificationToken(ctx context.Context, tenantID, tokenHash string, now time.Time) (*repository.User, error) {
	return r.consume(ctx, "consume verification token",
		`UPDATE app_user SET verify_token_hash = NULL, verify_expires_at = NULL, email_verified = TRUE, updated_at = NOW()
		 WHERE tenant_id = $1 AND verify_token_hash = $2 AND status <> 'deleted' AND verify_expires_at > $3`,
		[]any{tenantID, tokenHash, now},
		`tenant_id = $1 AND verify_token_hash = $2 AND status <> 'deleted'`,
		[]any{tenantID, tokenHash})
}

func (r *userRepo) SetResetToken(ctx context.Context, tenantID, userID, tokenHash string, expiry time.Time) error {
	return r.exec(ctx, "set reset token",
		`UPDATE app_user SET reset_token_hash = $3, reset_expires_at = $4, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
		tenantID, userID, tokenHash, expiry)
}

func (r *userRepo) ConsumeResetToken(ctx context.Context, tenantID, tokenHash string, now time.Time, newPasswordHash string) (*repository.User, error) {
	return r.consume(ctx, "consume reset token",
		`UPDATE app_user SET reset_token_hash = NULL, reset_expires_at = NULL, password_hash = $3,
		        failed_attempts = 0, updated_at = NOW()
		 WHERE tenant_id = $1 AND reset_token_hash = $2 AND status <> 'deleted' AND reset_expires_at > $4`,
		[]any{tenantID, tokenHash, newPasswordHash, now},
		`tenant_id = $1 AND reset_token_hash = $2 AND status <> 'deleted'`,
		[]any{tenantID, tokenHash})
}

func (r *userRepo) LinkSocial(ctx context.Context, tenantID, userID, provider string, ident repository.SocialIdentity) error {
	doc, err := json.Marshal(ident)
	if err != nil {
		return fmt.Errorf("pg: encode social identity: %w", err)
	}
	return r.exec(ctx, "link social",
		`UPDATE app_user SET social = jsonb_set(social, ARRAY[$3::text], $4::jsonb, true), updated_at = NOW()
		 WHERE tenant_id = $1 AND id = $2`,
		tenantID, userID, provider, doc)
}
