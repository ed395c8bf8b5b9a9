package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

type userRepo struct{ c *Connection }

// lock toma el mutex respetando cancelación previa del contexto.
func (r *userRepo) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.c.mu.Lock()
	return nil
}

func (r *userRepo) unlock() { r.c.mu.Unlock() }

// findLocked recorre usuarios no borrados del tenant. Requiere el mutex.
func (r *userRepo) findLocked(tenantID string, match func(*repository.User) bool) *repository.User {
	for _, u := range r.c.users {
		if u.TenantID != tenantID || u.Status == repository.StatusDeleted {
			continue
		}
		if match(u) {
			return u
		}
	}
	return nil
}

func (r *userRepo) getLocked(tenantID, userID string) (*repository.User, error) {
	u, ok := r.c.users[userID]
	if !ok || u.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, tenantID, userID string) (*repository.User, error) {
	if err := r.lock(ctx); err != nil {
		return nil, err
	}
	defer r.unlock()
	u, err := r.getLocked(tenantID, userID)
	if err != nil {
		return nil, err
	}
	return u.Clone(), nil
}

func (r *userRepo) FindByEmail(ctx context.Context, tenantID, email string) (*repository.User, error) {
	return r.findOne(ctx, tenantID, func(u *repository.User) bool { return email != "" && u.Email == email })
}

func (r *userRepo) FindByPhone(ctx context.Context, tenantID, phone string) (*repository.User, error) {
	return r.findOne(ctx, tenantID, func(u *repository.User) bool { return phone != "" && u.Phone == phone })
}

func (r *userRepo) FindBySocial(ctx context.Context, tenantID, provider, externalID string) (*repository.User, error) {
	return r.findOne(ctx, tenantID, func(u *repository.User) bool {
		s, ok := u.Methods.Social[provider]
		return ok && s.ExternalID == externalID
	})
}

func (r *userRepo) findOne(ctx context.Context, tenantID string, match func(*repository.User) bool) (*repository.User, error) {
	if err := r.lock(ctx); err != nil {
		return nil, err
	}
	defer r.unlock()
	if u := r.findLocked(tenantID, match); u != nil {
		return u.Clone(), nil
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) DisplayNameExists(ctx context.Context, tenantID, name string) (bool, error) {
	if err := r.lock(ctx); err != nil {
		return false, err
	}
	defer r.unlock()
	for _, u := range r.c.users {
		if u.TenantID == tenantID && u.DisplayName == name {
			return true, nil
		}
	}
	return false, nil
}

// uniqueLocked replica los índices parciales (tenant,email) y (tenant,phone),
// incluyendo usuarios borrados.
func (r *userRepo) uniqueLocked(u *repository.User) error {
	for id, other := range r.c.users {
		if id == u.ID || other.TenantID != u.TenantID {
			continue
		}
		if u.Email != "" && other.Email == u.Email {
			return repository.ErrConflict
		}
		if u.Phone != "" && other.Phone == u.Phone {
			return repository.ErrConflict
		}
	}
	return nil
}

func (r *userRepo) Insert(ctx context.Context, u *repository.User) error {
	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := r.uniqueLocked(u); err != nil {
		return err
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Status == "" {
		u.Status = repository.StatusActive
	}
	stored := u.Clone()
	stored.NewPassword = ""
	r.c.users[u.ID] = stored
	return nil
}

func (r *userRepo) Update(ctx context.Context, u *repository.User) error {
	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()
	cur, err := r.getLocked(u.TenantID, u.ID)
	if err != nil {
		return err
	}
	cur.DisplayName = u.DisplayName
	cur.Profile = u.Clone().Profile
	cur.Roles = append([]string(nil), u.Roles...)
	cur.UpdatedAt = time.Now().UTC()
	u.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *userRepo) SetPasswordHash(ctx context.Context, tenantID, userID, expectedHash, newHash string) error {
	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()
	u, err := r.getLocked(tenantID, userID)
	if err != nil {
		return err
	}
	if u.PasswordHash != expectedHash {
		return repository.ErrConflict
	}
	u.PasswordHash = newHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userRepo) ChangePhone(ctx context.Context, tenantID, userID, phone, codeHash string, expiry time.Time) error {
	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()
	u, err := r.getLocked(tenantID, userID)
	if err != nil {
		return err
	}
	if err := r.uniqueLocked(&repository.User{ID: u.ID, TenantID: tenantID, Phone: phone}); err != nil {
		return err
	}
	u.Phone = phone
	u.Methods.PhoneSMS = repository.PhoneSMSState{CodeHash: codeHash, CodeExpiry: expiry}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userRepo) SetStatus(ctx context.Context, tenantID, userID string, status repository.UserStatus) error {
	return r.mutate(ctx, tenantID, userID, func(u *repository.User) { u.Status = status })
}

func (r *userRepo) mutate(ctx context.Context, tenantID, userID string, fn func(*repository.User)) error {
	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()
	u, err := r.getLocked(tenantID, userID)
	if err != nil {
		return err
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *userRepo) IncrementFailures(ctx context.Context, tenantID, userID, ip string, at time.Time) (int, error) {
	var n int
	err := r.mutate(ctx, tenantID, userID, func(u *repository.User) {
		u.Security.FailedAttempts++
		u.Security.LastFailure = at
		if ip != "" {
			u.Security.LastIP = ip
		}
		n = u.Security.FailedAttempts
	})
	return n, err
}

func (r *userRepo) RecordSuccess(ctx context.Context, tenantID, userID, ip string, at time.Time) error {
	return r.mutate(ctx, tenantID, userID, func(u *repository.User) {
		u.Security.FailedAttempts = 0
		u.Security.LastSuccess = at
		if ip != "" {
			u.Security.LastIP = ip
		}
	})
}

func (r *userRepo) ResetFailures(ctx context.Context, tenantID, userID string) error {
	return r.mutate(ctx, tenantID, userID, func(u *repository.User) { u.Security.FailedAttempts = 0 })
}

func (r *userRepo) SetMagicLink(ctx context.Context, tenantID, userID, tokenHash string, expiry time.Time) error {
	return r.mutate(ctx, tenantID, userID, func(u *repository.User) {
		u.Methods.MagicLink = repository.MagicLinkState{TokenHash: tokenHash, Expiry: expiry}
	})
}

// consume implementa el patrón compare-and-clear de los tokens de un solo uso.
func (r *userRepo) consume(
	ctx context.Context,
	tenantID string,
	now time.Time,
	match func(*repository.User) (ok bool, expiry time.Time),
	apply func(*repository.User),
) (*repository.User, error) {
	if err := r.lock(ctx); err != nil {
		return nil, err
	}
	defer r.unlock()
	u := r.findLocked(tenantID, func(u *repository.User) bool {
		ok, _ := match(u)
		return ok
	})
	if u == nil {
		return nil, repository.ErrNotFound
	}
	if _, expiry := match(u); !now.Before(expiry) {
		return nil, repository.ErrExpired
	}
	apply(u)
	u.UpdatedAt = time.Now().UTC()
	return u.Clone(), nil
}

func (r *userRepo) ConsumeMagicLink(ctx context.Context, tenantID, tokenHash string, now time.Time) (*repository.User, error) {
	return r.consume(ctx, tenantID, now,
		func(u *repository.User) (bool, time.Time) {
			m := u.Methods.MagicLink
			return tokenHash != "" && m.TokenHash == tokenHash, m.Expiry
		},
		func(u *repository.User) { u.Methods.MagicLink = repository.MagicLinkState{} },
	)
}

func (r *userRepo) SetSMSCode(ctx context.Context, tenantID, userID, codeHash string, expiry time.Time) error {
	return r.mutate(ctx, tenantID, userID, func(u *repository.User) {
		u.Methods.PhoneSMS.CodeHash = codeHash
		u.Methods.PhoneSMS.CodeExpiry = expiry
	})
}

func (r *userRepo) ConsumeSMSCode(ctx context.Context, tenantID, phone, codeHash string, now time.Time) (*repository.User, error) {
	return r.consume(ctx, tenantID, now,
		func(u *repository.User) (bool, time.Time) {
			s := u.Methods.PhoneSMS
			return phone != "" && codeHash != "" && u.Phone == phone && s.CodeHash == codeHash, s.CodeExpiry
		},
		func(u *repository.User) {
			u.Methods.PhoneSMS = repository.PhoneSMSState{Verified: true}
		},
	)
}

func (r *userRepo) SetVerificationToken(ctx context.Context, tenantID, userID, tokenHash string, expiry time.Time) error {
	return r.mutate(ctx, tenantID, userID, func(u *repository.User) {
		u.Methods.EmailPassword.VerificationHash = tokenHash
		u.Methods.EmailPassword.VerificationExpiry = expiry
	})
}

func (r *userRepo) ConsumeVerificationToken(ctx context.Context, tenantID, tokenHash string, now time.Time) (*repository.User, error) {
	return r.consume(ctx, tenantID, now,
		func(u *repository.User) (bool, time.Time) {
			e := u.Methods.EmailPassword
			return tokenHash != "" && e.VerificationHash == tokenHash, e.VerificationExpiry
		},
		func(u *repository.User) {
			u.Methods.EmailPassword.Verified = true
			u.Methods.EmailPassword.VerificationHash = ""
			u.Methods.EmailPassword.VerificationExpiry = time.Time{}
		},
	)
}

func (r *userRepo) SetResetToken(ctx context.Context, tenantID, userID, tokenHash string, expiry time.Time) error {
	return r.mutate(ctx, tenantID, userID, func(u *repository.User) {
		u.Methods.EmailPassword.ResetHash = tokenHash
		u.Methods.EmailPassword.ResetExpiry = expiry
	})
}

func (r *userRepo) ConsumeResetToken(ctx context.Context, tenantID, tokenHash string, now time.Time, newPasswordHash string) (*repository.User, error) {
	return r.consume(ctx, tenantID, now,
		func(u *repository.User) (bool, time.Time) {
			e := u.Methods.EmailPassword
			return tokenHash != "" && e.ResetHash == tokenHash, e.ResetExpiry
		},
		func(u *repository.User) {
			u.PasswordHash = newPasswordHash
			u.Methods.EmailPassword.ResetHash = ""
			u.Methods.EmailPassword.ResetExpiry = time.Time{}
			u.Security.FailedAttempts = 0
		},
	)
}

func (r *userRepo) LinkSocial(ctx context.Context, tenantID, userID, provider string, ident repository.SocialIdentity) error {
	return r.mutate(ctx, tenantID, userID, func(u *repository.User) {
		if u.Methods.Social == nil {
			u.Methods.Social = make(map[string]repository.SocialIdentity)
		}
		u.Methods.Social[provider] = ident
	})
}
