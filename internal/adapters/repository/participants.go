package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/stork/internal/domain/model"
)

func getParticipant(ctx context.Context, q querier, email string) (model.Participant, error) {
	var (
		p          model.Participant
		role       string
		verifiedAt sql.NullInt64
		createdAt  int64
	)
	err := q.QueryRowContext(ctx, `SELECT id, email, name, role, email_verified_at, created_at
		FROM participants WHERE email = $1`, email).Scan(&p.ID, &p.Email, &p.Name, &role, &verifiedAt, &createdAt)
	if err != nil {
		return model.Participant{}, notFound(err)
	}
	p.Role = model.Role(role)
	p.EmailVerifiedAt = fromNullMillis(verifiedAt)
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

// GetParticipant implements Store.
func (s *SQLStore) GetParticipant(ctx context.Context, email string) (model.Participant, error) {
	defer s.observe("get_participant")()
	return getParticipant(ctx, s.db, model.NormalizeEmail(email))
}

// MarkEmailVerified implements Store.
func (s *SQLStore) MarkEmailVerified(ctx context.Context, email string) (model.Participant, error) {
	defer s.observe("mark_email_verified")()

	email = model.NormalizeEmail(email)
	now := millis(s.now())
	var out model.Participant
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE participants SET email_verified_at = $1 WHERE email = $2`, now, email)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			_, err = tx.ExecContext(ctx, `INSERT INTO participants (id, email, name, role, email_verified_at, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`, uuid.NewString(), email, "", string(model.RoleUser), now, now)
			if err != nil {
				return err
			}
		}
		out, err = getParticipant(ctx, tx, email)
		return err
	})
	if err != nil {
		return model.Participant{}, fmt.Errorf("mark %s verified: %w", email, err)
	}
	return out, nil
}

// SetRole implements Store.
func (s *SQLStore) SetRole(ctx context.Context, email string, role model.Role) error {
	defer s.observe("set_role")()

	res, err := s.db.ExecContext(ctx, `UPDATE participants SET role = $1 WHERE email = $2`, string(role), model.NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceVerificationToken implements Store.
func (s *SQLStore) ReplaceVerificationToken(ctx context.Context, t model.VerificationToken) error {
	defer s.observe("replace_verification_token")()

	email := model.NormalizeEmail(t.Email)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM verification_tokens WHERE email = $1`, email); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO verification_tokens (token, email, expires_at) VALUES ($1, $2, $3)`,
			t.Token, email, millis(t.ExpiresAt))
		return err
	})
	if err != nil {
		return fmt.Errorf("replace verification token: %w", err)
	}
	return nil
}

// ConsumeVerificationToken implements Store.
func (s *SQLStore) ConsumeVerificationToken(ctx context.Context, email, token string) error {
	defer s.observe("consume_verification_token")()

	email = model.NormalizeEmail(email)
	var expired bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var expiresAt int64
		err := tx.QueryRowContext(ctx, `SELECT expires_at FROM verification_tokens WHERE token = $1 AND email = $2`,
			token, email).Scan(&expiresAt)
		if err != nil {
			return notFound(err)
		}
		t := model.VerificationToken{Email: email, Token: token, ExpiresAt: fromMillis(expiresAt)}
		expired = t.Expired(s.now())
		_, err = tx.ExecContext(ctx, `DELETE FROM verification_tokens WHERE token = $1`, token)
		return err
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("consume verification token: %w", err)
	case expired:
		return ErrTokenExpired
	}
	return nil
}
