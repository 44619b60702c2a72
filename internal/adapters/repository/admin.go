package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/stork/internal/domain/model"
)

// SaveActualResult implements Store.
func (s *SQLStore) SaveActualResult(ctx context.Context, r model.ActualResult) (model.ActualResult, error) {
	defer s.observe("save_actual_result")()

	if r.EnteredAt.IsZero() {
		r.EnteredAt = s.now()
	}
	r.EnteredAt = fromMillis(millis(r.EnteredAt))
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx, `SELECT id FROM actual_results ORDER BY entered_at DESC, id DESC LIMIT 1`).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			r.ID = uuid.NewString()
			_, err = tx.ExecContext(ctx, `INSERT INTO actual_results
				(id, birth_date, birth_time, weight, height, eye_color, hair_color, entered_by, entered_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				r.ID, model.FormatDate(r.BirthDate), r.BirthTime.String(), r.Weight, r.Height,
				r.EyeColor, r.HairColor, r.EnteredBy, millis(r.EnteredAt))
			return err
		case err != nil:
			return err
		}
		r.ID = id
		_, err = tx.ExecContext(ctx, `UPDATE actual_results SET birth_date = $1, birth_time = $2, weight = $3,
			height = $4, eye_color = $5, hair_color = $6, entered_by = $7, entered_at = $8 WHERE id = $9`,
			model.FormatDate(r.BirthDate), r.BirthTime.String(), r.Weight, r.Height,
			r.EyeColor, r.HairColor, r.EnteredBy, millis(r.EnteredAt), id)
		return err
	})
	if err != nil {
		return model.ActualResult{}, fmt.Errorf("save actual result: %w", err)
	}
	return r, nil
}

// LatestActualResult implements Store.
func (s *SQLStore) LatestActualResult(ctx context.Context) (model.ActualResult, error) {
	defer s.observe("latest_actual_result")()

	var (
		r                    model.ActualResult
		birthDate, birthTime string
		enteredAt            int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, birth_date, birth_time, weight, height, eye_color, hair_color,
		entered_by, entered_at FROM actual_results ORDER BY entered_at DESC, id DESC LIMIT 1`).Scan(
		&r.ID, &birthDate, &birthTime, &r.Weight, &r.Height, &r.EyeColor, &r.HairColor, &r.EnteredBy, &enteredAt)
	if err != nil {
		return model.ActualResult{}, notFound(err)
	}
	if err := decodeGuess(&r.Guess, birthDate, birthTime); err != nil {
		return model.ActualResult{}, err
	}
	r.EnteredAt = fromMillis(enteredAt)
	return r, nil
}

// UpsertAccessCode implements Store. The usage count of an existing code is kept.
func (s *SQLStore) UpsertAccessCode(ctx context.Context, c model.AccessCode) error {
	defer s.observe("upsert_access_code")()

	var maxUses sql.NullInt64
	if c.MaxUses != nil {
		maxUses = sql.NullInt64{Int64: int64(*c.MaxUses), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO access_codes (code, type, description, active, expires_at, max_uses, used_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO UPDATE SET type = excluded.type, description = excluded.description,
			active = excluded.active, expires_at = excluded.expires_at, max_uses = excluded.max_uses`,
		model.NormalizeAccessCode(c.Code), string(c.Type), c.Description, c.Active, nullMillis(c.ExpiresAt), maxUses, c.UsedCount)
	if err != nil {
		return fmt.Errorf("upsert access code: %w", err)
	}
	return nil
}

// RedeemAccessCode implements Store. A code that fails AccessCode.Check is
// returned together with the check error and is not incremented.
func (s *SQLStore) RedeemAccessCode(ctx context.Context, code string) (model.AccessCode, error) {
	defer s.observe("redeem_access_code")()

	var out model.AccessCode
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var (
			c                  model.AccessCode
			codeType           string
			expiresAt, maxUses sql.NullInt64
		)
		err := tx.QueryRowContext(ctx, `SELECT code, type, description, active, expires_at, max_uses, used_count
			FROM access_codes WHERE code = $1`, model.NormalizeAccessCode(code)).Scan(
			&c.Code, &codeType, &c.Description, &c.Active, &expiresAt, &maxUses, &c.UsedCount)
		if err != nil {
			return notFound(err)
		}
		c.Type = model.ConnectionType(codeType)
		c.ExpiresAt = fromNullMillis(expiresAt)
		if maxUses.Valid {
			n := int(maxUses.Int64)
			c.MaxUses = &n
		}
		out = c
		if err := c.Check(s.now()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE access_codes SET used_count = used_count + 1 WHERE code = $1`, c.Code); err != nil {
			return err
		}
		out.UsedCount++
		return nil
	})
	return out, err
}

// GetSettings implements Store.
func (s *SQLStore) GetSettings(ctx context.Context) (model.Settings, error) {
	defer s.observe("get_settings")()

	_, err := s.db.ExecContext(ctx, `INSERT INTO settings (id, submissions_locked, winner_mode_active, lock_date)
		VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
		settingsRowID, false, false, millis(s.defaultLockDate))
	if err != nil {
		return model.Settings{}, fmt.Errorf("create default settings: %w", err)
	}

	var (
		out      model.Settings
		lockDate int64
	)
	err = s.db.QueryRowContext(ctx, `SELECT submissions_locked, winner_mode_active, lock_date FROM settings WHERE id = $1`,
		settingsRowID).Scan(&out.SubmissionsLocked, &out.WinnerModeActive, &lockDate)
	if err != nil {
		return model.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	out.LockDate = fromMillis(lockDate)
	return out, nil
}

// UpdateSettings implements Store.
func (s *SQLStore) UpdateSettings(ctx context.Context, in model.Settings) (model.Settings, error) {
	defer s.observe("update_settings")()

	if in.LockDate.IsZero() {
		in.LockDate = s.defaultLockDate
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO settings (id, submissions_locked, winner_mode_active, lock_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET submissions_locked = excluded.submissions_locked,
			winner_mode_active = excluded.winner_mode_active, lock_date = excluded.lock_date`,
		settingsRowID, in.SubmissionsLocked, in.WinnerModeActive, millis(in.LockDate))
	if err != nil {
		return model.Settings{}, fmt.Errorf("update settings: %w", err)
	}
	in.LockDate = fromMillis(millis(in.LockDate))
	return in, nil
}

// ClearAll implements Store.
func (s *SQLStore) ClearAll(ctx context.Context, keepEmail string) error {
	defer s.observe("clear_all")()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM predictions`,
			`DELETE FROM actual_results`,
			`DELETE FROM verification_tokens`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE email <> $1`, model.NormalizeEmail(keepEmail))
		return err
	})
	if err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	return nil
}
