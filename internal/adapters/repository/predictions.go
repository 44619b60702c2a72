package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/stork/internal/domain/model"
)

const selectPrediction = `SELECT p.id, u.name, u.email, p.connection_types, p.birth_date, p.birth_time,
	p.weight, p.height, p.eye_color, p.hair_color, p.submitted_at, p.updated_at
	FROM predictions p JOIN participants u ON u.id = p.participant_id`

func scanPrediction(row rowScanner) (model.Prediction, error) {
	var (
		p                                 model.Prediction
		connections, birthDate, birthTime string
		submitted, updated                int64
	)
	if err := row.Scan(&p.ID, &p.Owner.Name, &p.Owner.Email, &connections, &birthDate, &birthTime,
		&p.Weight, &p.Height, &p.EyeColor, &p.HairColor, &submitted, &updated); err != nil {
		return model.Prediction{}, err
	}
	if err := decodeGuess(&p.Guess, birthDate, birthTime); err != nil {
		return model.Prediction{}, err
	}
	p.ConnectionTypes = splitConnections(connections)
	p.SubmittedAt = fromMillis(submitted)
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}

func getPrediction(ctx context.Context, q querier, where string, arg any) (model.Prediction, error) {
	p, err := scanPrediction(q.QueryRowContext(ctx, selectPrediction+" WHERE "+where, arg))
	if err != nil {
		return model.Prediction{}, notFound(err)
	}
	return p, nil
}

// UpsertPrediction implements Store.
func (s *SQLStore) UpsertPrediction(ctx context.Context, owner model.Owner, connections []model.ConnectionType, g model.Guess) (model.Prediction, bool, error) {
	defer s.observe("upsert_prediction")()

	email := model.NormalizeEmail(owner.Email)
	now := millis(s.now())
	var (
		id      string
		updated bool
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		participantID, err := s.ensureParticipant(ctx, tx, email, owner.Name)
		if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx, `SELECT id FROM predictions WHERE participant_id = $1`, participantID).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id = uuid.NewString()
			_, err = tx.ExecContext(ctx, `INSERT INTO predictions
				(id, participant_id, connection_types, birth_date, birth_time, weight, height, eye_color, hair_color, submitted_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				id, participantID, joinConnections(connections), model.FormatDate(g.BirthDate), g.BirthTime.String(),
				g.Weight, g.Height, g.EyeColor, g.HairColor, now, now)
			return err
		case err != nil:
			return err
		}

		updated = true
		_, err = tx.ExecContext(ctx, `UPDATE predictions SET connection_types = $1, birth_date = $2, birth_time = $3,
			weight = $4, height = $5, eye_color = $6, hair_color = $7, updated_at = $8 WHERE id = $9`,
			joinConnections(connections), model.FormatDate(g.BirthDate), g.BirthTime.String(),
			g.Weight, g.Height, g.EyeColor, g.HairColor, now, id)
		return err
	})
	if err != nil {
		return model.Prediction{}, false, fmt.Errorf("upsert prediction: %w", err)
	}

	p, err := getPrediction(ctx, s.db, "p.id = $1", id)
	return p, updated, err
}

// ensureParticipant returns the id of the participant with email, creating
// it when missing and refreshing the name otherwise.
func (s *SQLStore) ensureParticipant(ctx context.Context, tx *sql.Tx, email, name string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM participants WHERE email = $1`, email).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
		_, err = tx.ExecContext(ctx, `INSERT INTO participants (id, email, name, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
			id, email, name, string(model.RoleUser), millis(s.now()))
		return id, err
	case err != nil:
		return "", err
	}
	if name != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE participants SET name = $1 WHERE id = $2`, name, id); err != nil {
			return "", err
		}
	}
	return id, nil
}

// GetPrediction implements Store.
func (s *SQLStore) GetPrediction(ctx context.Context, id string) (model.Prediction, error) {
	defer s.observe("get_prediction")()
	return getPrediction(ctx, s.db, "p.id = $1", id)
}

// FindPredictionByEmail implements Store.
func (s *SQLStore) FindPredictionByEmail(ctx context.Context, email string) (model.Prediction, error) {
	defer s.observe("find_prediction_by_email")()
	return getPrediction(ctx, s.db, "u.email = $1", model.NormalizeEmail(email))
}

// ListPredictions implements Store.
func (s *SQLStore) ListPredictions(ctx context.Context) ([]model.Prediction, error) {
	defer s.observe("list_predictions")()

	rows, err := s.db.QueryContext(ctx, selectPrediction+" ORDER BY p.submitted_at, p.id")
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	out := make([]model.Prediction, 0)
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePrediction implements Store.
func (s *SQLStore) UpdatePrediction(ctx context.Context, id string, patch model.PredictionPatch) (model.Prediction, error) {
	defer s.observe("update_prediction")()

	var out model.Prediction
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := getPrediction(ctx, tx, "p.id = $1", id)
		if err != nil {
			return err
		}
		p.Guess = patch.Apply(p.Guess)
		p.UpdatedAt = fromMillis(millis(s.now()))
		_, err = tx.ExecContext(ctx, `UPDATE predictions SET birth_date = $1, birth_time = $2, weight = $3,
			height = $4, eye_color = $5, hair_color = $6, updated_at = $7 WHERE id = $8`,
			model.FormatDate(p.BirthDate), p.BirthTime.String(), p.Weight, p.Height,
			p.EyeColor, p.HairColor, millis(p.UpdatedAt), id)
		out = p
		return err
	})
	if err != nil {
		return model.Prediction{}, fmt.Errorf("update prediction %s: %w", id, err)
	}
	return out, nil
}

// DeletePrediction implements Store.
func (s *SQLStore) DeletePrediction(ctx context.Context, id string) error {
	defer s.observe("delete_prediction")()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var participantID, email string
		err := tx.QueryRowContext(ctx, `SELECT u.id, u.email FROM predictions p
			JOIN participants u ON u.id = p.participant_id WHERE p.id = $1`, id).Scan(&participantID, &email)
		if err != nil {
			return notFound(err)
		}
		for _, stmt := range []struct {
			query string
			arg   string
		}{
			{`DELETE FROM predictions WHERE id = $1`, id},
			{`DELETE FROM verification_tokens WHERE email = $1`, email},
			{`DELETE FROM participants WHERE id = $1`, participantID},
		} {
			if _, err := tx.ExecContext(ctx, stmt.query, stmt.arg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete prediction %s: %w", id, err)
	}
	return nil
}
