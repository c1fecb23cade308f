package store

import (
	"context"
	"errors"

	"vibepay/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func (s *Store) CreateMember(ctx context.Context, m *models.Member) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO members (member_id, email, password_hash, name, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, m.ID, m.Email, m.PasswordHash, m.Name, m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) GetMemberByEmail(ctx context.Context, email string) (*models.Member, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT member_id, email, password_hash, name, created_at
		FROM members WHERE email=$1
	`, email)
	return scanMember(row)
}

func (s *Store) GetMemberByID(ctx context.Context, memberID string) (*models.Member, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT member_id, email, password_hash, name, created_at
		FROM members WHERE member_id=$1
	`, memberID)
	return scanMember(row)
}

func scanMember(row pgx.Row) (*models.Member, error) {
	var m models.Member
	err := row.Scan(&m.ID, &m.Email, &m.PasswordHash, &m.Name, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
