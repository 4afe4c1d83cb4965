package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, email, hashed_password, full_name, phone, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.FullName, &u.Phone,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

type CreateUserParams struct {
	Email          string
	HashedPassword string
	FullName       string
	Phone          pgtype.Text
	Role           string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (email, hashed_password, full_name, phone, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		arg.Email, arg.HashedPassword, arg.FullName, arg.Phone, arg.Role)
	return scanUser(row)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email = $1 AND is_active = true`, email)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE id = $1 AND is_active = true`, id)
	return scanUser(row)
}

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE is_active = true
		ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type UpdateUserParams struct {
	Email    string
	FullName string
	Phone    pgtype.Text
	Role     string
	ID       uuid.UUID
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users
		SET email = $1, full_name = $2, phone = $3, role = $4, updated_at = now()
		WHERE id = $5 AND is_active = true
		RETURNING `+userColumns,
		arg.Email, arg.FullName, arg.Phone, arg.Role, arg.ID)
	return scanUser(row)
}

type UpdateUserProfileParams struct {
	FullName string
	Phone    pgtype.Text
	ID       uuid.UUID
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users
		SET full_name = $1, phone = $2, updated_at = now()
		WHERE id = $3 AND is_active = true
		RETURNING `+userColumns,
		arg.FullName, arg.Phone, arg.ID)
	return scanUser(row)
}

func (q *Queries) SoftDeleteUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users
		SET is_active = false, updated_at = now()
		WHERE id = $1 AND is_active = true
		RETURNING id`, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}

func (q *Queries) CountUsersByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT count(*) FROM users
		WHERE role = $1 AND is_active = true`, role).Scan(&n)
	return n, err
}
