package dbkeeper

import (
	"context"
	"fmt"

	"github.com/drstein77/grocerystore/internal/models"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const userColumns = `id, email, name, phone_number, address, dietary_preferences, role, created_at, updated_at`

func scanUser(row pgx.Row, extra ...any) (models.User, error) {
	var (
		u    models.User
		role string
	)
	dest := append([]any{&u.ID, &u.Email, &u.Name, &u.PhoneNumber, &u.Address, &u.DietaryPreferences, &role, &u.CreatedAt, &u.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return u, err
	}
	u.Role = models.Role(role)
	if u.DietaryPreferences == nil {
		u.DietaryPreferences = []string{}
	}
	return u, nil
}

func (kp *DBKeeper) CreateUser(ctx context.Context, u models.User, passwordHash string) (*models.User, error) {
	prefs := u.DietaryPreferences
	if prefs == nil {
		prefs = []string{}
	}
	row := kp.pool.QueryRow(ctx, `
		INSERT INTO user_profiles (email, password_hash, name, phone_number, address, dietary_preferences, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		u.Email, passwordHash, u.Name, u.PhoneNumber, u.Address, prefs, string(u.Role),
	)
	created, err := scanUser(row)
	if err != nil {
		return nil, mapError("create user", err)
	}
	kp.log.Info("User registered", zap.String("user_id", created.ID))
	return &created, nil
}

// UserCredentials returns the user with the given email and its password hash.
func (kp *DBKeeper) UserCredentials(ctx context.Context, email string) (*models.User, string, error) {
	var hash string
	row := kp.pool.QueryRow(ctx, `SELECT `+userColumns+`, password_hash FROM user_profiles WHERE lower(email) = lower($1)`, email)
	u, err := scanUser(row, &hash)
	if err != nil {
		return nil, "", mapError("get user credentials", err)
	}
	return &u, hash, nil
}

func (kp *DBKeeper) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := kp.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM user_profiles WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapError("get user", err)
	}
	return &u, nil
}

func (kp *DBKeeper) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := kp.pool.Query(ctx, `SELECT `+userColumns+` FROM user_profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, mapError("list users", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (kp *DBKeeper) UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	row := kp.pool.QueryRow(ctx, `
		UPDATE user_profiles SET
			name = COALESCE($2, name),
			phone_number = COALESCE($3, phone_number),
			address = COALESCE($4, address),
			dietary_preferences = COALESCE($5, dietary_preferences),
			updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, upd.Name, upd.PhoneNumber, upd.Address, upd.DietaryPreferences,
	)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapError("update user", err)
	}
	return &u, nil
}

func (kp *DBKeeper) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	tag, err := kp.pool.Exec(ctx, `UPDATE user_profiles SET role = $2, updated_at = now() WHERE id = $1`, id, string(role))
	if err != nil {
		return mapError("update user role", err)
	}
	if tag.RowsAffected() == 0 {
		return mapError("update user role", pgx.ErrNoRows)
	}
	return nil
}

func (kp *DBKeeper) DeleteUser(ctx context.Context, id string) error {
	tag, err := kp.pool.Exec(ctx, `DELETE FROM user_profiles WHERE id = $1`, id)
	if err != nil {
		return mapError("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return mapError("delete user", pgx.ErrNoRows)
	}
	kp.log.Info("User deleted", zap.String("user_id", id))
	return nil
}

func (kp *DBKeeper) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := kp.pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_profiles`).Scan(&n); err != nil {
		return 0, mapError("count users", err)
	}
	return n, nil
}

func (kp *DBKeeper) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := kp.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, mapError("count products", err)
	}
	return n, nil
}
