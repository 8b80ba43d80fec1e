package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"starter-api/internal/domain"
)

// UserFilter describe búsqueda, filtros y paginación para listados.
type UserFilter struct {
	SearchTerm string
	Role       domain.Role
	Verified   *bool
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
}

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, int, error)
	Update(ctx context.Context, user domain.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateOTP(ctx context.Context, id, otpHash string, otpExpiresAt time.Time) error
	SetVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

const userColumns = `
	id, first_name, COALESCE(last_name, ''), email, password_hash, role,
	COALESCE(profile_image, ''), COALESCE(profile_image_public_id, ''),
	COALESCE(bio, ''), COALESCE(phone, ''), COALESCE(location, ''),
	COALESCE(otp_hash, ''), otp_expires_at, verified, is_subscribed,
	subscription_id, subscription_expiry, created_at, updated_at
`

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (
			id, first_name, last_name, email, password_hash, role,
			profile_image, verified, is_subscribed, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.ProfileImage,
		user.Verified,
		user.IsSubscribed,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, int, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		args = append(args, "%"+term+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", n, n, n,
		))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Verified != nil {
		args = append(args, *filter.Verified)
		where = append(where, fmt.Sprintf("verified = $%d", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM users"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}
	orderBy := sortColumn(filter.SortBy)
	direction := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		direction = "DESC"
	}

	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(
		"SELECT %s FROM users%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		userColumns, whereClause, orderBy, direction, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, limit)
	for rows.Next() {
		user, err := r.scanOne(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

func (r *PgUserRepository) Update(ctx context.Context, user domain.User) error {
	const query = `
		UPDATE users
		SET first_name = $2, last_name = $3, role = $4,
			profile_image = $5, profile_image_public_id = $6,
			bio = $7, phone = $8, location = $9,
			is_subscribed = $10, subscription_id = $11, subscription_expiry = $12,
			updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Role,
		user.ProfileImage,
		user.ProfileImagePublicID,
		user.Bio,
		user.Phone,
		user.Location,
		user.IsSubscribed,
		user.SubscriptionID,
		user.SubscriptionExpiry,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdatePassword guarda el nuevo hash y descarta cualquier OTP pendiente.
func (r *PgUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $2, otp_hash = NULL, otp_expires_at = NULL, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) UpdateOTP(ctx context.Context, id, otpHash string, otpExpiresAt time.Time) error {
	const query = `
		UPDATE users
		SET otp_hash = $2, otp_expires_at = $3, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, otpHash, otpExpiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) SetVerified(ctx context.Context, id string) error {
	const query = `
		UPDATE users
		SET verified = TRUE, otp_hash = NULL, otp_expires_at = NULL, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) scanOne(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.ProfileImage,
		&u.ProfileImagePublicID,
		&u.Bio,
		&u.Phone,
		&u.Location,
		&u.OtpHash,
		&u.OtpExpiresAt,
		&u.Verified,
		&u.IsSubscribed,
		&u.SubscriptionID,
		&u.SubscriptionExpiry,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	return u, err
}

func sortColumn(sortBy string) string {
	switch sortBy {
	case "email":
		return "email"
	case "first_name":
		return "first_name"
	case "last_name":
		return "last_name"
	case "role":
		return "role"
	case "updated_at":
		return "updated_at"
	default:
		return "created_at"
	}
}
