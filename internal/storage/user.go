package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/linemk/auth-service/internal/domain/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailExists   = errors.New("email already exists")
	ErrNicknameTaken = errors.New("nickname already taken")
)

// коды ошибок postgres и имена ограничений из миграции 000001
const (
	pqUniqueViolation  = "23505"
	emailConstraint    = "users_email_key"
	nicknameConstraint = "users_nickname_key"
)

const userColumns = "id, email, password_hash, nickname, verification_code, is_verified, balance, reset_code, reset_code_expires"

// UserStorage описывает работу с таблицей users. Все методы выполняются в рамках переданной транзакции.
type UserStorage interface {
	EmailExists(ctx context.Context, tx *sql.Tx, email string) (bool, error)
	// NicknameTaken проверяет, занят ли никнейм кем-то кроме exceptID (0 - проверка среди всех)
	NicknameTaken(ctx context.Context, tx *sql.Tx, nickname string, exceptID int64) (bool, error)
	CreateUser(ctx context.Context, tx *sql.Tx, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, tx *sql.Tx, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, tx *sql.Tx, email string) (*models.User, error)
	MarkVerified(ctx context.Context, tx *sql.Tx, id int64) error
	SetResetCode(ctx context.Context, tx *sql.Tx, id int64, code string, expires time.Time) error
	// UpdatePassword меняет хэш пароля и сбрасывает reset_code вместе со сроком его действия
	UpdatePassword(ctx context.Context, tx *sql.Tx, id int64, passHash string) error
	UpdateNickname(ctx context.Context, tx *sql.Tx, id int64, nickname string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) EmailExists(ctx context.Context, tx *sql.Tx, email string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", email).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *userRepository) NicknameTaken(ctx context.Context, tx *sql.Tx, nickname string, exceptID int64) (bool, error) {
	var taken bool
	err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE nickname = $1 AND id != $2)",
		nickname, exceptID,
	).Scan(&taken)
	if err != nil {
		return false, err
	}
	return taken, nil
}

// CreateUser создаёт неподтверждённого пользователя с нулевым балансом
func (r *userRepository) CreateUser(ctx context.Context, tx *sql.Tx, user *models.User) (*models.User, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO users (email, password_hash, nickname, verification_code, is_verified, balance)
		 VALUES ($1, $2, $3, $4, false, 0) RETURNING id`,
		user.Email, user.PassHash, user.NicknameOrNil(), user.VerificationCode,
	).Scan(&id)
	if err != nil {
		return nil, uniqueViolation(err)
	}
	user.ID = id
	user.Nickname = user.NicknameOrNil()
	user.IsVerified = false
	user.Balance = 0
	return user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, tx *sql.Tx, id int64) (*models.User, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

func (r *userRepository) GetUserByEmail(ctx context.Context, tx *sql.Tx, email string) (*models.User, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	return scanUser(row)
}

func (r *userRepository) MarkVerified(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, "UPDATE users SET is_verified = true WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *userRepository) SetResetCode(ctx context.Context, tx *sql.Tx, id int64, code string, expires time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET reset_code = $1, reset_code_expires = $2 WHERE id = $3",
		code, expires, id,
	)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *userRepository) UpdatePassword(ctx context.Context, tx *sql.Tx, id int64, passHash string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET password_hash = $1, reset_code = NULL, reset_code_expires = NULL WHERE id = $2",
		passHash, id,
	)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *userRepository) UpdateNickname(ctx context.Context, tx *sql.Tx, id int64, nickname string) error {
	res, err := tx.ExecContext(ctx, "UPDATE users SET nickname = $1 WHERE id = $2", nickname, id)
	if err != nil {
		return uniqueViolation(err)
	}
	return expectAffected(res)
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.PassHash, &user.Nickname, &user.VerificationCode,
		&user.IsVerified, &user.Balance, &user.ResetCode, &user.ResetCodeExpires,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// uniqueViolation переводит нарушение уникальности в доменную ошибку.
// Проверка в сервисе идёт до вставки, поэтому сюда попадаем только при гонке двух запросов.
func uniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case emailConstraint:
		return ErrEmailExists
	case nicknameConstraint:
		return ErrNicknameTaken
	}
	return err
}
