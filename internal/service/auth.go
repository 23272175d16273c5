package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/auth-service/internal/domain/models"
	"github.com/linemk/auth-service/internal/lib/otp"
	"github.com/linemk/auth-service/internal/lib/passhash"
	"github.com/linemk/auth-service/internal/storage"
)

const DefaultResetCodeTTL = 15 * time.Minute

var (
	ErrEmailExists             = errors.New("email already exists")
	ErrNicknameTaken           = errors.New("nickname already taken")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrEmailNotFound           = errors.New("email not found")
	ErrInvalidResetCode        = errors.New("invalid reset code")
	ErrResetCodeExpired        = errors.New("reset code expired")
	ErrUserNotFound            = errors.New("user not found")
)

// NotVerifiedError - пароль верный, но email ещё не подтверждён
type NotVerifiedError struct {
	UserID int64
}

func (e *NotVerifiedError) Error() string {
	return fmt.Sprintf("email not verified for user %d", e.UserID)
}

// AuthService - операции над пользователями. Каждая выполняется в одной транзакции.
type AuthService interface {
	Register(ctx context.Context, email, password, nickname string) (*Registration, error)
	Verify(ctx context.Context, userID int64, code string) error
	Login(ctx context.Context, email, password string) (*models.User, error)
	LoginByID(ctx context.Context, userID int64, password string) (*models.User, error)
	ForgotPassword(ctx context.Context, email string) (*PasswordReset, error)
	ResetPassword(ctx context.Context, userID int64, code, newPassword string) error
	UpdateNickname(ctx context.Context, userID int64, nickname string) error
}

// Registration - результат регистрации. Код возвращается клиенту напрямую, письма не отправляются.
type Registration struct {
	UserID           int64
	VerificationCode string
}

type PasswordReset struct {
	UserID    int64
	ResetCode string
	ExpiresAt time.Time
}

type Options struct {
	ResetCodeTTL time.Duration
	// EnforceResetExpiry включает проверку reset_code_expires при сбросе пароля.
	// По умолчанию срок сохраняется, но не проверяется.
	EnforceResetExpiry bool
	Now                func() time.Time
}

type authService struct {
	log      *slog.Logger
	db       *sql.DB
	userRepo storage.UserStorage
	hasher   passhash.Hasher
	codes    otp.Generator
	opts     Options
}

func NewAuthService(log *slog.Logger, db *sql.DB, userRepo storage.UserStorage, hasher passhash.Hasher, codes otp.Generator, opts Options) AuthService {
	if opts.ResetCodeTTL <= 0 {
		opts.ResetCodeTTL = DefaultResetCodeTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &authService{
		log:      log,
		db:       db,
		userRepo: userRepo,
		hasher:   hasher,
		codes:    codes,
		opts:     opts,
	}
}

// Register создаёт неподтверждённого пользователя и возвращает код подтверждения
func (s *authService) Register(ctx context.Context, email, password, nickname string) (*Registration, error) {
	const op = "service.AuthService.Register"
	logger := s.log.With(slog.String("op", op), slog.String("email", email))

	var reg *Registration
	err := s.withTx(ctx, logger, func(tx *sql.Tx) error {
		exists, err := s.userRepo.EmailExists(ctx, tx, email)
		if err != nil {
			return fmt.Errorf("%s: failed to check email: %w", op, err)
		}
		if exists {
			return ErrEmailExists
		}

		if nickname != "" {
			taken, err := s.userRepo.NicknameTaken(ctx, tx, nickname, 0)
			if err != nil {
				return fmt.Errorf("%s: failed to check nickname: %w", op, err)
			}
			if taken {
				return ErrNicknameTaken
			}
		}

		code, err := s.codes.Generate()
		if err != nil {
			return fmt.Errorf("%s: failed to generate verification code: %w", op, err)
		}
		passHash, err := s.hasher.Hash(password)
		if err != nil {
			return fmt.Errorf("%s: failed to hash password: %w", op, err)
		}

		user, err := s.userRepo.CreateUser(ctx, tx, &models.User{
			Email:            email,
			PassHash:         passHash,
			Nickname:         &nickname,
			VerificationCode: code,
		})
		if err != nil {
			return fmt.Errorf("%s: failed to create user: %w", op, mapStorageErr(err))
		}

		reg = &Registration{UserID: user.ID, VerificationCode: code}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("user registered", slog.Int64("userID", reg.UserID))
	return reg, nil
}

// Verify помечает email подтверждённым. Повтор с тем же кодом тоже успешен.
func (s *authService) Verify(ctx context.Context, userID int64, code string) error {
	const op = "service.AuthService.Verify"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	err := s.withTx(ctx, logger, func(tx *sql.Tx) error {
		user, err := s.userRepo.GetUserByID(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return ErrInvalidVerificationCode
			}
			return fmt.Errorf("%s: failed to get user: %w", op, err)
		}
		if user.VerificationCode != code {
			return ErrInvalidVerificationCode
		}

		if err := s.userRepo.MarkVerified(ctx, tx, userID); err != nil {
			return fmt.Errorf("%s: failed to mark verified: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("email verified")
	return nil
}

// Login проверяет пароль по email. Неподтверждённый пользователь получает NotVerifiedError.
func (s *authService) Login(ctx context.Context, email, password string) (*models.User, error) {
	const op = "service.AuthService.Login"
	logger := s.log.With(slog.String("op", op), slog.String("email", email))

	return s.authenticate(ctx, logger, op, password, func(tx *sql.Tx) (*models.User, error) {
		return s.userRepo.GetUserByEmail(ctx, tx, email)
	})
}

// LoginByID - вход по id, используется клиентом сразу после подтверждения email
func (s *authService) LoginByID(ctx context.Context, userID int64, password string) (*models.User, error) {
	const op = "service.AuthService.LoginByID"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	return s.authenticate(ctx, logger, op, password, func(tx *sql.Tx) (*models.User, error) {
		return s.userRepo.GetUserByID(ctx, tx, userID)
	})
}

func (s *authService) authenticate(ctx context.Context, logger *slog.Logger, op, password string, lookup func(tx *sql.Tx) (*models.User, error)) (*models.User, error) {
	var user *models.User
	err := s.withTx(ctx, logger, func(tx *sql.Tx) error {
		u, err := lookup(tx)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return ErrInvalidCredentials
			}
			return fmt.Errorf("%s: failed to get user: %w", op, err)
		}
		if !s.hasher.Compare(u.PassHash, password) {
			return ErrInvalidCredentials
		}
		if !u.IsVerified {
			return &NotVerifiedError{UserID: u.ID}
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return user, nil
}

// ForgotPassword выдаёт код сброса со сроком now+ResetCodeTTL
func (s *authService) ForgotPassword(ctx context.Context, email string) (*PasswordReset, error) {
	const op = "service.AuthService.ForgotPassword"
	logger := s.log.With(slog.String("op", op), slog.String("email", email))

	var reset *PasswordReset
	err := s.withTx(ctx, logger, func(tx *sql.Tx) error {
		user, err := s.userRepo.GetUserByEmail(ctx, tx, email)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return ErrEmailNotFound
			}
			return fmt.Errorf("%s: failed to get user: %w", op, err)
		}

		code, err := s.codes.Generate()
		if err != nil {
			return fmt.Errorf("%s: failed to generate reset code: %w", op, err)
		}
		expires := s.opts.Now().Add(s.opts.ResetCodeTTL)

		if err := s.userRepo.SetResetCode(ctx, tx, user.ID, code, expires); err != nil {
			return fmt.Errorf("%s: failed to store reset code: %w", op, err)
		}

		reset = &PasswordReset{UserID: user.ID, ResetCode: code, ExpiresAt: expires}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("reset code issued", slog.Int64("userID", reset.UserID), slog.Time("expires", reset.ExpiresAt))
	return reset, nil
}

// ResetPassword меняет пароль по коду сброса и очищает код
func (s *authService) ResetPassword(ctx context.Context, userID int64, code, newPassword string) error {
	const op = "service.AuthService.ResetPassword"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	err := s.withTx(ctx, logger, func(tx *sql.Tx) error {
		user, err := s.userRepo.GetUserByID(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return ErrInvalidResetCode
			}
			return fmt.Errorf("%s: failed to get user: %w", op, err)
		}
		if user.ResetCode == nil || *user.ResetCode != code {
			return ErrInvalidResetCode
		}
		if s.opts.EnforceResetExpiry && user.ResetCodeExpires != nil && s.opts.Now().After(*user.ResetCodeExpires) {
			return ErrResetCodeExpired
		}

		passHash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return fmt.Errorf("%s: failed to hash password: %w", op, err)
		}
		if err := s.userRepo.UpdatePassword(ctx, tx, userID, passHash); err != nil {
			return fmt.Errorf("%s: failed to update password: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("password reset")
	return nil
}

// UpdateNickname меняет никнейм. Свой текущий никнейм занятым не считается.
func (s *authService) UpdateNickname(ctx context.Context, userID int64, nickname string) error {
	const op = "service.AuthService.UpdateNickname"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.String("nickname", nickname))

	err := s.withTx(ctx, logger, func(tx *sql.Tx) error {
		taken, err := s.userRepo.NicknameTaken(ctx, tx, nickname, userID)
		if err != nil {
			return fmt.Errorf("%s: failed to check nickname: %w", op, err)
		}
		if taken {
			return ErrNicknameTaken
		}

		if err := s.userRepo.UpdateNickname(ctx, tx, userID, nickname); err != nil {
			return fmt.Errorf("%s: failed to update nickname: %w", op, mapStorageErr(err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("nickname updated")
	return nil
}

// withTx открывает транзакцию на время fn. Коммит только при успехе, иначе откат, в том числе при панике.
func (s *authService) withTx(ctx context.Context, logger *slog.Logger, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Warn("request rejected", slog.Any("error", err))
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			logger.Error("failed to commit transaction", slog.Any("error", cErr))
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	return fn(tx)
}

func mapStorageErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrEmailExists):
		return ErrEmailExists
	case errors.Is(err, storage.ErrNicknameTaken):
		return ErrNicknameTaken
	case errors.Is(err, storage.ErrUserNotFound):
		return ErrUserNotFound
	}
	return err
}
