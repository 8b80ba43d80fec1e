package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"starter-api/internal/domain"
	"starter-api/internal/email"
	"starter-api/internal/repository"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("email not verified")
	ErrPasswordMismatch   = errors.New("password not matched")
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrRateLimited        = errors.New("rate limited")
)

const otpEmailSubject = "Reset Password OTP"

// AuthService orquesta registro, login, refresco de tokens y los flujos de
// verificación y recuperación de contraseña.
type AuthService struct {
	logger     *zap.Logger
	users      repository.UserRepository
	hasher     *PasswordHasher
	otp        *OTPService
	tokens     *TokenService
	sender     email.Sender
	otpLimiter OTPRateLimiter
	appName    string

	// Con requireVerification los registros nuevos quedan sin verificar y
	// el login se bloquea hasta completar verify-email.
	requireVerification bool
}

func NewAuthService(
	logger *zap.Logger,
	users repository.UserRepository,
	hasher *PasswordHasher,
	otp *OTPService,
	tokens *TokenService,
	sender email.Sender,
	otpLimiter OTPRateLimiter,
	requireVerification bool,
) *AuthService {
	if otpLimiter == nil {
		otpLimiter = NewOTPRateLimiter(otpTTL, 3)
	}
	return &AuthService{
		logger:              logger,
		users:               users,
		hasher:              hasher,
		otp:                 otp,
		tokens:              tokens,
		sender:              sender,
		otpLimiter:          otpLimiter,
		appName:             "StarterAPI",
		requireVerification: requireVerification,
	}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type LoginResult struct {
	User         domain.User
	AccessToken  string
	RefreshToken string
}

// Register crea un usuario nuevo. No emite tokens; el login es un paso aparte.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	emailAddr := normalizeEmail(input.Email)

	_, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		return domain.User{}, ErrEmailTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        emailAddr,
		PasswordHash: passwordHash,
		Role:         domain.RoleUser,
		ProfileImage: defaultProfileImage(),
		Verified:     !s.requireVerification,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Login valida credenciales y emite el par de tokens. Un email desconocido y
// una contraseña incorrecta producen exactamente el mismo error.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !s.hasher.Matches(password, user.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !user.Verified {
		return LoginResult{}, ErrNotVerified
	}
	return s.issuePair(user)
}

// Refresh valida un refresh token y emite solo un access token nuevo.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return s.tokens.IssueAccess(user)
}

// ForgotPassword emite un OTP y lo envía por correo.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if s.otpLimiter != nil && !s.otpLimiter.Allow(emailAddr) {
		return ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}

	code, err := s.otp.Issue(ctx, &user)
	if err != nil {
		return err
	}

	if err := s.sender.Send(ctx, user.Email, otpEmailSubject, email.OTPTemplate(code, user.Email, s.appName)); err != nil {
		if s.logger != nil {
			s.logger.Warn("send otp email failed", zap.Error(err), zap.String("email", user.Email))
		}
		return ErrEmailSendFailure
	}
	return nil
}

// VerifyEmail consume el OTP vigente y marca el usuario como verificado.
func (s *AuthService) VerifyEmail(ctx context.Context, emailAddr, code string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if err := s.otp.Verify(&user, code); err != nil {
		return err
	}
	return s.users.SetVerified(ctx, user.ID)
}

// ResetPassword guarda la nueva contraseña, descarta el OTP y devuelve un par
// de tokens nuevo (auto-login tras el reset).
func (s *AuthService) ResetPassword(ctx context.Context, emailAddr, newPassword string) (LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginResult{}, ErrUserNotFound
		}
		return LoginResult{}, err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return LoginResult{}, err
	}

	user.PasswordHash = passwordHash
	user.OtpHash = ""
	user.OtpExpiresAt = nil
	return s.issuePair(user)
}

// ChangePassword exige la contraseña actual antes de guardar la nueva.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if !s.hasher.Matches(oldPassword, user.PasswordHash) {
		return ErrPasswordMismatch
	}
	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, passwordHash)
}

func (s *AuthService) issuePair(user domain.User) (LoginResult, error) {
	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func defaultProfileImage() string {
	idx := int64(0)
	if n, err := rand.Int(rand.Reader, big.NewInt(1000)); err == nil {
		idx = n.Int64()
	}
	return fmt.Sprintf("https://avatar.iran.liara.run/public/%d.png", idx)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
