package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"starter-api/internal/domain"
	"starter-api/internal/repository"
)

const otpTTL = 5 * time.Minute

var (
	ErrOTPMissing = errors.New("otp not found")
	ErrOTPExpired = errors.New("otp expired")
	ErrOTPInvalid = errors.New("otp invalid")
)

// OTPService genera, guarda y verifica códigos de un solo uso.
type OTPService struct {
	hasher *PasswordHasher
	users  repository.UserRepository
}

func NewOTPService(hasher *PasswordHasher, users repository.UserRepository) *OTPService {
	return &OTPService{hasher: hasher, users: users}
}

// Generate produce un código de 6 dígitos uniforme en [100000, 999999].
func (s *OTPService) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Issue genera un código, persiste su hash con vencimiento y devuelve el
// código en claro solo para entregarlo por correo.
func (s *OTPService) Issue(ctx context.Context, user *domain.User) (string, error) {
	code, err := s.Generate()
	if err != nil {
		return "", err
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return "", err
	}
	expiresAt := time.Now().UTC().Add(otpTTL)
	if err := s.users.UpdateOTP(ctx, user.ID, hash, expiresAt); err != nil {
		return "", err
	}
	user.OtpHash = hash
	user.OtpExpiresAt = &expiresAt
	return code, nil
}

// Verify compara el código contra el hash guardado. El vencimiento se
// comprueba antes de comparar. En éxito limpia ambos campos en memoria;
// persistir esa mutación queda a cargo del caller.
func (s *OTPService) Verify(user *domain.User, code string) error {
	if user.OtpHash == "" || user.OtpExpiresAt == nil {
		return ErrOTPMissing
	}
	if time.Now().UTC().After(*user.OtpExpiresAt) {
		return ErrOTPExpired
	}
	if !s.hasher.Matches(code, user.OtpHash) {
		return ErrOTPInvalid
	}
	user.OtpHash = ""
	user.OtpExpiresAt = nil
	return nil
}
