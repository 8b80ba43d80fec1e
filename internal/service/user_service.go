package service

import (
	"context"
	"errors"
	"io"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"starter-api/internal/domain"
	"starter-api/internal/repository"
	"starter-api/internal/upload"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrNoUsersFound = errors.New("no users found")
	ErrUploadFailed = errors.New("image upload failed")
)

// UserService coordina las operaciones CRUD sobre usuarios.
type UserService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	uploader upload.Uploader
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, uploader upload.Uploader) *UserService {
	return &UserService{
		logger:   logger,
		users:    users,
		uploader: uploader,
	}
}

func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

type ListUsersResult struct {
	Users []domain.User
	Total int
	Page  int
	Limit int
}

func (s *UserService) List(ctx context.Context, filter repository.UserFilter) (ListUsersResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return ListUsersResult{}, err
	}
	if len(users) == 0 {
		return ListUsersResult{}, ErrNoUsersFound
	}
	return ListUsersResult{
		Users: users,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Bio       *string
	Phone     *string
	Location  *string
	Role      *domain.Role
	ImageName string
	Image     io.Reader
}

// Update aplica cambios de perfil. Si llega una imagen nueva la sube primero
// y recién después borra la anterior.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Bio != nil {
		user.Bio = *input.Bio
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.Location != nil {
		user.Location = *input.Location
	}
	if input.Role != nil && input.Role.IsValid() {
		user.Role = *input.Role
	}

	if input.Image != nil {
		uploaded, err := s.uploader.Upload(ctx, input.ImageName, input.Image)
		if err != nil || uploaded.URL == "" {
			if s.logger != nil {
				s.logger.Warn("profile image upload failed", zap.Error(err), zap.String("user_id", id))
			}
			return domain.User{}, ErrUploadFailed
		}
		oldPublicID := user.ProfileImagePublicID
		user.ProfileImage = uploaded.URL
		user.ProfileImagePublicID = uploaded.PublicID
		if oldPublicID != "" {
			if err := s.uploader.Delete(ctx, oldPublicID); err != nil && s.logger != nil {
				s.logger.Warn("delete old profile image failed", zap.Error(err), zap.String("public_id", oldPublicID))
			}
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
