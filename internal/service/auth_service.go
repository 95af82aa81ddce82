package service

import (
	"errors"
	"strings"

	"trade-review/internal/config"
	"trade-review/internal/models"
	"trade-review/internal/repository"
	"trade-review/internal/utils"
)

type AuthService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

func (s *AuthService) Login(req models.LoginRequest) (*models.LoginResponse, error) {
	// Find user by username
	user, err := s.userRepo.FindByUsername(req.Username)
	if err != nil {
		return nil, errors.New("invalid username or password")
	}

	// Check if user is active
	if !user.IsActive {
		return nil, errors.New("user account is inactive")
	}

	// Verify password
	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, errors.New("invalid username or password")
	}

	// Generate JWT tokens
	accessToken, err := utils.GenerateAccessToken(*user, s.cfg.JWTSecret, s.cfg.JWTAccessExpire)
	if err != nil {
		return nil, errors.New("failed to generate access token")
	}

	refreshToken, err := utils.GenerateRefreshToken(*user, s.cfg.JWTSecret, s.cfg.JWTRefreshExpire)
	if err != nil {
		return nil, errors.New("failed to generate refresh token")
	}

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         *user,
	}, nil
}

func (s *AuthService) Register(req models.RegisterRequest) (*models.User, error) {
	if err := ValidateUsername(req.Username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	// Check if username already exists
	if existing, _ := s.userRepo.FindByUsername(req.Username); existing != nil {
		return nil, errors.New("username already exists")
	}
	if req.Email != "" {
		if existing, _ := s.userRepo.FindByEmail(req.Email); existing != nil {
			return nil, errors.New("email already exists")
		}
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &models.User{
		Name:         req.Name,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         "user",
		IsActive:     true,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *AuthService) GetUserByID(id int) (*models.User, error) {
	return s.userRepo.FindByID(id)
}

// ValidateUsername enforces the account naming rules: 3-50 characters,
// letters, digits, hyphens and underscores only.
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New("username is required")
	}
	if len(username) < 3 {
		return errors.New("username must be at least 3 characters long")
	}
	if len(username) > 50 {
		return errors.New("username must be less than 50 characters")
	}
	stripped := strings.NewReplacer("_", "", "-", "").Replace(username)
	for _, r := range stripped {
		if !isAlnum(r) {
			return errors.New("username can only contain letters, numbers, hyphens, and underscores")
		}
	}
	return nil
}

// ValidatePassword enforces the password length rules (6-128 characters).
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if len(password) < 6 {
		return errors.New("password must be at least 6 characters long")
	}
	if len(password) > 128 {
		return errors.New("password must be less than 128 characters")
	}
	return nil
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
