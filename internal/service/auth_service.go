package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/earnings-tracker/internal/errors"
	"github.com/earnings-tracker/internal/logging"
	"github.com/earnings-tracker/internal/models"
	"github.com/earnings-tracker/internal/security"
	"github.com/earnings-tracker/internal/storage"
)

// LoginInput represents the login request body
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is returned on successful login
type LoginResult struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

// SignupJob is one job submitted at signup
type SignupJob struct {
	Title      string  `json:"title"`
	HourlyRate float64 `json:"hourlyRate"`
	BreakTime  float64 `json:"breakTime"`
}

// SignupInput represents the signup request body
type SignupInput struct {
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	Password        string      `json:"password"`
	DefaultCurrency string      `json:"defaultCurrency,omitempty"`
	Timezone        string      `json:"timezone"`
	Jobs            []SignupJob `json:"jobs"`
}

// SignupResult is returned for a newly registered user
type SignupResult struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// AuthService handles login and account creation
type AuthService struct {
	users  UserRepository
	tokens TokenIssuer

	hashPassword   func(password string) (string, error)
	verifyPassword func(password, encoded string) bool
}

// NewAuthService creates a new auth service
func NewAuthService(users UserRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{
		users:          users,
		tokens:         tokens,
		hashPassword:   security.HashPassword,
		verifyPassword: security.VerifyPassword,
	}
}

// Login checks the credentials and issues a token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewUnauthorizedError("Invalid email or password")
		}
		return nil, apperrors.NewDatabaseError("login", err)
	}

	if !s.verifyPassword(input.Password, user.PasswordHash) {
		return nil, apperrors.NewUnauthorizedError("Invalid email or password")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue token", err)
	}

	return &LoginResult{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Token:    token,
	}, nil
}

// Signup registers a user together with their jobs. The user, jobs and stats
// row are created atomically.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*SignupResult, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Timezone = strings.TrimSpace(input.Timezone)

	if err := validateSignup(input); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, apperrors.NewDatabaseError("signup", err)
	}
	if exists {
		return nil, apperrors.NewEmailInUseError()
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return nil, apperrors.NewValidationError(err.Error())
		}
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	currency := strings.ToUpper(strings.TrimSpace(input.DefaultCurrency))
	if currency == "" {
		currency = models.DefaultCurrency
	}

	user := &models.User{
		Username:     input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Currency:     currency,
		Timezone:     input.Timezone,
	}

	jobs := make([]models.NewJob, len(input.Jobs))
	for i, j := range input.Jobs {
		jobs[i] = models.NewJob{
			Title:      strings.TrimSpace(j.Title),
			HourlyRate: j.HourlyRate,
			BreakHours: j.BreakTime,
		}
	}

	if err := s.users.CreateAccount(ctx, user, jobs); err != nil {
		// a concurrent signup can win the race past ExistsByEmail
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil, apperrors.NewEmailInUseError()
		}
		return nil, apperrors.NewDatabaseError("signup", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		logging.FieldUserID: user.ID,
		"jobs":              len(jobs),
	}).Info("User registered")

	return &SignupResult{UserID: user.ID, Email: user.Email}, nil
}

// Upper bounds of the NUMERIC(10,2) and NUMERIC(6,2) job columns
const (
	maxHourlyRate = 1e8
	maxBreakHours = 1e4
)

func validateSignup(input SignupInput) error {
	if input.Name == "" || input.Email == "" || input.Password == "" || input.Timezone == "" {
		return apperrors.NewValidationError("Name, email, password, and timezone are required")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return apperrors.NewInvalidParameterError("email", "not a valid email address")
	}
	if _, err := time.LoadLocation(input.Timezone); err != nil {
		return apperrors.NewInvalidParameterError("timezone", "unknown time zone")
	}
	if len(input.Jobs) == 0 {
		return apperrors.NewValidationError("At least one job is required")
	}
	for _, j := range input.Jobs {
		if strings.TrimSpace(j.Title) == "" {
			return apperrors.NewValidationError("Every job requires a title")
		}
		if j.HourlyRate < 0 || j.BreakTime < 0 {
			return apperrors.NewValidationError("Hourly rate and break time cannot be negative")
		}
		if models.Round2(j.HourlyRate) >= maxHourlyRate {
			return apperrors.NewInvalidParameterError("hourlyRate", "must be less than 100000000")
		}
		if models.Round2(j.BreakTime) >= maxBreakHours {
			return apperrors.NewInvalidParameterError("breakTime", "must be less than 10000")
		}
	}
	return nil
}
