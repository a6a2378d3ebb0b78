package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	apperrors "motorent/internal/errors"
	"motorent/internal/repository"
)

type StaffAuthService interface {
	Login(email, password string) (string, error)
	CreateStaff(email, password string) error
}

type staffAuthService struct {
	repo      repository.StaffAuthRepository
	jwtSecret string
}

func NewStaffAuthService(repo repository.StaffAuthRepository, jwtSecret string) StaffAuthService {
	return &staffAuthService{repo: repo, jwtSecret: jwtSecret}
}

// Login checks the credentials and issues a short-lived HS256 token.
// Unknown email and wrong password are indistinguishable to the
// caller.
func (s *staffAuthService) Login(email, password string) (string, error) {
	account, err := s.repo.GetByEmail(email)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", apperrors.Unauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", apperrors.Unauthorized("invalid credentials")
	}

	claims := jwt.MapClaims{
		"staff_id": account.ID,
		"email":    account.Email,
		"exp":      time.Now().Add(time.Hour * 8).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *staffAuthService) CreateStaff(email, password string) error {
	if email == "" || password == "" {
		return apperrors.Validation("email and password cannot be empty")
	}
	return s.repo.CreateAccount(email, password)
}
