package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/medrescue-api/internal/models"
	"github.com/harentsoaR/medrescue-api/internal/utils"
)

type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	OTP             string `json:"otp" binding:"required,len=6,numeric"`
	FirstName       string `json:"firstName" binding:"required"`
	LastName        string `json:"lastName" binding:"required"`
	MobileNumber    string `json:"mobileNumber" binding:"required"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
	Address         string `json:"address"`
	DateOfBirth     string `json:"dateOfBirth"`
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AccountService struct {
	users  UserRepository
	mailer Mailer
	jwt    *utils.JWTManager
	otpTTL time.Duration
	log    *zap.Logger
	now    func() time.Time
	newOTP func() (string, error)
}

func NewAccountService(users UserRepository, mailer Mailer, jwt *utils.JWTManager, otpTTL time.Duration, log *zap.Logger) *AccountService {
	return &AccountService{
		users:  users,
		mailer: mailer,
		jwt:    jwt,
		otpTTL: otpTTL,
		log:    log,
		now:    time.Now,
		newOTP: utils.GenerateOTP,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SendOTP emails a fresh verification code. An unverified placeholder user is
// created for unknown addresses so the code has somewhere to live.
func (s *AccountService) SendOTP(ctx context.Context, email, firstName string) error {
	email = normalizeEmail(email)
	otp, err := s.newOTP()
	if err != nil {
		return err
	}
	expiry := s.now().UTC().Add(s.otpTTL)

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		now := s.now().UTC()
		user = &models.User{
			Email:          email,
			FirstName:      firstName,
			EmailOTP:       otp,
			EmailOTPExpiry: &expiry,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
	case err != nil:
		return err
	case user.EmailVerified:
		return models.ErrEmailTaken
	default:
		if err := s.users.SetOTP(ctx, user.ID, otp, expiry, firstName); err != nil {
			return err
		}
	}

	if err := s.mailer.SendOTP(ctx, email, firstName, otp, s.otpTTL); err != nil {
		return fmt.Errorf("sending otp: %w", err)
	}
	s.log.Info("otp sent", zap.String("user_id", user.ID.Hex()))
	return nil
}

// VerifyOTP checks a code without consuming it; Register consumes it.
func (s *AccountService) VerifyOTP(ctx context.Context, email, otp string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	return s.checkOTP(user, otp)
}

func (s *AccountService) checkOTP(user *models.User, otp string) error {
	if user.EmailVerified {
		return ErrAlreadyVerified
	}
	if user.EmailOTP == "" || user.EmailOTPExpiry == nil {
		return ErrInvalidOTP
	}
	if !s.now().Before(*user.EmailOTPExpiry) {
		return ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(user.EmailOTP), []byte(strings.TrimSpace(otp))) != 1 {
		return ErrInvalidOTP
	}
	return nil
}

func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if req.Password != req.ConfirmPassword {
		return nil, invalid("passwords do not match")
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if err := s.checkOTP(user, req.OTP); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return nil, invalid(err.Error())
	}
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	reg := models.Registration{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		MobileNumber: strings.TrimSpace(req.MobileNumber),
		PasswordHash: hash,
		Address:      strings.TrimSpace(req.Address),
		DateOfBirth:  strings.TrimSpace(req.DateOfBirth),
	}
	if err := s.users.CompleteRegistration(ctx, user.ID, reg); err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.Hex()))
	return s.users.GetByID(ctx, user.ID)
}

func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateJWT(user.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}
	return &LoginResult{Token: token, User: user}, nil
}

func (s *AccountService) Me(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}
