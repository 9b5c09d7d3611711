package services

import (
	"errors"
	"testing"
	"time"

	"github.com/harentsoaR/medrescue-api/internal/models"
)

func registerRequest(email, otp string) RegisterRequest {
	return RegisterRequest{
		Email:           email,
		OTP:             otp,
		FirstName:       "New",
		LastName:        "Patient",
		MobileNumber:    "555-0123",
		Password:        "correct horse",
		ConfirmPassword: "correct horse",
	}
}

func TestRegistrationFlow(t *testing.T) {
	f := newFixture(t)
	email := "new@example.com"

	if err := f.accounts.SendOTP(f.ctx, " New@Example.com ", "New"); err != nil {
		t.Fatal(err)
	}
	sent := f.mailer.last()
	if sent.to != email || len(sent.otp) != 6 {
		t.Fatalf("mail = %+v", sent)
	}

	if err := f.accounts.VerifyOTP(f.ctx, email, "000000x"); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("wrong otp: err = %v", err)
	}
	if err := f.accounts.VerifyOTP(f.ctx, email, sent.otp); err != nil {
		t.Errorf("VerifyOTP: %v", err)
	}

	if _, err := f.accounts.Login(f.ctx, email, "correct horse"); !errors.Is(err, ErrEmailNotVerified) {
		t.Errorf("login before registration: err = %v", err)
	}

	u, err := f.accounts.Register(f.ctx, registerRequest(email, sent.otp))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !u.EmailVerified || u.EmailOTP != "" || u.FullName() != "New Patient" {
		t.Errorf("user = %+v", u)
	}

	res, err := f.accounts.Login(f.ctx, email, "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" || res.User.ID != u.ID {
		t.Errorf("login = %+v", res)
	}
	if _, err := f.accounts.Login(f.ctx, email, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad password: err = %v", err)
	}

	if err := f.accounts.SendOTP(f.ctx, email, "New"); !errors.Is(err, models.ErrEmailTaken) {
		t.Errorf("otp for verified email: err = %v", err)
	}
}

func TestOTPExpires(t *testing.T) {
	f := newFixture(t)
	email := "late@example.com"
	if err := f.accounts.SendOTP(f.ctx, email, "Late"); err != nil {
		t.Fatal(err)
	}
	otp := f.mailer.last().otp

	f.now = f.now.Add(10 * time.Minute)
	if err := f.accounts.VerifyOTP(f.ctx, email, otp); !errors.Is(err, ErrOTPExpired) {
		t.Errorf("err = %v", err)
	}
	if _, err := f.accounts.Register(f.ctx, registerRequest(email, otp)); !errors.Is(err, ErrOTPExpired) {
		t.Errorf("register with expired otp: err = %v", err)
	}
}

func TestResendReplacesOTP(t *testing.T) {
	f := newFixture(t)
	email := "again@example.com"
	codes := []string{"111111", "222222"}
	f.accounts.newOTP = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	_ = f.accounts.SendOTP(f.ctx, email, "A")
	if err := f.accounts.SendOTP(f.ctx, email, "A"); err != nil {
		t.Fatal(err)
	}
	if err := f.accounts.VerifyOTP(f.ctx, email, "111111"); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("old code: err = %v", err)
	}
	if err := f.accounts.VerifyOTP(f.ctx, email, "222222"); err != nil {
		t.Errorf("new code: %v", err)
	}
}

func TestRegisterRejectsMismatchedPasswords(t *testing.T) {
	f := newFixture(t)
	req := registerRequest("x@example.com", "123456")
	req.ConfirmPassword = "different"

	_, err := f.accounts.Register(f.ctx, req)
	assertInvalid(t, err)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newFixture(t)
	if _, err := f.accounts.Login(f.ctx, "ghost@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v", err)
	}
}
