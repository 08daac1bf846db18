package local

import (
	"context"
	"errors"
	"net/url"

	"github.com/MrEthical07/goAuthState/identity"
	"github.com/MrEthical07/goAuthState/internal"
	"github.com/MrEthical07/goAuthState/internal/stores"
)

func actionName(a stores.Action) string {
	if a == stores.ActionResetPassword {
		return ActionResetPassword
	}
	return ActionVerifyEmail
}

// actionLink builds the link mailed with code. With HandleCodeInApp the
// app URL receives the code directly; otherwise the hosted action page does
// and settings.URL becomes its continueUrl.
func (s *Service) actionLink(action stores.Action, code string, settings identity.ActionSettings) (string, error) {
	base := s.config.defaultActionURL()
	if settings.HandleCodeInApp && settings.URL != "" {
		base = settings.URL
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("mode", actionName(action))
	q.Set("oobCode", code)
	if s.config.APIKey != "" {
		q.Set("apiKey", s.config.APIKey)
	}
	if settings.URL != "" && !settings.HandleCodeInApp {
		q.Set("continueUrl", settings.URL)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Service) sendActionCode(ctx context.Context, a *account, action stores.Action, settings identity.ActionSettings) error {
	if settings.URL != "" {
		if _, err := url.ParseRequestURI(settings.URL); err != nil {
			return err
		}
	}

	id, err := internal.NewCodeID()
	if err != nil {
		return err
	}
	secret, err := internal.NewCodeSecret()
	if err != nil {
		return err
	}

	record := &stores.ActionCodeRecord{
		UserID:     a.UID,
		Email:      normalizeEmail(a.Email),
		Action:     action,
		SecretHash: internal.HashCodeSecret(secret),
		ExpiresAt:  s.now().Add(s.config.ActionCodeTTL).Unix(),
	}
	if err := s.codes.Save(ctx, id.String(), record, s.config.ActionCodeTTL); err != nil {
		return backendErr(err)
	}

	code := internal.EncodeActionCode(id, secret)
	link, err := s.actionLink(action, code, settings)
	if err != nil {
		return err
	}

	return s.mailer.Send(ctx, Message{
		To:     a.Email,
		Action: actionName(action),
		Code:   code,
		Link:   link,
	})
}

func (s *Service) sendPasswordReset(ctx context.Context, email string, settings identity.ActionSettings) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	a, err := s.accounts.byEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.sendActionCode(ctx, a, stores.ActionResetPassword, settings)
}

func (s *Service) sendVerification(ctx context.Context, uid string, settings identity.ActionSettings) error {
	a, err := s.accounts.get(ctx, uid)
	if err != nil {
		return err
	}
	if a.Email == "" {
		return identity.ErrInvalidEmail
	}
	return s.sendActionCode(ctx, a, stores.ActionVerifyEmail, settings)
}

// consumeCode redeems code for action and returns the account it was issued
// to. Codes issued before an email change are rejected.
func (s *Service) consumeCode(ctx context.Context, code string, action stores.Action) (*account, error) {
	id, secret, err := internal.DecodeActionCode(code)
	if err != nil {
		return nil, identity.ErrInvalidActionCode
	}

	record, err := s.codes.Consume(ctx, id.String(), internal.HashCodeSecret(secret), action, s.config.MaxActionCodeAttempts)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrActionCodeNotFound),
			errors.Is(err, stores.ErrActionCodeMismatch),
			errors.Is(err, stores.ErrActionCodeAttemptsExceeded):
			return nil, identity.ErrInvalidActionCode
		default:
			return nil, backendErr(err)
		}
	}

	a, err := s.accounts.get(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, identity.ErrInvalidActionCode
		}
		return nil, err
	}
	if normalizeEmail(a.Email) != record.Email {
		return nil, identity.ErrInvalidActionCode
	}
	return a, nil
}

// ApplyActionCode redeems an email verification code and marks the
// account's email as verified.
func (s *Service) ApplyActionCode(ctx context.Context, code string) error {
	a, err := s.consumeCode(ctx, code, stores.ActionVerifyEmail)
	if err != nil {
		return err
	}
	a.EmailVerified = true
	return s.accounts.put(ctx, a)
}

// ConfirmPasswordReset redeems a password reset code and sets newPassword.
// A password the policy rejects leaves the code unused.
func (s *Service) ConfirmPasswordReset(ctx context.Context, code, newPassword string) error {
	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}

	a, err := s.consumeCode(ctx, code, stores.ActionResetPassword)
	if err != nil {
		return err
	}

	a.PasswordHash = hash
	a.EmailVerified = true
	a.addProvider(identity.ProviderPassword)
	if err := s.accounts.put(ctx, a); err != nil {
		return err
	}

	if err := s.throttle.Reset(ctx, a.Email); err != nil {
		s.log.Error(err, "reset sign-in throttle", "uid", a.UID)
	}
	return nil
}
