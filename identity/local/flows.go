package local

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/MrEthical07/goAuthState/identity"
	"github.com/MrEthical07/goAuthState/internal/rate"
	"github.com/MrEthical07/goAuthState/internal/stores"
	"github.com/MrEthical07/goAuthState/password"
	"github.com/google/uuid"
)

func validateEmail(email string) error {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return identity.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return identity.ErrInvalidEmail
	}
	return nil
}

func (s *Service) hashPassword(pw string) (string, error) {
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) || errors.Is(err, password.ErrTooLong) {
			return "", identity.ErrWeakPassword
		}
		return "", err
	}
	return hash, nil
}

func (s *Service) signInWithPassword(ctx context.Context, email, pw string) (*account, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	if err := s.throttle.Check(ctx, email); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return nil, identity.ErrTooManyRequests
		}
		return nil, backendErr(err)
	}

	a, err := s.accounts.byEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if a.PasswordHash == "" {
		return nil, &identity.AccountExistsError{
			Email:      a.Email,
			Credential: identity.Credential{ProviderID: identity.ProviderPassword, Email: a.Email},
		}
	}

	ok, err := s.hasher.Verify(pw, a.PasswordHash)
	if err != nil && !errors.Is(err, password.ErrTooLong) {
		return nil, err
	}
	if !ok {
		if err := s.throttle.RecordFailure(ctx, email); err != nil && !errors.Is(err, rate.ErrRateLimited) {
			s.log.Error(err, "record sign-in failure", "email", email)
		}
		return nil, identity.ErrWrongPassword
	}

	if err := s.throttle.Reset(ctx, email); err != nil {
		s.log.Error(err, "reset sign-in throttle", "email", email)
	}

	if stale, err := s.hasher.NeedsRehash(a.PasswordHash); err == nil && stale {
		if hash, err := s.hasher.Hash(pw); err == nil {
			a.PasswordHash = hash
			if err := s.accounts.put(ctx, a); err != nil {
				s.log.Error(err, "store rehashed password", "uid", a.UID)
			}
		}
	}

	return a, nil
}

func (s *Service) createWithPassword(ctx context.Context, email, pw string) (*account, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(pw)
	if err != nil {
		return nil, err
	}

	a := &account{
		UID:          uuid.NewString(),
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Providers:    []identity.ProviderID{identity.ProviderPassword},
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.create(ctx, a); err != nil {
		return nil, err
	}

	s.log.V(1).Info("account created", "uid", a.UID, "provider", identity.ProviderPassword)
	return a, nil
}

func (s *Service) createAnonymous(ctx context.Context) (*account, error) {
	a := &account{
		UID:       uuid.NewString(),
		Anonymous: true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.accounts.create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func popupProvider(p identity.ProviderID) bool {
	return p == identity.ProviderGoogle || p == identity.ProviderFacebook
}

// signInFederated runs a popup for provider. A federated identity whose
// email already belongs to another account is parked as a pending
// credential and reported through *identity.AccountExistsError.
func (s *Service) signInFederated(ctx context.Context, provider identity.ProviderID, opts identity.PopupOptions) (*account, error) {
	if !popupProvider(provider) {
		return nil, identity.ErrUnsupportedProvider
	}

	fid, err := s.authorizer.Authorize(ctx, provider, opts)
	if err != nil {
		return nil, err
	}
	if fid.Subject == "" {
		return nil, identity.ErrInvalidCredential
	}

	a, err := s.accounts.byFederated(ctx, provider, fid.Subject)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, identity.ErrUserNotFound) {
		return nil, err
	}

	if fid.Email != "" {
		owner, err := s.accounts.byEmail(ctx, fid.Email)
		switch {
		case err == nil:
			return nil, s.parkCredential(ctx, provider, fid, owner)
		case !errors.Is(err, identity.ErrUserNotFound):
			return nil, err
		}
	}

	a = &account{
		UID:           uuid.NewString(),
		Email:         fid.Email,
		DisplayName:   fid.DisplayName,
		EmailVerified: fid.EmailVerified,
		Providers:     []identity.ProviderID{provider},
		Subjects:      map[identity.ProviderID]string{provider: fid.Subject},
		CreatedAt:     s.now().UTC(),
	}
	if err := s.accounts.create(ctx, a); err != nil {
		return nil, err
	}

	s.log.V(1).Info("account created", "uid", a.UID, "provider", provider)
	return a, nil
}

func (s *Service) parkCredential(ctx context.Context, provider identity.ProviderID, fid FederatedIdentity, owner *account) error {
	id := uuid.NewString()
	err := s.pending.Save(ctx, id, stores.PendingCredential{
		Provider: string(provider),
		Subject:  fid.Subject,
		Email:    fid.Email,
	}, s.config.PendingCredentialTTL)
	if err != nil {
		return backendErr(err)
	}

	return &identity.AccountExistsError{
		Email: owner.Email,
		Credential: identity.Credential{
			ProviderID: provider,
			Email:      fid.Email,
			Secret:     id,
		},
	}
}

func (s *Service) signInMethods(ctx context.Context, email string) ([]identity.ProviderID, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	a, err := s.accounts.byEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return append([]identity.ProviderID(nil), a.Providers...), nil
}

func (s *Service) updateEmail(ctx context.Context, uid, email string) (*account, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	a, err := s.accounts.get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.changeEmail(ctx, a, strings.TrimSpace(email)); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) updateProfile(ctx context.Context, uid string, profile identity.Profile) (*account, error) {
	a, err := s.accounts.get(ctx, uid)
	if err != nil {
		return nil, err
	}
	a.DisplayName = profile.DisplayName
	if err := s.accounts.put(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// linkCredential attaches a pending credential, issued by an earlier
// collision, to the account uid. Pending credentials are single use.
func (s *Service) linkCredential(ctx context.Context, uid string, cred identity.Credential) (*account, error) {
	if cred.Secret == "" {
		return nil, identity.ErrInvalidCredential
	}

	pending, err := s.pending.Take(ctx, cred.Secret)
	if err != nil {
		if errors.Is(err, stores.ErrPendingCredentialNotFound) {
			return nil, identity.ErrInvalidCredential
		}
		return nil, backendErr(err)
	}
	if cred.ProviderID != "" && string(cred.ProviderID) != pending.Provider {
		return nil, identity.ErrInvalidCredential
	}

	a, err := s.accounts.get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.link(ctx, a, identity.ProviderID(pending.Provider), pending.Subject); err != nil {
		return nil, err
	}

	s.log.V(1).Info("credential linked", "uid", a.UID, "provider", pending.Provider)
	return a, nil
}
