package goAuthState

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAuthState/identity"
	"github.com/go-logr/logr"
)

/*
====================================
EMAIL / PASSWORD
====================================
*/

// SignUpWithEmailAndPassword creates a password account, sends the
// verification email, sets the display name and publishes the new session.
//
// The steps are not transactional: a failure after the account was created
// leaves the account in place. On any failure the store is restored to the
// session observed before the attempt. Failures go to h.OnError when set;
// otherwise they are logged and nil is returned unless
// Config.SignUp.PropagateUnhandledErrors is true.
func (g *Gateway) SignUpWithEmailAndPassword(ctx context.Context, email, password, displayName string, h Handlers) error {
	const op = "sign_up_with_email_and_password"
	if err := g.ready(); err != nil {
		return err
	}
	ctx, log := g.begin(ctx, op)

	snap := g.store.Snapshot()
	g.publish(log, LoadingSession())

	u, err := g.signUp(ctx, email, password, displayName)
	if err != nil {
		log.Error(err, "sign-up failed", "uid", u.UID)
		g.metrics.Inc(MetricSignUpFailure)
		g.rollback(ctx, log, op, snap)
		g.emitAudit(ctx, auditEventSignUpFailure, op, identity.ProviderPassword, false, u.UID, err, func() map[string]string {
			if u.UID == "" {
				return nil
			}
			return map[string]string{"account_created": "true"}
		})

		if h.OnError != nil {
			return h.route(err)
		}
		if g.config.SignUp.PropagateUnhandledErrors {
			return err
		}
		return nil
	}

	token, err := g.resolveToken(ctx, u)
	if err != nil {
		log.Error(err, "token resolution failed", "uid", u.UID)
		g.metrics.Inc(MetricSignUpFailure)
		g.rollback(ctx, log, op, snap)
		g.emitAudit(ctx, auditEventTokenFailure, op, identity.ProviderPassword, false, u.UID, err, nil)
		if h.OnError != nil || g.config.SignUp.PropagateUnhandledErrors {
			return h.route(err)
		}
		return nil
	}

	g.metrics.Inc(MetricSignUpSuccess)
	g.publish(log, sessionForUser(u, token))
	g.emitAudit(ctx, auditEventSignUpSuccess, op, identity.ProviderPassword, true, u.UID, nil, nil)
	h.success(u)
	return nil
}

// signUp runs the sign-up steps in order and stops at the first failure. The
// returned user carries the UID whenever the account was created, even on
// error.
func (g *Gateway) signUp(ctx context.Context, email, password, displayName string) (identity.User, error) {
	u, err := g.client.CreateUserWithEmailAndPassword(ctx, email, password)
	if err != nil {
		return identity.User{}, wrap(ErrAccountCreationFailed, err)
	}

	if g.config.SignUp.SendVerificationEmail {
		if err := g.client.SendEmailVerification(ctx, u, g.config.actionSettings()); err != nil {
			g.metrics.Inc(MetricEmailActionFailure)
			return u, wrap(ErrEmailOperationFailed, err)
		}
		g.metrics.Inc(MetricEmailActionSent)
	}

	updated, err := g.client.UpdateProfile(ctx, u, identity.Profile{DisplayName: displayName})
	if err != nil {
		g.metrics.Inc(MetricProfileUpdateFailure)
		return u, wrap(ErrProfileUpdateFailed, err)
	}
	g.metrics.Inc(MetricProfileUpdate)

	return updated, nil
}

// SignInWithEmailAndPassword signs in a password account. On failure the
// store is restored to the session observed before the attempt.
//
// If the email belongs to an account registered under another method the
// result is always an error matching [ErrEmailAlreadyUsedForAuthentication],
// even when h.OnError is set. Other failures go to h.OnError when set and are
// otherwise returned wrapped in [ErrPasswordSignInFailed].
func (g *Gateway) SignInWithEmailAndPassword(ctx context.Context, email, password string, h Handlers) error {
	const op = "sign_in_with_email_and_password"
	if err := g.ready(); err != nil {
		return err
	}
	ctx, log := g.begin(ctx, op)

	snap := g.store.Snapshot()
	g.publish(log, LoadingSession())

	start := time.Now()
	u, err := g.client.SignInWithEmailAndPassword(ctx, email, password)
	g.metrics.Observe(MetricSignInLatency, time.Since(start))
	if err != nil {
		g.metrics.Inc(MetricSignInFailure)
		g.rollback(ctx, log, op, snap)

		if errors.Is(err, identity.ErrAccountExistsWithDifferentCredential) {
			err = wrap(ErrEmailAlreadyUsedForAuthentication, err)
			log.Error(err, "password sign-in refused")
			g.metrics.Inc(MetricCredentialCollision)
			g.emitAudit(ctx, auditEventCredentialCollision, op, identity.ProviderPassword, false, "", err, nil)
			return err
		}

		err = wrap(ErrPasswordSignInFailed, err)
		log.Error(err, "password sign-in failed")
		g.emitAudit(ctx, auditEventSignInFailure, op, identity.ProviderPassword, false, "", err, nil)
		return h.route(err)
	}

	token, err := g.resolveToken(ctx, u)
	if err != nil {
		log.Error(err, "token resolution failed", "uid", u.UID)
		g.metrics.Inc(MetricSignInFailure)
		g.rollback(ctx, log, op, snap)
		g.emitAudit(ctx, auditEventTokenFailure, op, identity.ProviderPassword, false, u.UID, err, nil)
		return h.route(wrap(ErrPasswordSignInFailed, err))
	}

	g.metrics.Inc(MetricSignInSuccess)
	g.publish(log, sessionForUser(u, token))
	g.emitAudit(ctx, auditEventSignInSuccess, op, identity.ProviderPassword, true, u.UID, nil, nil)
	h.success(u)
	return nil
}

/*
====================================
ACCOUNT MUTATIONS
====================================
*/

// currentUser returns the client's signed-in user or identity.ErrNoCurrentUser.
func (g *Gateway) currentUser() (identity.User, error) {
	u, ok := g.client.CurrentUser()
	if !ok {
		return identity.User{}, identity.ErrNoCurrentUser
	}
	return u, nil
}

// UpdateEmailAddress changes the signed-in user's email. The session is not
// republished.
func (g *Gateway) UpdateEmailAddress(ctx context.Context, email string, h Handlers) error {
	const op = "update_email_address"
	if err := g.ready(); err != nil {
		return err
	}
	ctx, log := g.begin(ctx, op)

	u, err := g.currentUser()
	if err == nil {
		var updated identity.User
		if updated, err = g.client.UpdateEmail(ctx, u, email); err == nil {
			u = updated
		}
	}
	if err != nil {
		return g.failProfile(ctx, log, op, u.UID, err, h)
	}

	g.metrics.Inc(MetricProfileUpdate)
	g.emitAudit(ctx, auditEventProfileUpdated, op, "", true, u.UID, nil, func() map[string]string {
		return map[string]string{"field": "email"}
	})
	h.success(u)
	return nil
}

// UpdateDisplayName sets the signed-in user's display name. Failures are
// logged and returned.
func (g *Gateway) UpdateDisplayName(ctx context.Context, name string) error {
	const op = "update_display_name"
	if err := g.ready(); err != nil {
		return err
	}
	ctx, log := g.begin(ctx, op)

	u, err := g.currentUser()
	if err == nil {
		_, err = g.client.UpdateProfile(ctx, u, identity.Profile{DisplayName: name})
	}
	if err != nil {
		return g.failProfile(ctx, log, op, u.UID, err, Handlers{})
	}

	g.metrics.Inc(MetricProfileUpdate)
	g.emitAudit(ctx, auditEventProfileUpdated, op, "", true, u.UID, nil, func() map[string]string {
		return map[string]string{"field": "display_name"}
	})
	return nil
}

func (g *Gateway) failProfile(ctx context.Context, log logr.Logger, op, uid string, cause error, h Handlers) error {
	err := wrap(ErrProfileUpdateFailed, cause)
	log.Error(err, "profile update failed", "uid", uid)
	g.metrics.Inc(MetricProfileUpdateFailure)
	g.emitAudit(ctx, auditEventProfileUpdateFailure, op, "", false, uid, err, nil)
	return h.route(err)
}

// SendPasswordResetEmail sends a reset link to email. The session is not
// changed.
func (g *Gateway) SendPasswordResetEmail(ctx context.Context, email string, h Handlers) error {
	const op = "send_password_reset_email"
	if err := g.ready(); err != nil {
		return err
	}
	ctx, log := g.begin(ctx, op)

	if err := g.client.SendPasswordResetEmail(ctx, email, g.config.actionSettings()); err != nil {
		return g.failEmailAction(ctx, log, op, "", err, h)
	}

	g.emailActionSent(ctx, op, "", "password_reset")
	if h.OnSuccess != nil {
		h.OnSuccess(identity.User{Email: email})
	}
	return nil
}

// SendEmailVerification sends a verification link to the signed-in user.
func (g *Gateway) SendEmailVerification(ctx context.Context, h Handlers) error {
	const op = "send_email_verification"
	if err := g.ready(); err != nil {
		return err
	}
	ctx, log := g.begin(ctx, op)

	u, err := g.currentUser()
	if err == nil {
		err = g.client.SendEmailVerification(ctx, u, g.config.actionSettings())
	}
	if err != nil {
		return g.failEmailAction(ctx, log, op, u.UID, err, h)
	}

	g.emailActionSent(ctx, op, u.UID, "verify_email")
	h.success(u)
	return nil
}

func (g *Gateway) emailActionSent(ctx context.Context, op, uid, action string) {
	g.metrics.Inc(MetricEmailActionSent)
	g.emitAudit(ctx, auditEventEmailActionSent, op, "", true, uid, nil, func() map[string]string {
		return map[string]string{"action": action}
	})
}

func (g *Gateway) failEmailAction(ctx context.Context, log logr.Logger, op, uid string, cause error, h Handlers) error {
	err := wrap(ErrEmailOperationFailed, cause)
	log.Error(err, "email action failed", "uid", uid)
	g.metrics.Inc(MetricEmailActionFailure)
	g.emitAudit(ctx, auditEventEmailActionFailure, op, "", false, uid, err, nil)
	return h.route(err)
}
