package goAuthState

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAuthState/identity"
)

const (
	auditEventSignInSuccess         = "sign_in_success"
	auditEventSignInFailure         = "sign_in_failure"
	auditEventSignUpSuccess         = "sign_up_success"
	auditEventSignUpFailure         = "sign_up_failure"
	auditEventAnonymousSignIn       = "anonymous_sign_in"
	auditEventAnonymousSignInFailed = "anonymous_sign_in_failure"
	auditEventSignOut               = "sign_out"
	auditEventSignOutFailure        = "sign_out_failure"
	auditEventCredentialCollision   = "credential_collision"
	auditEventCredentialLinked      = "credential_linked"
	auditEventCredentialLinkFailure = "credential_link_failure"
	auditEventEmailActionSent       = "email_action_sent"
	auditEventEmailActionFailure    = "email_action_failure"
	auditEventProfileUpdated        = "profile_updated"
	auditEventProfileUpdateFailure  = "profile_update_failure"
	auditEventSessionRollback       = "session_rollback"
	auditEventTokenFailure          = "token_failure"
)

// AuditErrorCode is the stable, non-sensitive error classification written to
// [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrAccountExists       AuditErrorCode = "account_exists_with_different_credential"
	auditErrLinkingUnsupported  AuditErrorCode = "provider_linking_unsupported"
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrEmailInUse          AuditErrorCode = "email_already_in_use"
	auditErrInvalidEmail        AuditErrorCode = "invalid_email"
	auditErrWeakPassword        AuditErrorCode = "weak_password"
	auditErrPopupClosed         AuditErrorCode = "popup_closed"
	auditErrUnsupportedProvider AuditErrorCode = "unsupported_provider"
	auditErrNoCurrentUser       AuditErrorCode = "no_current_user"
	auditErrCredentialInUse     AuditErrorCode = "credential_already_in_use"
	auditErrRateLimited         AuditErrorCode = "rate_limited"
	auditErrTokenUnavailable    AuditErrorCode = "token_unavailable"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrCanceled            AuditErrorCode = "canceled"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (g *Gateway) emitAudit(
	ctx context.Context,
	eventType string,
	op string,
	provider identity.ProviderID,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if g == nil || g.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	correlationID, _ := CorrelationIDFromContext(ctx)

	event := AuditEvent{
		Timestamp:     time.Now().UTC(),
		EventType:     eventType,
		Operation:     op,
		UserID:        userID,
		Provider:      string(provider),
		Project:       g.config.Provider.ProjectID,
		CorrelationID: correlationID,
		Success:       success,
		Metadata:      metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	g.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, identity.ErrAccountExistsWithDifferentCredential),
		errors.Is(err, ErrEmailAlreadyUsedForAuthentication):
		return auditErrAccountExists
	case errors.Is(err, ErrProviderLinkingUnsupported):
		return auditErrLinkingUnsupported
	case errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, identity.ErrWrongPassword),
		errors.Is(err, identity.ErrInvalidCredential):
		return auditErrInvalidCredentials
	case errors.Is(err, identity.ErrEmailAlreadyInUse):
		return auditErrEmailInUse
	case errors.Is(err, identity.ErrInvalidEmail):
		return auditErrInvalidEmail
	case errors.Is(err, identity.ErrWeakPassword):
		return auditErrWeakPassword
	case errors.Is(err, identity.ErrPopupClosed):
		return auditErrPopupClosed
	case errors.Is(err, identity.ErrUnsupportedProvider):
		return auditErrUnsupportedProvider
	case errors.Is(err, identity.ErrNoCurrentUser):
		return auditErrNoCurrentUser
	case errors.Is(err, identity.ErrCredentialAlreadyInUse):
		return auditErrCredentialInUse
	case errors.Is(err, identity.ErrTooManyRequests):
		return auditErrRateLimited
	case errors.Is(err, ErrTokenUnavailable):
		return auditErrTokenUnavailable
	case errors.Is(err, identity.ErrBackendUnavailable):
		return auditErrUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	default:
		return auditErrInternal
	}
}
