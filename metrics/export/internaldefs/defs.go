package internaldefs

import (
	goAuthState "github.com/MrEthical07/goAuthState"
)

// CounterDef names one gateway counter for export.
type CounterDef struct {
	ID   goAuthState.MetricID
	Name string
	Help string
}

// HistogramDef names one gateway histogram for export.
type HistogramDef struct {
	ID   goAuthState.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "goauthstate_audit_dropped_total"

// AuditDroppedHelp describes [AuditDroppedName].
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// CounterDefs lists every exported counter in output order.
var CounterDefs = []CounterDef{
	{ID: goAuthState.MetricSignInSuccess, Name: "goauthstate_sign_in_success_total", Help: "Successful Google, Facebook and password sign-ins."},
	{ID: goAuthState.MetricSignInFailure, Name: "goauthstate_sign_in_failure_total", Help: "Failed Google, Facebook and password sign-ins."},
	{ID: goAuthState.MetricSignUpSuccess, Name: "goauthstate_sign_up_success_total", Help: "Completed email/password sign-ups."},
	{ID: goAuthState.MetricSignUpFailure, Name: "goauthstate_sign_up_failure_total", Help: "Failed or partial sign-ups."},
	{ID: goAuthState.MetricAnonymousSignInSuccess, Name: "goauthstate_anonymous_sign_in_success_total", Help: "Anonymous sessions established."},
	{ID: goAuthState.MetricAnonymousSignInFailure, Name: "goauthstate_anonymous_sign_in_failure_total", Help: "Failed anonymous sign-ins."},
	{ID: goAuthState.MetricSignOut, Name: "goauthstate_sign_out_total", Help: "Successful sign-outs."},
	{ID: goAuthState.MetricSignOutFailure, Name: "goauthstate_sign_out_failure_total", Help: "Failed sign-outs."},
	{ID: goAuthState.MetricCredentialCollision, Name: "goauthstate_credential_collision_total", Help: "Popup sign-ins that hit an account registered with another method."},
	{ID: goAuthState.MetricCredentialLinkSuccess, Name: "goauthstate_credential_link_success_total", Help: "Credentials linked after a collision."},
	{ID: goAuthState.MetricCredentialLinkFailure, Name: "goauthstate_credential_link_failure_total", Help: "Failed or refused credential links."},
	{ID: goAuthState.MetricEmailActionSent, Name: "goauthstate_email_action_sent_total", Help: "Verification and password reset emails sent."},
	{ID: goAuthState.MetricEmailActionFailure, Name: "goauthstate_email_action_failure_total", Help: "Failed verification and password reset emails."},
	{ID: goAuthState.MetricProfileUpdate, Name: "goauthstate_profile_update_total", Help: "Display name and email updates."},
	{ID: goAuthState.MetricProfileUpdateFailure, Name: "goauthstate_profile_update_failure_total", Help: "Failed profile updates."},
	{ID: goAuthState.MetricSessionPublished, Name: "goauthstate_session_published_total", Help: "Sessions published to the store."},
	{ID: goAuthState.MetricSessionRollback, Name: "goauthstate_session_rollback_total", Help: "Sessions restored after a failed operation."},
	{ID: goAuthState.MetricAuthStateChange, Name: "goauthstate_auth_state_change_total", Help: "Ambient auth-state notifications handled."},
	{ID: goAuthState.MetricTokenFailure, Name: "goauthstate_token_failure_total", Help: "ID-token resolution failures."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAuthState.MetricSignInLatency, Name: "goauthstate_sign_in_latency_seconds", Help: "Sign-in latency histogram."},
}

// HistogramBounds are the "le" labels of the eight latency buckets.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"10",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in a form usable in metric names.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"10",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding with
// zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
