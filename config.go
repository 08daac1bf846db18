package goAuthState

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/MrEthical07/goAuthState/identity"
	"github.com/caarlos0/env/v11"
)

// Config controls a [Gateway]. Build one with [DefaultConfig] and adjust it;
// the zero value does not validate.
type Config struct {
	Provider    ProviderConfig
	SignUp      SignUpConfig
	Linking     LinkingConfig
	EmailAction EmailActionConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
PROVIDER CONFIG
====================================
*/

// ProviderConfig is the set of named credentials and endpoints identifying
// the identity provider project. Env tags are read by
// [LoadProviderConfigFromEnv].
type ProviderConfig struct {
	APIKey            string `env:"GOAUTHSTATE_API_KEY"`
	AuthDomain        string `env:"GOAUTHSTATE_AUTH_DOMAIN"`
	DatabaseURL       string `env:"GOAUTHSTATE_DATABASE_URL"`
	ProjectID         string `env:"GOAUTHSTATE_PROJECT_ID"`
	StorageBucket     string `env:"GOAUTHSTATE_STORAGE_BUCKET"`
	MessagingSenderID string `env:"GOAUTHSTATE_MESSAGING_SENDER_ID"`
	AppID             string `env:"GOAUTHSTATE_APP_ID"`
	MeasurementID     string `env:"GOAUTHSTATE_MEASUREMENT_ID"`
}

// LoadProviderConfigFromEnv reads a ProviderConfig from GOAUTHSTATE_*
// environment variables. Missing variables leave fields empty; call
// [ProviderConfig.Validate] to enforce required keys.
func LoadProviderConfigFromEnv() (ProviderConfig, error) {
	var cfg ProviderConfig
	if err := env.Parse(&cfg); err != nil {
		return ProviderConfig{}, fmt.Errorf("parse provider env: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (p *ProviderConfig) normalize() {
	p.APIKey = strings.TrimSpace(p.APIKey)
	p.AuthDomain = strings.TrimSpace(p.AuthDomain)
	p.DatabaseURL = strings.TrimSpace(p.DatabaseURL)
	p.ProjectID = strings.TrimSpace(p.ProjectID)
	p.StorageBucket = strings.TrimSpace(p.StorageBucket)
	p.MessagingSenderID = strings.TrimSpace(p.MessagingSenderID)
	p.AppID = strings.TrimSpace(p.AppID)
	p.MeasurementID = strings.TrimSpace(p.MeasurementID)
}

// Validate checks the required keys: APIKey, AuthDomain, ProjectID and AppID.
func (p ProviderConfig) Validate() error {
	if strings.TrimSpace(p.APIKey) == "" {
		return errors.New("Provider APIKey is required")
	}
	if strings.TrimSpace(p.AuthDomain) == "" {
		return errors.New("Provider AuthDomain is required")
	}
	if strings.ContainsAny(p.AuthDomain, "/ ") {
		return errors.New("Provider AuthDomain must be a bare host name")
	}
	if strings.TrimSpace(p.ProjectID) == "" {
		return errors.New("Provider ProjectID is required")
	}
	if strings.TrimSpace(p.AppID) == "" {
		return errors.New("Provider AppID is required")
	}
	if p.DatabaseURL != "" {
		u, err := url.Parse(p.DatabaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("Provider DatabaseURL must be an absolute URL")
		}
	}
	return nil
}

// ActionURL returns the default continue URL for email actions.
func (p ProviderConfig) ActionURL() string {
	if p.AuthDomain == "" {
		return ""
	}
	return "https://" + p.AuthDomain + "/__/auth/action"
}

/*
====================================
FLOW CONFIG
====================================
*/

// SignUpConfig controls email/password sign-up.
type SignUpConfig struct {
	// SendVerificationEmail sends a verification email right after the
	// account is created.
	SendVerificationEmail bool
	// PropagateUnhandledErrors returns sign-up failures to callers that did
	// not supply an error handler. When false they are logged and swallowed.
	PropagateUnhandledErrors bool
}

// LinkingConfig controls credential linking after a popup collision.
type LinkingConfig struct {
	// SupportedProviders lists the sign-in methods that may be prompted to
	// re-authenticate a colliding account, in preference order.
	SupportedProviders []identity.ProviderID
}

// EmailActionConfig controls the link embedded in verification and reset
// emails. An empty URL falls back to [ProviderConfig.ActionURL].
type EmailActionConfig struct {
	URL             string
	HandleCodeInApp bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns a config with every section populated except
// Provider, which must be filled in by the caller.
func DefaultConfig() Config {
	return Config{
		SignUp: SignUpConfig{
			SendVerificationEmail:    true,
			PropagateUnhandledErrors: false,
		},
		Linking: LinkingConfig{
			SupportedProviders: []identity.ProviderID{
				identity.ProviderGoogle,
				identity.ProviderFacebook,
				identity.ProviderPassword,
			},
		},
		EmailAction: EmailActionConfig{
			HandleCodeInApp: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Linking.SupportedProviders != nil {
		out.Linking.SupportedProviders = append([]identity.ProviderID(nil), cfg.Linking.SupportedProviders...)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Provider.Validate(); err != nil {
		return err
	}

	if len(c.Linking.SupportedProviders) == 0 {
		return errors.New("Linking SupportedProviders must not be empty")
	}
	seen := make(map[identity.ProviderID]struct{}, len(c.Linking.SupportedProviders))
	for _, p := range c.Linking.SupportedProviders {
		switch p {
		case identity.ProviderGoogle, identity.ProviderFacebook, identity.ProviderPassword:
		default:
			return fmt.Errorf("Linking provider %q is not supported", p)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("Linking provider %q listed twice", p)
		}
		seen[p] = struct{}{}
	}

	if c.EmailAction.URL != "" {
		u, err := url.Parse(c.EmailAction.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("EmailAction URL must be an absolute URL")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func (c Config) actionSettings() identity.ActionSettings {
	u := c.EmailAction.URL
	if u == "" {
		u = c.Provider.ActionURL()
	}
	return identity.ActionSettings{URL: u, HandleCodeInApp: c.EmailAction.HandleCodeInApp}
}
