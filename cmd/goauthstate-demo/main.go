package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	goAuthState "github.com/MrEthical07/goAuthState"
	"github.com/MrEthical07/goAuthState/identity"
	"github.com/MrEthical07/goAuthState/identity/local"
	"github.com/MrEthical07/goAuthState/metrics/export/prometheus"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/stdr"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		redisAddr = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix    = flag.String("prefix", "gasdemo", "redis key prefix")
		audit     = flag.Bool("audit", false, "print audit events as JSON lines")
		metrics   = flag.Bool("metrics", true, "print Prometheus metrics at the end")
		verbosity = flag.Int("v", 0, "log verbosity")
	)
	flag.Parse()

	stdr.SetVerbosity(*verbosity)
	logger := stdr.New(log.New(os.Stderr, "goauthstate-demo: ", log.LstdFlags))

	provider, err := goAuthState.LoadProviderConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "provider config: %v\n", err)
		os.Exit(2)
	}
	if provider.Validate() != nil {
		provider = goAuthState.ProviderConfig{
			APIKey:     "demo-api-key",
			AuthDomain: "demo.example.com",
			ProjectID:  "demo-project",
			AppID:      "1:0000:web:demo",
		}
		fmt.Println("GOAUTHSTATE_* not set, using the built-in demo project")
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	_, signingKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signing key: %v\n", err)
		os.Exit(1)
	}

	lc := local.DefaultConfig(provider.ProjectID, provider.AuthDomain)
	lc.APIKey = provider.APIKey
	lc.RedisPrefix = *prefix
	lc.SigningKey = signingKey

	mailer := &local.MemoryMailer{}
	authorizer := local.NewStaticAuthorizer()
	authorizer.Add(identity.ProviderGoogle, local.FederatedIdentity{
		Subject: "google-ada", Email: "ada@example.com", DisplayName: "Ada", EmailVerified: true,
	})
	authorizer.Add(identity.ProviderFacebook, local.FederatedIdentity{
		Subject: "facebook-ada", Email: "ada@example.com", DisplayName: "Ada L.",
	})

	svc, err := local.NewService(rdb, lc,
		local.WithMailer(mailer),
		local.WithAuthorizer(authorizer),
		local.WithLogger(logger.WithName("local")),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "identity service: %v\n", err)
		os.Exit(1)
	}
	client, err := svc.NewClient(provider.APIKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "identity client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	cfg := goAuthState.DefaultConfig()
	cfg.Provider = provider
	cfg.Audit.Enabled = *audit
	cfg.Metrics.EnableLatencyHistograms = true

	builder := goAuthState.New().
		WithConfig(cfg).
		WithClient(client).
		WithLogger(logger.WithName("gateway"))
	if *audit {
		builder = builder.WithAuditSink(goAuthState.NewJSONWriterSink(os.Stdout))
	}
	gateway, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
	defer gateway.Close()

	gateway.Store().Subscribe(func(s goAuthState.Session) {
		fmt.Printf("  session: %-26s %s\n", s.Status, describe(s))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	step("app load")
	unsubscribe := gateway.SubscribeToAuthChanges(ctx)
	defer unsubscribe()
	client.Flush()

	report := goAuthState.Handlers{
		OnSuccess: func(u identity.User) { fmt.Printf("  ok: %s %v\n", u.Email, u.ProviderIDs) },
		OnError:   func(err error) { fmt.Printf("  error: %v\n", err) },
	}

	step("sign in with Google")
	_ = gateway.SignInWithGoogle(ctx, report)
	client.Flush()

	step("sign out")
	if err := gateway.SignOut(ctx); err != nil {
		fmt.Printf("  error: %v\n", err)
	}
	client.Flush()

	step("sign in with Facebook (same email, links to the Google account)")
	_ = gateway.SignInWithFacebook(ctx, report)
	client.Flush()

	step("sign out")
	_ = gateway.SignOut(ctx)
	client.Flush()

	step("sign up with email and password")
	_ = gateway.SignUpWithEmailAndPassword(ctx, "grace@example.com", "correct-horse", "Grace", report)
	client.Flush()

	if msg, ok := mailer.Last("grace@example.com", local.ActionVerifyEmail); ok {
		fmt.Printf("  mail to %s: %s\n", msg.To, msg.Link)
		if err := svc.ApplyActionCode(ctx, msg.Code); err != nil {
			fmt.Printf("  verify: %v\n", err)
		} else {
			fmt.Println("  email verified")
		}
	}

	step("password-only check")
	only, err := gateway.UserHasOnlyEmailProvider(ctx, "grace@example.com")
	fmt.Printf("  grace@example.com password only: %v %v\n", only, errString(err))
	only, err = gateway.UserHasOnlyEmailProvider(ctx, "ada@example.com")
	fmt.Printf("  ada@example.com password only: %v %v\n", only, errString(err))

	if *metrics {
		step("metrics")
		fmt.Print(prometheus.NewPrometheusExporter(gateway).Render())
	}
}

func step(name string) {
	fmt.Printf("\n== %s\n", name)
}

func describe(s goAuthState.Session) string {
	var parts []string
	if s.User != nil {
		who := s.User.Email
		if who == "" {
			who = "anonymous"
		}
		parts = append(parts, who+" ("+s.User.UID[:8]+")")
	}
	if s.Token != "" {
		parts = append(parts, "token")
	}
	if s.Err != nil {
		parts = append(parts, "err="+s.Err.Error())
	}
	return strings.Join(parts, " ")
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
