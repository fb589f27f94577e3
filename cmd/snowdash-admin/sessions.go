package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/snowdash/config"
	redisadapter "github.com/target/snowdash/internal/adapters/redis"
	"github.com/target/snowdash/internal/bootstrap"
	"github.com/target/snowdash/internal/data/cryptoutil"
)

var errRedisDisabled = errors.New("REDIS_ENABLED is false; revocations live in server memory and cannot be managed offline")

func runGenKeys(cmdCtx *commandContext, _ []string) error {
	signing, err := randomKey(config.MinSigningKeyLength * 2)
	if err != nil {
		return err
	}
	encryption, err := randomKey(cryptoutil.KeySize)
	if err != nil {
		return err
	}
	if err := writef(cmdCtx.Out, "SESSION_SIGNING_KEY=%s\n", signing); err != nil {
		return err
	}
	return writef(cmdCtx.Out, "SESSION_ENCRYPTION_KEY=%s\n", encryption)
}

// randomKey returns n random bytes as standard base64. The encoded form of a
// 48-byte signing key is 64 characters, well above the minimum.
func randomKey(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func runCheckConfig(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("check-config", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.Out)
	ping := fs.Bool("ping", false, "also connect to Redis when enabled")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := printConfigSummary(cmdCtx.Out, &cmdCtx.Config); err != nil {
		return err
	}

	// Building the codec proves both session keys parse.
	if _, err := bootstrap.BuildSessionCodec(bootstrap.SessionCodecConfig{
		Session: cmdCtx.Config.Session,
		IsDev:   cmdCtx.Config.IsDev,
		Logger:  cmdCtx.Logger,
	}); err != nil {
		return err
	}

	if *ping && cmdCtx.Config.Redis.Enabled {
		client, err := bootstrap.ConnectRedis(cmdCtx.Ctx, cmdCtx.Config.Redis, cmdCtx.Logger)
		if err != nil {
			return err
		}
		if err := client.Close(); err != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", err)
		}
	}
	return writeln(cmdCtx.Out, "configuration OK")
}

// printConfigSummary prints non-secret settings; keys are reported by presence only.
func printConfigSummary(w io.Writer, cfg *config.AppConfig) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"instance", cfg.ServiceNow.InstanceURL},
		{"timeout", cfg.ServiceNow.Timeout.String()},
		{"auth mode", string(cfg.Auth.Mode)},
		{"session ttl", cfg.Session.TTL.String()},
		{"session cookie", cfg.Session.CookieName},
		{"signing key", presence(cfg.Session.SigningKey)},
		{"encryption key", presence(cfg.Session.EncryptionKey)},
		{"http addr", cfg.HTTP.Addr},
		{"cookie domain", orDash(cfg.HTTP.CookieDomain)},
		{"revocations", revocationBackend(cfg.Redis)},
		{"metrics", metricsSummary(cfg.Observability.Metrics)},
		{"dev mode", fmt.Sprint(cfg.IsDev)},
	}
	if cfg.Auth.Mode == config.AuthModeOAuth {
		rows = append(rows,
			[2]string{"oauth client", cfg.Auth.OAuth.ClientID},
			[2]string{"oauth redirect", cfg.Auth.OAuth.RedirectURL},
			[2]string{"oauth scope", cfg.Auth.OAuth.Scope},
		)
	}
	for _, row := range rows {
		if err := writef(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func presence(s string) string {
	if s == "" {
		return "unset"
	}
	return "set"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func revocationBackend(r config.RedisConfig) string {
	if !r.Enabled {
		return "memory"
	}
	switch {
	case r.UseCluster:
		return "redis cluster"
	case r.UseSentinel:
		return "redis sentinel " + r.SentinelMasterName
	default:
		return "redis"
	}
}

func metricsSummary(m config.ObservabilityMetricsConfig) string {
	if !m.IsEnabled() {
		return "disabled"
	}
	return "statsd " + m.StatsdAddress
}

func connectRevocationRedis(cmdCtx *commandContext) (redis.UniversalClient, string, error) {
	if !cmdCtx.Config.Redis.Enabled {
		return nil, "", errRedisDisabled
	}
	client, err := bootstrap.ConnectRedis(cmdCtx.Ctx, cmdCtx.Config.Redis, cmdCtx.Logger)
	if err != nil {
		return nil, "", err
	}
	prefix := cmdCtx.Config.Redis.KeyPrefix
	if prefix == "" {
		prefix = redisadapter.DefaultRevocationPrefix
	}
	return client, prefix, nil
}

type revokedEntry struct {
	ID  string
	TTL time.Duration
}

func runListRevoked(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list-revoked", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.Out)
	limit := fs.Int("limit", 100, "maximum entries to print (0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, prefix, err := connectRevocationRedis(cmdCtx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, 2*time.Minute)
	defer cancel()

	entries, err := scanRevoked(ctx, client, prefix, *limit)
	if err != nil {
		return err
	}
	return printRevoked(cmdCtx.Out, entries)
}

func scanRevoked(ctx context.Context, client redis.UniversalClient, prefix string, limit int) ([]revokedEntry, error) {
	var entries []revokedEntry
	iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		ttl, err := client.TTL(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("ttl %s: %w", key, err)
		}
		entries = append(entries, revokedEntry{ID: strings.TrimPrefix(key, prefix), TTL: ttl})
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan revoked sessions: %w", err)
	}
	return entries, nil
}

func printRevoked(w io.Writer, entries []revokedEntry) error {
	if len(entries) == 0 {
		return writeln(w, "No revoked sessions.")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "SESSION ID\tEXPIRES IN\n"); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writef(tw, "%s\t%s\n", e.ID, renderTTL(e.TTL)); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writef(w, "\n%d revoked session(s)\n", len(entries))
}

// renderTTL formats Redis TTL results; negative values are Redis sentinels.
func renderTTL(d time.Duration) string {
	switch {
	case d == -1:
		return "no expiry"
	case d < 0:
		return "expired"
	default:
		return d.Round(time.Second).String()
	}
}

type revokeOptions struct {
	Token string
	ID    string
	Until time.Duration
	Yes   bool
}

func parseRevokeFlags(args []string, out io.Writer) (revokeOptions, error) {
	var opts revokeOptions
	fs := flag.NewFlagSet("revoke-session", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&opts.Token, "token", "", "session cookie value to revoke")
	fs.StringVar(&opts.ID, "id", "", "session ID (jti) to revoke")
	fs.DurationVar(&opts.Until, "for", 0, "revocation lifetime when revoking by ID (defaults to SESSION_TTL)")
	fs.BoolVar(&opts.Yes, "yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.Token = strings.TrimSpace(opts.Token)
	opts.ID = strings.TrimSpace(opts.ID)
	if (opts.Token == "") == (opts.ID == "") {
		return opts, errors.New("exactly one of -token or -id is required")
	}
	if opts.Until < 0 {
		return opts, errors.New("-for must not be negative")
	}
	return opts, nil
}

type revokeTarget struct {
	ID    string
	User  string
	Until time.Time
}

// resolveRevokeTarget decodes a token with the configured keys, or trusts a bare ID.
func resolveRevokeTarget(cfg *config.AppConfig, opts revokeOptions, now time.Time) (revokeTarget, error) {
	if opts.ID != "" {
		lifetime := opts.Until
		if lifetime == 0 {
			lifetime = cfg.Session.TTL
		}
		return revokeTarget{ID: opts.ID, Until: now.Add(lifetime)}, nil
	}

	codec, err := bootstrap.BuildSessionCodec(bootstrap.SessionCodecConfig{
		Session: cfg.Session,
		IsDev:   cfg.IsDev,
	})
	if err != nil {
		return revokeTarget{}, err
	}
	sess, err := codec.Decode(opts.Token)
	if err != nil {
		return revokeTarget{}, fmt.Errorf("decode session token: %w", err)
	}
	return revokeTarget{ID: sess.ID, User: sess.Identity.Username, Until: sess.ExpiresAt}, nil
}

func runRevokeSession(cmdCtx *commandContext, args []string) error {
	opts, err := parseRevokeFlags(args, cmdCtx.Out)
	if err != nil {
		return err
	}
	target, err := resolveRevokeTarget(&cmdCtx.Config, opts, time.Now())
	if err != nil {
		return err
	}

	if !opts.Yes {
		prompt := fmt.Sprintf("About to revoke session %s until %s.", target.ID, target.Until.Format(time.RFC3339))
		if target.User != "" {
			prompt = fmt.Sprintf("About to revoke session %s of %s until %s.", target.ID, target.User, target.Until.Format(time.RFC3339))
		}
		if err := confirm(cmdCtx, prompt); err != nil {
			return err
		}
	}

	client, prefix, err := connectRevocationRedis(cmdCtx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
		}
	}()

	store := redisadapter.NewRevocationStoreWithPrefix(client, prefix)
	if err := store.Revoke(cmdCtx.Ctx, target.ID, target.Until); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	cmdCtx.Logger.Info("session revoked", "session_id", target.ID, "until", target.Until)
	return writef(cmdCtx.Out, "revoked %s\n", target.ID)
}
