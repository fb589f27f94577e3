package servicenow

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/target/snowdash/internal/domain/auth"
	apperrors "github.com/target/snowdash/internal/errors"
	"github.com/target/snowdash/internal/observability/statsd"
	"github.com/target/snowdash/internal/ports"
)

const basicUserFields = "sys_id,user_name,email,first_name,last_name,name"

// BasicExchangerConfig configures a BasicExchanger.
type BasicExchangerConfig struct {
	InstanceURL string
	HTTPClient  *http.Client
	Metrics     statsd.Sink
	Logger      *slog.Logger
}

// BasicExchanger verifies a username/password pair by looking the user up in
// sys_user with those credentials. A successful lookup proves the password.
type BasicExchanger struct {
	factory *Factory
	logger  *slog.Logger
}

var _ ports.BasicExchanger = (*BasicExchanger)(nil)

// NewBasicExchanger returns an exchanger for one instance.
func NewBasicExchanger(cfg BasicExchangerConfig) (*BasicExchanger, error) {
	if _, err := parseInstanceURL(cfg.InstanceURL); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BasicExchanger{
		factory: &Factory{InstanceURL: cfg.InstanceURL, HTTPClient: cfg.HTTPClient, Metrics: cfg.Metrics},
		logger:  logger.With("component", "basic_exchanger"),
	}, nil
}

var errInvalidCredentials = errors.New("invalid credentials")

// Exchange issues a single GET against sys_user. Any non-2xx status, network
// failure or empty result is an AuthFailure; there is no retry.
func (e *BasicExchanger) Exchange(ctx context.Context, username, password string) (domainauth.Identity, domainauth.Credential, error) {
	// '^' separates encoded-query terms and must not reach sysparm_query.
	if username == "" || password == "" || strings.ContainsAny(username, "^\r\n") {
		return domainauth.Identity{}, domainauth.Credential{}, apperrors.AuthFailure("Invalid credentials", errInvalidCredentials)
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	cred := domainauth.NewBasicCredential(encoded)

	client, err := e.factory.ForCredential(cred)
	if err != nil {
		return domainauth.Identity{}, domainauth.Credential{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "build servicenow client")
	}

	rows, err := client.List(ctx, userTable, ports.ListOptions{
		Limit:  1,
		Query:  "user_name=" + username,
		Fields: basicUserFields,
	})
	if err != nil {
		e.logger.WarnContext(ctx, "basic sign-in rejected", "error", err)
		return domainauth.Identity{}, domainauth.Credential{}, apperrors.AuthFailure("Invalid credentials", err)
	}
	if len(rows) == 0 {
		e.logger.InfoContext(ctx, "basic sign-in rejected: no matching user")
		return domainauth.Identity{}, domainauth.Credential{}, apperrors.AuthFailure("Invalid credentials", errInvalidCredentials)
	}

	row := rows[0]
	if got := row.Text("user_name"); got != "" && !strings.EqualFold(got, username) {
		e.logger.WarnContext(ctx, "basic sign-in rejected: user_name mismatch")
		return domainauth.Identity{}, domainauth.Credential{}, apperrors.AuthFailure("Invalid credentials", errInvalidCredentials)
	}
	identity := domainauth.Identity{
		ID:          row.SysID(),
		DisplayName: displayName(row.Text("first_name"), row.Text("last_name"), row.Text("name"), username),
		Email:       row.Text("email"),
		Username:    username,
	}
	if identity.Email == "" {
		identity.Email = username + "@servicenow.com"
	}

	return identity, cred, nil
}

func displayName(first, last, name, fallback string) string {
	if full := strings.TrimSpace(first + " " + last); full != "" {
		return full
	}
	if name != "" {
		return name
	}
	return fallback
}
