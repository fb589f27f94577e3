package service

import (
	"context"
	"log/slog"

	domainauth "github.com/target/snowdash/internal/domain/auth"
	"github.com/target/snowdash/internal/domain/record"
	apperrors "github.com/target/snowdash/internal/errors"
	"github.com/target/snowdash/internal/ports"
)

// ServiceNow tables served by the dashboard.
const (
	TableIncident    = "incident"
	TableRequestItem = "sc_req_item"
	TableUser        = "sys_user"
)

// List parameter bounds.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Default sysparm_fields per table.
const (
	IncidentFields    = "sys_id,number,short_description,state,priority,created_on,updated_on"
	RequestItemFields = "sys_id,number,short_description,state,priority,created_on,updated_on,requested_for,requested_by,description"
	UserFields        = "sys_id,user_name,first_name,last_name,name,email,phone,title,department,location,active,sys_created_on,last_login_time"
)

// ListParams are the caller-supplied list options. Zero values take defaults.
type ListParams struct {
	Limit  int    `validate:"gte=0"`
	Offset int    `validate:"gte=0"`
	Query  string `validate:"max=4096"`
	Fields string `validate:"max=1024"`
}

// EffectiveLimit is the row limit a list call actually uses: DefaultLimit when
// unset, clamped to 1..MaxLimit.
func (p ListParams) EffectiveLimit() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// normalize applies defaults and the limit clamp.
func (p ListParams) normalize(defaultFields string) ports.ListOptions {
	limit := p.EffectiveLimit()
	fields := p.Fields
	if fields == "" {
		fields = defaultFields
	}
	return ports.ListOptions{
		Limit:  limit,
		Offset: p.Offset,
		Query:  p.Query,
		Fields: fields,
	}
}

// RecordServiceOptions groups dependencies for RecordService.
type RecordServiceOptions struct {
	Clients ports.TableClientFactory // Required
	Logger  *slog.Logger             // Optional
}

// RecordService serves ServiceNow table data on behalf of a signed-in session.
// A table client is built per call, bound to the session's credential.
type RecordService struct {
	clients ports.TableClientFactory
	logger  *slog.Logger
}

// NewRecordService constructs a RecordService. It panics if Clients is nil.
func NewRecordService(opts RecordServiceOptions) *RecordService {
	if opts.Clients == nil {
		panic("TableClientFactory is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordService{
		clients: opts.Clients,
		logger:  logger.With("component", "record_service"),
	}
}

// ListIncidents lists incident rows.
func (s *RecordService) ListIncidents(ctx context.Context, sess *domainauth.Session, p ListParams) ([]record.Record, error) {
	return s.list(ctx, sess, listCall{table: TableIncident, fields: IncidentFields, params: p})
}

// ListRequestItems lists sc_req_item rows.
func (s *RecordService) ListRequestItems(ctx context.Context, sess *domainauth.Session, p ListParams) ([]record.Record, error) {
	return s.list(ctx, sess, listCall{table: TableRequestItem, fields: RequestItemFields, params: p})
}

// ListUsers lists sys_user rows.
func (s *RecordService) ListUsers(ctx context.Context, sess *domainauth.Session, p ListParams) ([]record.Record, error) {
	return s.list(ctx, sess, listCall{table: TableUser, fields: UserFields, params: p})
}

// Profile returns the sys_user row of whoever the session's credential authenticates as.
func (s *RecordService) Profile(ctx context.Context, sess *domainauth.Session) (record.Record, error) {
	client, err := s.clientFor(sess)
	if err != nil {
		return nil, err
	}

	rec, err := client.UserProfile(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "fetch user profile failed", "username", sess.Identity.Username, "error", err)
		return nil, apperrors.MapUpstreamError(err)
	}
	return rec, nil
}

type listCall struct {
	table  string
	fields string
	params ListParams
}

func (s *RecordService) list(ctx context.Context, sess *domainauth.Session, in listCall) ([]record.Record, error) {
	client, err := s.clientFor(sess)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(in.params); err != nil {
		return nil, err
	}

	opts := in.params.normalize(in.fields)
	rows, err := client.List(ctx, in.table, opts)
	if err != nil {
		s.logger.ErrorContext(ctx, "list records failed",
			"table", in.table,
			"username", sess.Identity.Username,
			"error", err,
		)
		return nil, apperrors.MapUpstreamError(err)
	}

	if len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}
	if rows == nil {
		rows = []record.Record{}
	}
	return rows, nil
}

func (s *RecordService) clientFor(sess *domainauth.Session) (ports.TableAPI, error) {
	if !sess.HasCredential() {
		return nil, apperrors.Unauthorized("Unauthorized")
	}
	client, err := s.clients.ForCredential(sess.Credential)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "build ServiceNow client")
	}
	return client, nil
}
