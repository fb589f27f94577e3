package ports

import (
	"context"

	domainauth "github.com/target/snowdash/internal/domain/auth"
	"github.com/target/snowdash/internal/domain/record"
)

// ListOptions are passed through to the ServiceNow table API as sysparm_* parameters.
// Zero values are omitted from the request.
type ListOptions struct {
	Limit  int
	Offset int
	Query  string
	Fields string
}

// TableAPI is the per-credential ServiceNow REST table client.
type TableAPI interface {
	List(ctx context.Context, table string, opts ListOptions) ([]record.Record, error)
	Get(ctx context.Context, table, sysID string) (record.Record, error)
	Create(ctx context.Context, table string, rec record.Record) (record.Record, error)
	Update(ctx context.Context, table, sysID string, rec record.Record) (record.Record, error)
	Delete(ctx context.Context, table, sysID string) error
	UserProfile(ctx context.Context) (record.Record, error)
}

// TableClientFactory builds a TableAPI bound to one credential.
type TableClientFactory interface {
	ForCredential(cred domainauth.Credential) (TableAPI, error)
}
