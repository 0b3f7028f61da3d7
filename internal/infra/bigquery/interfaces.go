package bigquery

import (
	"context"
)

// StatementExecutor runs DML statements built by the record pipeline.
type StatementExecutor interface {
	Execute(ctx context.Context, sql string) (int64, error)
}

// ContextProvider supplies user and account context to upstream callers.
type ContextProvider interface {
	UserContext(ctx context.Context, userID string) (*UserContext, error)
}

var (
	_ StatementExecutor = (*Client)(nil)
	_ ContextProvider   = (*Client)(nil)
)
