// Package bigquery is the BigQuery storage adapter of the record pipeline:
// statement execution, the user/account context provider and the schema
// migration runner.
package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// Client wraps one BigQuery client bound to a project and dataset. It is
// created once at startup and shared; Close releases it at shutdown.
type Client struct {
	bq        *bigquery.Client
	projectID string
	datasetID string
}

// NewClient connects to BigQuery. location may be empty.
func NewClient(ctx context.Context, projectID, datasetID, location string) (*Client, error) {
	if projectID == "" || datasetID == "" {
		return nil, errors.New("NewClient: project and dataset are required")
	}
	bq, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewClient: creating client: %w", err)
	}
	if location != "" {
		bq.Location = location
	}
	return &Client{bq: bq, projectID: projectID, datasetID: datasetID}, nil
}

// Close closes the underlying client.
func (c *Client) Close() error {
	if c.bq != nil {
		return c.bq.Close()
	}
	return nil
}

// ProjectID returns the project the client is bound to.
func (c *Client) ProjectID() string { return c.projectID }

// DatasetID returns the dataset the client is bound to.
func (c *Client) DatasetID() string { return c.datasetID }

// table returns the backquoted, fully qualified name of a table.
func (c *Client) table(name string) string {
	return "`" + c.projectID + "." + c.datasetID + "." + name + "`"
}

// Execute runs one DML statement and returns the number of affected rows.
func (c *Client) Execute(ctx context.Context, sql string) (int64, error) {
	status, err := c.run(ctx, c.bq.Query(sql))
	if err != nil {
		return 0, fmt.Errorf("Execute: %w", err)
	}
	return affectedRows(status), nil
}

// run starts q and waits for it to finish.
func (c *Client) run(ctx context.Context, q *bigquery.Query) (*bigquery.JobStatus, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("job error: %w", err)
	}

	return status, nil
}

func affectedRows(status *bigquery.JobStatus) int64 {
	if status == nil || status.Statistics == nil {
		return 0
	}
	if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return qs.NumDMLAffectedRows
	}
	return 0
}
