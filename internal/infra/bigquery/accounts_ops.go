package bigquery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// ErrUserNotFound is returned by UserContext for an unknown user.
var ErrUserNotFound = errors.New("user not found")

// UserContext loads a user and the user's accounts.
func (c *Client) UserContext(ctx context.Context, userID string) (*UserContext, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("UserContext: user_id cannot be empty")
	}

	user, err := c.findUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("UserContext: %w", err)
	}

	accounts, err := c.listAccountsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("UserContext: %w", err)
	}

	return &UserContext{User: *user, Accounts: accounts}, nil
}

func (c *Client) findUser(ctx context.Context, userID string) (*UserRow, error) {
	q := c.bq.Query(`
		SELECT
			user_id,
			full_name,
			preferred_currency,
			language,
			timezone
		FROM ` + c.table("users") + `
		WHERE user_id = @user_id
		LIMIT 1
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("findUser: reading query: %w", err)
	}

	var row UserRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("findUser: %s: %w", userID, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("findUser: iterating: %w", err)
	}

	return &row, nil
}

func (c *Client) listAccountsByUser(ctx context.Context, userID string) ([]AccountRow, error) {
	q := c.bq.Query(`
		SELECT
			account_id,
			account_name,
			account_type,
			institution,
			currency,
			balance,
			due_date
		FROM ` + c.table("accounts") + `
		WHERE user_id = @user_id
		ORDER BY account_name
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("listAccountsByUser: reading query: %w", err)
	}

	accounts := []AccountRow{}
	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listAccountsByUser: iterating: %w", err)
		}
		accounts = append(accounts, row)
	}

	return accounts, nil
}
