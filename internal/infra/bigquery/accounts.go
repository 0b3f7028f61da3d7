package bigquery

import (
	"encoding/json"
	"math/big"
	"strings"

	"cloud.google.com/go/bigquery"
)

// UserRow is one row of the users table.
type UserRow struct {
	UserID            string              `bigquery:"user_id" json:"user_id"`                       // REQUIRED
	FullName          bigquery.NullString `bigquery:"full_name" json:"full_name"`                   // NULLABLE
	PreferredCurrency bigquery.NullString `bigquery:"preferred_currency" json:"preferred_currency"` // NULLABLE
	Language          bigquery.NullString `bigquery:"language" json:"language"`                     // NULLABLE
	Timezone          bigquery.NullString `bigquery:"timezone" json:"timezone"`                     // NULLABLE
}

// AccountRow is the subset of the accounts table exposed as user context.
type AccountRow struct {
	AccountID   string              `bigquery:"account_id" json:"account_id"`     // REQUIRED
	AccountName string              `bigquery:"account_name" json:"account_name"` // REQUIRED
	AccountType string              `bigquery:"account_type" json:"account_type"` // REQUIRED
	Institution bigquery.NullString `bigquery:"institution" json:"institution"`   // NULLABLE
	Currency    string              `bigquery:"currency" json:"currency"`         // REQUIRED
	Balance     *big.Rat            `bigquery:"balance" json:"-"`                 // NULLABLE NUMERIC
	DueDate     bigquery.NullDate   `bigquery:"due_date" json:"due_date"`         // NULLABLE
}

// UserContext is the user row plus the user's accounts.
type UserContext struct {
	User     UserRow      `json:"user"`
	Accounts []AccountRow `json:"accounts"`
}

// BalanceString renders the NUMERIC balance without trailing zeros, or ""
// when it is NULL.
func (a AccountRow) BalanceString() string {
	if a.Balance == nil {
		return ""
	}
	s := bigquery.NumericString(a.Balance)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// MarshalJSON writes the balance as a decimal string or null.
func (a AccountRow) MarshalJSON() ([]byte, error) {
	type plain AccountRow
	var balance *string
	if a.Balance != nil {
		s := a.BalanceString()
		balance = &s
	}
	return json.Marshal(struct {
		plain
		Balance *string `json:"balance"`
	}{plain: plain(a), Balance: balance})
}
