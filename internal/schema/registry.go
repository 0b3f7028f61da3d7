package schema

import (
	"fmt"
	"strings"
)

const (
	// Transactions is the entity name of the transactions table.
	Transactions = "transactions"
	// Accounts is the entity name of the accounts table.
	Accounts = "accounts"
)

// Transaction types accepted for transaction_type.
var TransactionTypes = []string{"income", "expense"}

// Account types accepted for account_type.
var AccountTypes = []string{"checking", "savings", "credit_card", "loan", "investment", "cash", "other"}

var transactionsSchema = newSchema(Transactions, "transaction_id",
	Field{Name: "transaction_id", Type: TypeString, Class: AutoGenerated},
	Field{Name: "user_id", Type: TypeString, Class: Optional},
	Field{Name: "account_id", Type: TypeString, Class: AlwaysRequired, Requestable: true},
	Field{Name: "amount", Type: TypeNumeric, Class: AlwaysRequired, Requestable: true},
	Field{Name: "currency", Type: TypeString, Class: AlwaysRequired, Requestable: true},
	Field{Name: "transaction_date", Type: TypeDate, Class: AlwaysRequired, Requestable: true},
	Field{Name: "recorded_date", Type: TypeTimestamp, Class: AutoGenerated},
	Field{Name: "transaction_type", Type: TypeString, Class: AlwaysRequired, Requestable: true},
	Field{Name: "category", Type: TypeString, Class: AlwaysRequired},
	Field{Name: "subcategory", Type: TypeString, Class: Optional},
	Field{Name: "establishment", Type: TypeString, Class: Optional, Requestable: true},
	Field{Name: "notes", Type: TypeString, Class: Optional, Requestable: true},
	Field{Name: "payment_method", Type: TypeString, Class: Optional, Requestable: true},
)

var accountsSchema = newSchema(Accounts, "account_id",
	Field{Name: "account_id", Type: TypeString, Class: AutoGenerated},
	Field{Name: "user_id", Type: TypeString, Class: Optional},
	Field{Name: "account_name", Type: TypeString, Class: AlwaysRequired, Requestable: true},
	Field{Name: "account_type", Type: TypeString, Class: AlwaysRequired, Requestable: true},
	Field{Name: "institution", Type: TypeString, Class: ConditionallyRequired, Requestable: true,
		Condition: &Condition{Field: "account_type", Values: []string{"checking", "savings", "credit_card", "loan", "investment"}}},
	Field{Name: "balance", Type: TypeNumeric, Class: Optional, Requestable: true},
	Field{Name: "currency", Type: TypeString, Class: AlwaysRequired, Requestable: true},
	Field{Name: "due_date", Type: TypeDate, Class: ConditionallyRequired, Requestable: true,
		Condition: &Condition{Field: "account_type", Values: []string{"credit_card", "loan"}}},
	Field{Name: "statement_closing_date", Type: TypeDate, Class: ConditionallyRequired, Requestable: true,
		Condition: &Condition{Field: "account_type", Values: []string{"credit_card"}}},
	Field{Name: "created_at", Type: TypeTimestamp, Class: AutoGenerated},
	Field{Name: "last_updated", Type: TypeTimestamp, Class: AutoGenerated},
)

var registry = map[string]*EntitySchema{
	Transactions: transactionsSchema,
	Accounts:     accountsSchema,
}

// Resolve returns the schema for an entity name. Comparison is case-insensitive
// and ignores surrounding whitespace; anything outside the allow-list fails.
func Resolve(name string) (*EntitySchema, error) {
	s, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s. Must be 'transactions' or 'accounts'", ErrInvalidEntity, name)
	}
	return s, nil
}

// Names returns the allow-listed entity names.
func Names() []string {
	return []string{Transactions, Accounts}
}
