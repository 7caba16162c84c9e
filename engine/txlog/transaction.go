package txlog

import (
	"github.com/compozy/tally/engine/core"
	"github.com/compozy/tally/engine/normalize"
	"github.com/compozy/tally/engine/schema"
)

const (
	TypeCredit = "credit"
	TypeDebit  = "debit"
)

// Transaction is the typed view of one ledger entry.
type Transaction struct {
	ID           string  `json:"id,omitempty"`
	Type         string  `json:"type"                   validate:"oneof=credit debit"`
	Amount       float64 `json:"amount"                 validate:"gt=0,finite"`
	Counterparty string  `json:"counterparty,omitempty"`
	Category     string  `json:"category,omitempty"`
	Date         string  `json:"date,omitempty"`

	// Record is the loose value the transaction was decoded from, if any.
	Record any `json:"-"`
}

// elementRules accept a loose record with a positive amount and a known type.
var elementRules = schema.Rules{
	{Field: "amount", Check: schema.PositiveNumber},
	{Field: "type", Check: schema.OneOf(false, TypeCredit, TypeDebit)},
}

// counterpartyKeys are read in order; "to" is the legacy spelling.
var counterpartyKeys = []string{"counterparty", "to"}

// decode converts a record accepted by elementRules.
func decode(record any) Transaction {
	amount, _ := core.Number(lookup(record, "amount"))
	tx := Transaction{
		ID:       text(lookup(record, "id")),
		Type:     text(lookup(record, "type")),
		Amount:   amount,
		Category: text(lookup(record, "category")),
		Date:     text(lookup(record, "date")),
		Record:   record,
	}
	for _, key := range counterpartyKeys {
		if c := text(lookup(record, key)); c != "" {
			tx.Counterparty = c
			break
		}
	}
	return tx
}

func lookup(record any, key string) any {
	v, _ := core.Lookup(record, key)
	return v
}

// text returns the trimmed string form of v, or "" for non-strings.
func text(v any) string {
	s, _ := core.String(v)
	return normalize.Trim(s)
}

// view is the value filter expressions see as `record`.
func (t Transaction) view() any {
	if t.Record != nil {
		return core.Plain(t.Record)
	}
	return map[string]any{
		"id":           t.ID,
		"type":         t.Type,
		"amount":       t.Amount,
		"counterparty": t.Counterparty,
		"category":     t.Category,
		"date":         t.Date,
	}
}

// published is the value a summary reports for t: a deep copy of the loose
// record, or t itself when it was given typed.
func (t Transaction) published() (any, error) {
	if t.Record == nil {
		return t, nil
	}
	return core.DeepCopy(t.Record)
}
