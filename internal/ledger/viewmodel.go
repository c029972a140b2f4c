package ledger

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with digit grouping and two fraction digits
// for list summaries. The integer part is grouped from the decimal's exact
// string form; going through a float would drop digits on large amounts.
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	out := intPart
	if v, err := strconv.ParseInt(intPart, 10, 64); err == nil {
		out = amountPrinter.Sprintf("%d", v)
	}
	out += "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// DocumentRow is the list-view projection of a document: header fields plus
// the document amount (sum of debits) ready for display.
type DocumentRow struct {
	ID          int64     `json:"id"`
	DocNo       int64     `json:"doc_no"`
	DocDate     string    `json:"doc_date"`
	ManualNo    string    `json:"manual_no,omitempty"`
	Description string    `json:"description,omitempty"`
	Type        DocType   `json:"doc_type"`
	Status      DocStatus `json:"status"`
	EntryCount  int       `json:"entry_count"`
	Amount      string    `json:"amount"`

	Entries []FinancialEntry `json:"entries,omitempty"`
}

// ToRows projects documents into list rows.
func ToRows(docs []FinancialDocument) []DocumentRow {
	rows := make([]DocumentRow, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, DocumentRow{
			ID:          d.ID,
			DocNo:       d.DocNo,
			DocDate:     d.DocDate.Format("2006-01-02"),
			ManualNo:    d.ManualNo,
			Description: d.Description,
			Type:        d.Type,
			Status:      d.Status,
			EntryCount:  len(d.Entries),
			Amount:      FormatAmount(d.Total()),
			Entries:     d.Entries,
		})
	}
	return rows
}
