package csvio

import (
	"io"
	"strconv"

	"github.com/shishobooks/circulation/pkg/clock"
	"github.com/shishobooks/circulation/pkg/models"
)

var transactionColumns = []string{
	"id", "book_id", "book_title", "member_id", "member_code", "type",
	"transaction_date", "due_date", "return_date", "fine_amount", "fine_paid", "notes",
}

// WriteTransactions writes the ledger with a header row. Book and Member
// relations are used for the title and code columns when loaded.
func WriteTransactions(w io.Writer, txns []*models.Transaction) error {
	records := make([][]string, 0, len(txns))
	for _, t := range txns {
		title, code := "", ""
		if t.Book != nil {
			title = t.Book.Title
		}
		if t.Member != nil {
			code = t.Member.MemberCode
		}
		returned := ""
		if t.ReturnDate != nil {
			returned = t.ReturnDate.Format(clock.DateLayout)
		}
		records = append(records, []string{
			strconv.Itoa(t.ID),
			strconv.Itoa(t.BookID),
			title,
			strconv.Itoa(t.MemberID),
			code,
			t.Type,
			t.TransactionDate.Format(clock.DateLayout),
			t.DueDate.Format(clock.DateLayout),
			returned,
			formatMoney(t.FineAmount),
			strconv.FormatBool(t.FinePaid),
			formatOptional(t.Notes),
		})
	}
	return writeAll(w, transactionColumns, records)
}
