package schema

// BorrowRecordTable represents the 'borrow_records' table
type BorrowRecordTable struct {
	Table        string
	ID           string
	AccountID    string
	UserEmail    string
	BookID       string
	BorrowDate   string
	ReturnDate   string
	DurationDays string
	CreatedAt    string
}

// BorrowRecord is the schema definition for borrow_records
var BorrowRecord = BorrowRecordTable{
	Table:        "borrow_records",
	ID:           "id",
	AccountID:    "account_id",
	UserEmail:    "user_email",
	BookID:       "book_id",
	BorrowDate:   "borrow_date",
	ReturnDate:   "return_date",
	DurationDays: "duration_days",
	CreatedAt:    "created_at",
}

// Columns returns all standard column names
func (t BorrowRecordTable) Columns() []string {
	return []string{
		t.ID, t.AccountID, t.UserEmail, t.BookID, t.BorrowDate, t.ReturnDate, t.DurationDays, t.CreatedAt,
	}
}
