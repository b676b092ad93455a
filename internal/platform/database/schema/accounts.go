package schema

// AccountTable represents the 'accounts' table
type AccountTable struct {
	Table        string
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    string
	UpdatedAt    string
}

// Account is the schema definition for accounts (admins on the backend, patrons on the frontend)
var Account = AccountTable{
	Table:        "accounts",
	ID:           "id",
	Email:        "email",
	FirstName:    "first_name",
	LastName:     "last_name",
	PasswordHash: "password_hash",
	CreatedAt:    "created_at",
	UpdatedAt:    "updated_at",
}

// Columns returns all standard column names
func (t AccountTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.FirstName, t.LastName, t.PasswordHash, t.CreatedAt, t.UpdatedAt,
	}
}
