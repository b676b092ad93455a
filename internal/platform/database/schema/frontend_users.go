package schema

// FrontendUserTable represents the 'frontend_users' table
type FrontendUserTable struct {
	Table     string
	ID        string
	Email     string
	FirstName string
	LastName  string
	CreatedAt string
	UpdatedAt string
}

// FrontendUser is the schema definition for frontend_users
var FrontendUser = FrontendUserTable{
	Table:     "frontend_users",
	ID:        "id",
	Email:     "email",
	FirstName: "first_name",
	LastName:  "last_name",
	CreatedAt: "created_at",
	UpdatedAt: "updated_at",
}

// Columns returns all standard column names
func (t FrontendUserTable) Columns() []string {
	return []string{t.ID, t.Email, t.FirstName, t.LastName, t.CreatedAt, t.UpdatedAt}
}
