package schema

// BookTable represents the 'books' table
type BookTable struct {
	Table           string
	ID              string
	Title           string
	Author          string
	Category        string
	Publisher       string
	AvailableCopies string
	IsAvailable     string
	CreatedAt       string
	UpdatedAt       string
}

// Book is the schema definition for books
var Book = BookTable{
	Table:           "books",
	ID:              "id",
	Title:           "title",
	Author:          "author",
	Category:        "category",
	Publisher:       "publisher",
	AvailableCopies: "available_copies",
	IsAvailable:     "is_available",
	CreatedAt:       "created_at",
	UpdatedAt:       "updated_at",
}

// Columns returns all standard column names
func (t BookTable) Columns() []string {
	return []string{
		t.ID, t.Title, t.Author, t.Category, t.Publisher, t.AvailableCopies, t.IsAvailable, t.CreatedAt, t.UpdatedAt,
	}
}
