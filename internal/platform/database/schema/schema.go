// Package schema names the tables and columns of the librasync database.
//
// Both services run the same migrations, so one definition serves both.
package schema

import "strings"

// List joins column names for a SELECT or RETURNING clause.
func List(columns ...string) string {
	return strings.Join(columns, ", ")
}
