package database

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/talenttrack/internal/core"
)

// Dialect selects the placeholder and matching syntax of a backend.
type Dialect int

const (
	DialectPostgres Dialect = iota // $1, $2 ... and ILIKE
	DialectSQLite                  // ? and casefold(col) LIKE
)

// WhereBuilder assembles a WHERE clause from optional conditions.
// Empty values are skipped, so callers can add every filter unconditionally.
type WhereBuilder struct {
	dialect    Dialect
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder creates an empty builder for dialect.
func NewWhereBuilder(dialect Dialect) *WhereBuilder {
	return &WhereBuilder{dialect: dialect, argIndex: 1}
}

func (wb *WhereBuilder) placeholder() string {
	if wb.dialect == DialectSQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", wb.argIndex)
}

func (wb *WhereBuilder) push(cond string, arg any) {
	wb.conditions = append(wb.conditions, cond)
	wb.args = append(wb.args, arg)
	wb.argIndex++
}

// Add adds "column = value" when value is non-empty.
func (wb *WhereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.push(column+" = "+wb.placeholder(), value)
}

// AddContains adds a case-insensitive substring match when value is non-empty.
// LIKE wildcards in value are matched literally.
func (wb *WhereBuilder) AddContains(column, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if wb.dialect == DialectSQLite {
		pattern := "%" + escapeLike(strings.ToLower(value)) + "%"
		wb.push(sqliteFoldFunc+"("+column+") LIKE "+wb.placeholder()+` ESCAPE '\'`, pattern)
		return
	}
	wb.push(column+" ILIKE "+wb.placeholder(), "%"+escapeLike(value)+"%")
}

// AddFilters adds the candidate search filters.
func (wb *WhereBuilder) AddFilters(f core.Filters) {
	wb.AddContains("name", f.Name)
	wb.AddContains("email", core.NormalizeEmail(f.Email))
	wb.AddContains("phone", core.NormalizePhone(f.Phone))
	wb.Add("status", string(f.Status))
}

// Build returns the clause (with a leading space, or "" when empty) and its args.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// NextArgIndex returns the index of the next positional placeholder, for
// appending LIMIT or OFFSET arguments.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
