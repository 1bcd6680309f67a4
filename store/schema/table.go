package schema

import (
	"fmt"
	"strings"
)

type colType int

const (
	Dinteger colType = iota
	Dboolean
	Dbigint
	Dnumeric
	Dtext
	Dvarchar
	Dtimestamp
	Djsonb
)

type ConflictClause struct {
	Target []string
	Update []string
}

type Column struct {
	Name  string
	Type  colType
	Array bool
}

type Table struct {
	Name         string
	Columns      []Column
	UpsertClause ConflictClause
}

// OnConflict returns a specification of an ON CONFLICT clause targeting the
// given columns.
func OnConflict(target ...string) ConflictClause {
	return ConflictClause{Target: target}
}

// Set returns a clause updating the given columns from the excluded row on
// conflict.
func (c ConflictClause) Set(fields ...string) ConflictClause {
	c.Update = fields
	return c
}

func (c ConflictClause) String() string {
	if len(c.Target) == 0 {
		return "ON CONFLICT DO NOTHING"
	}
	target := strings.Join(c.Target, ", ")
	if len(c.Update) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", target)
	}
	excluded := make([]string, len(c.Update))
	for i, f := range c.Update {
		excluded[i] = "EXCLUDED." + f
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET (%s) = ROW(%s)",
		target, strings.Join(c.Update, ", "), strings.Join(excluded, ", "))
}

// ColumnNames returns the names of all columns in order.
func (tbl *Table) ColumnNames() []string {
	names := make([]string, 0, len(tbl.Columns))
	for _, col := range tbl.Columns {
		names = append(names, col.Name)
	}
	return names
}

// PreparedInsert returns a parameterized INSERT statement for the table.
// When upsert is false, any conflict clause degrades to DO NOTHING so the
// caller can distinguish inserted vs. skipped rows by RowsAffected.
func (tbl *Table) PreparedInsert(upsert bool) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(tbl.Name)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(tbl.ColumnNames(), ", "))
	sb.WriteString(") VALUES (")
	for i := range tbl.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "$%d", i+1)
	}
	sb.WriteString(") ")

	clause := tbl.UpsertClause
	if !upsert {
		clause.Update = nil
	}
	sb.WriteString(clause.String())
	return sb.String()
}
