package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// Condition renders one predicate and appends its bound values.
type Condition interface {
	appendSQL(buf *strings.Builder, args *[]any)
}

type compareCondition struct {
	column string
	op     string
	value  any
}

func Eq(column string, value any) Condition {
	return compareCondition{column: column, op: "=", value: value}
}

func Gt(column string, value any) Condition {
	return compareCondition{column: column, op: ">", value: value}
}

func Lte(column string, value any) Condition {
	return compareCondition{column: column, op: "<=", value: value}
}

func (c compareCondition) appendSQL(buf *strings.Builder, args *[]any) {
	*args = append(*args, c.value)
	buf.WriteString(c.column)
	buf.WriteString(" ")
	buf.WriteString(c.op)
	buf.WriteString(" ")
	buf.WriteString(placeholder(len(*args)))
}

type SelectBuilder struct {
	columns []string
	table   string
	where   []Condition
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	var buf strings.Builder
	args := make([]any, 0, len(b.where))
	fmt.Fprintf(&buf, "SELECT %s FROM %s", strings.Join(b.columns, ", "), b.table)
	appendWhere(&buf, b.where, &args)
	if b.limit > 0 {
		buf.WriteString(" LIMIT ")
		buf.WriteString(strconv.Itoa(b.limit))
	}

	return buf.String(), args, nil
}

// InsertBuilder renders a single-row INSERT, optionally as an upsert.
type InsertBuilder struct {
	table         string
	columns       []string
	values        []any
	conflictOn    []string
	updateColumns []string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Set(column string, value any) *InsertBuilder {
	b.columns = append(b.columns, column)
	b.values = append(b.values, value)
	return b
}

// OnConflictUpdate overwrites updateColumns from EXCLUDED when a row with the
// same conflict columns exists.
func (b *InsertBuilder) OnConflictUpdate(conflictOn []string, updateColumns ...string) *InsertBuilder {
	b.conflictOn = append([]string(nil), conflictOn...)
	b.updateColumns = append([]string(nil), updateColumns...)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("insert table is required")
	}
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("insert columns are required")
	}
	if len(b.conflictOn) > 0 && len(b.updateColumns) == 0 {
		return "", nil, fmt.Errorf("upsert on %s has no columns to update", strings.Join(b.conflictOn, ", "))
	}

	placeholders := make([]string, len(b.values))
	for i := range b.values {
		placeholders[i] = placeholder(i + 1)
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "INSERT INTO %s (%s) VALUES (%s)",
		b.table, strings.Join(b.columns, ", "), strings.Join(placeholders, ", "))

	if len(b.conflictOn) > 0 {
		sets := make([]string, len(b.updateColumns))
		for i, column := range b.updateColumns {
			sets[i] = column + " = EXCLUDED." + column
		}
		fmt.Fprintf(&buf, " ON CONFLICT (%s) DO UPDATE SET %s",
			strings.Join(b.conflictOn, ", "), strings.Join(sets, ", "))
	}

	return buf.String(), append([]any(nil), b.values...), nil
}

// DeleteBuilder refuses to render an unconditional DELETE.
type DeleteBuilder struct {
	table string
	where []Condition
}

func DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

func (b *DeleteBuilder) Where(conditions ...Condition) *DeleteBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *DeleteBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("delete table is required")
	}
	if len(b.where) == 0 {
		return "", nil, fmt.Errorf("delete requires at least one condition")
	}

	var buf strings.Builder
	args := make([]any, 0, len(b.where))
	buf.WriteString("DELETE FROM ")
	buf.WriteString(b.table)
	appendWhere(&buf, b.where, &args)
	return buf.String(), args, nil
}

func appendWhere(buf *strings.Builder, conditions []Condition, args *[]any) {
	for i, c := range conditions {
		if i == 0 {
			buf.WriteString(" WHERE ")
		} else {
			buf.WriteString(" AND ")
		}
		c.appendSQL(buf, args)
	}
}

func placeholder(i int) string {
	return "$" + strconv.Itoa(i)
}
