package querybuilder

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// UpsertModel inserts the db-tagged fields of model and, on a conflict over
// conflictOn, overwrites every other tagged column.
func UpsertModel(table string, model any, conflictOn ...string) (string, []any, error) {
	fields, err := dbFields(model)
	if err != nil {
		return "", nil, err
	}
	if len(conflictOn) == 0 {
		return "", nil, fmt.Errorf("upsert into %s requires conflict columns", table)
	}

	builder := InsertInto(table)
	updates := make([]string, 0, len(fields))
	for _, f := range fields {
		builder.Set(f.column, f.value)
		if !slices.Contains(conflictOn, f.column) {
			updates = append(updates, f.column)
		}
	}
	return builder.OnConflictUpdate(conflictOn, updates...).ToSQL()
}

type dbField struct {
	column string
	value  any
}

func dbFields(model any) ([]dbField, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, fmt.Errorf("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be struct, got %s", value.Kind())
	}

	typ := value.Type()
	fields := make([]dbField, 0, typ.NumField())
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		column, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		column = strings.TrimSpace(column)
		if column == "" || column == "-" {
			continue
		}
		fields = append(fields, dbField{column: column, value: value.Field(i).Interface()})
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("model has no db columns")
	}
	return fields, nil
}
