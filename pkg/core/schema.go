package core

// DDLColumn is a (name, raw type and modifiers) pair in physical column order.
type DDLColumn struct {
	Name string
	Type string
}

// KeySet holds key columns derived from DDL or resolution.
type KeySet struct {
	UniqueKeys  []string
	PrimaryKeys []string
}

// IsEmpty reports whether no keys of either kind are present.
func (k *KeySet) IsEmpty() bool {
	return k == nil || (len(k.UniqueKeys) == 0 && len(k.PrimaryKeys) == 0)
}

// TableSchema is the parsed shape of a target table.
type TableSchema struct {
	// Name is schema.table as written in the CREATE TABLE statement (uppercased).
	Name    string
	Columns []DDLColumn
	Keys    KeySet
}

// ColumnNames returns the column names in physical order.
func (t *TableSchema) ColumnNames() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
