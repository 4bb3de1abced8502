package core

import "fmt"

// Materialization is the persistence strategy of a generated model.
type Materialization string

// Materialization constants for model types.
const (
	MaterializationIncremental  Materialization = "incremental"
	MaterializationTruncateLoad Materialization = "truncate_load"
	MaterializationLndLoad      Materialization = "lnd_load"
	MaterializationTable        Materialization = "table"
)

// ParseMaterialization validates a materialization name.
func ParseMaterialization(s string) (Materialization, error) {
	switch m := Materialization(s); m {
	case MaterializationIncremental, MaterializationTruncateLoad, MaterializationLndLoad, MaterializationTable:
		return m, nil
	default:
		return "", fmt.Errorf("unknown materialization %q", s)
	}
}

// DBTMaterialized returns the materialized value written into the dbt config block.
func (m Materialization) DBTMaterialized() string {
	switch m {
	case MaterializationTruncateLoad, MaterializationLndLoad:
		return string(MaterializationTable)
	default:
		return string(m)
	}
}
