// Package keys decides the effective unique key of an incremental model.
//
// Resolution walks a fixed priority chain and records every step it
// considered, so callers can show or assert why a key set was chosen.
package keys

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/mapsql/pkg/core"
)

// Step names one link of the resolution chain.
type Step string

// Resolution steps in priority order.
const (
	StepSkipped       Step = "skipped"
	StepTargetDDL     Step = "target_ddl"
	StepCachedDDL     Step = "cached_ddl"
	StepMappingField  Step = "mapping_unique_key"
	StepSuffixCD      Step = "suffix_cd"
	StepSuffixID      Step = "suffix_id"
	StepDDLPrimaryKey Step = "ddl_primary_key"
	StepFirstColumn   Step = "first_column"
)

// Decision is one evaluated step of the chain.
type Decision struct {
	Step     Step
	Keys     []string
	Accepted bool
	Reason   string
}

// Input is everything the policy may consult.
type Input struct {
	Model           string
	Materialization core.Materialization
	// TargetDDL is the parsed target table, nil when none was located.
	TargetDDL *core.TableSchema
	// TargetDDLErr explains why a located target DDL could not be used.
	TargetDDLErr error
	// Cached holds keys from an earlier DDL parse in the same session.
	Cached           *core.KeySet
	MappingUniqueKey []string
	Columns          []core.ColumnMapping
}

// Resolution is the outcome of the policy.
type Resolution struct {
	Keys      []string
	Step      Step
	Decisions []Decision
}

type resolver struct {
	in     Input
	logger *slog.Logger
	res    Resolution
}

// Resolve runs the priority chain. It only selects keys for incremental
// models; other materializations yield an empty resolution.
func Resolve(in Input, logger *slog.Logger) Resolution {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &resolver{in: in, logger: logger.With(slog.String("model", in.Model))}

	if in.Materialization != core.MaterializationIncremental {
		r.record(StepSkipped, nil, true, fmt.Sprintf("materialization %s does not use a unique key", in.Materialization))
		return r.res
	}

	steps := []func() bool{
		r.targetDDL,
		r.cachedDDL,
		r.mappingField,
		r.suffixCD,
		r.suffixID,
		r.ddlPrimaryKey,
		r.firstColumn,
	}
	for _, step := range steps {
		if step() {
			return r.res
		}
	}
	return r.res
}

func (r *resolver) record(step Step, keys []string, accepted bool, reason string) bool {
	d := Decision{Step: step, Keys: append([]string(nil), keys...), Accepted: accepted, Reason: reason}
	r.res.Decisions = append(r.res.Decisions, d)
	if accepted {
		r.res.Keys = d.Keys
		r.res.Step = step
	}
	r.logger.Info("key resolution",
		slog.String("step", string(step)),
		slog.Bool("accepted", accepted),
		slog.Any("keys", d.Keys),
		slog.String("reason", reason))
	return accepted
}

func (r *resolver) targetDDL() bool {
	switch {
	case r.in.TargetDDLErr != nil:
		return r.record(StepTargetDDL, nil, false, "target DDL unusable: "+r.in.TargetDDLErr.Error())
	case r.in.TargetDDL == nil:
		return r.record(StepTargetDDL, nil, false, "no target DDL located")
	case len(r.in.TargetDDL.Keys.UniqueKeys) == 0:
		return r.record(StepTargetDDL, nil, false, "target DDL declares no unique keys")
	}
	return r.record(StepTargetDDL, r.in.TargetDDL.Keys.UniqueKeys, true,
		fmt.Sprintf("unique keys declared by %s", r.in.TargetDDL.Name))
}

func (r *resolver) cachedDDL() bool {
	if r.in.Cached == nil || len(r.in.Cached.UniqueKeys) == 0 {
		return r.record(StepCachedDDL, nil, false, "no unique keys cached from an earlier DDL parse")
	}
	return r.record(StepCachedDDL, r.in.Cached.UniqueKeys, true, "unique keys cached from an earlier DDL parse")
}

func (r *resolver) mappingField() bool {
	if len(r.in.MappingUniqueKey) == 0 {
		return r.record(StepMappingField, nil, false, "UNIQUE_KEY is blank")
	}
	return r.record(StepMappingField, r.in.MappingUniqueKey, true, "UNIQUE_KEY from the mapping sheet")
}

func (r *resolver) suffixCD() bool {
	keys := r.matchColumns(func(name string) bool {
		return strings.HasSuffix(name, "_CD")
	})
	return r.record(StepSuffixCD, keys, len(keys) > 0, "columns ending in _CD")
}

func (r *resolver) suffixID() bool {
	keys := r.matchColumns(func(name string) bool {
		return name == "ID" || name == "KEY" || strings.HasSuffix(name, "_ID") || strings.HasSuffix(name, "_KEY")
	})
	return r.record(StepSuffixID, keys, len(keys) > 0, "columns ending in _ID or _KEY, or named ID or KEY")
}

func (r *resolver) ddlPrimaryKey() bool {
	if r.in.TargetDDL == nil || len(r.in.TargetDDL.Keys.PrimaryKeys) == 0 {
		return r.record(StepDDLPrimaryKey, nil, false, "no primary key in target DDL")
	}
	return r.record(StepDDLPrimaryKey, r.in.TargetDDL.Keys.PrimaryKeys, true, "primary key of target DDL")
}

func (r *resolver) firstColumn() bool {
	if len(r.in.Columns) == 0 {
		return r.record(StepFirstColumn, nil, false, "mapping has no columns")
	}
	return r.record(StepFirstColumn, []string{r.in.Columns[0].TargetColumn}, true, "first mapped column")
}

func (r *resolver) matchColumns(match func(upperName string) bool) []string {
	var keys []string
	for _, c := range r.in.Columns {
		if match(strings.ToUpper(c.TargetColumn)) {
			keys = append(keys, c.TargetColumn)
		}
	}
	return keys
}
