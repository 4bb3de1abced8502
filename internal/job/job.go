// Package job emits dbt job descriptors.
package job

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/mapsql/pkg/core"
)

// Name returns <schema>_<table>, the job name shared with schedule descriptors.
func Name(target core.TableRef) string {
	return target.Schema + "_" + target.Table
}

// FileName returns <schema>_<table>.dbt.
func FileName(target core.TableRef) string {
	return Name(target) + ".dbt"
}

// Generate builds the job that builds the model and then runs each macro
// operation in order.
func Generate(target core.TableRef, operations ...string) *core.Artifact {
	lines := make([]string, 0, 1+len(operations))
	lines = append(lines, fmt.Sprintf("dbt build --select %s", target.Qualified()))
	for _, op := range operations {
		if op == "" {
			continue
		}
		lines = append(lines, "dbt run-operation "+op)
	}
	return &core.Artifact{
		Kind:    core.ArtifactJob,
		Name:    FileName(target),
		Content: strings.Join(lines, "\n") + "\n",
	}
}
