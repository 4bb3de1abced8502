package job

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/mapsql/pkg/core"
)

func TestGenerate(t *testing.T) {
	target := core.TableRef{Schema: "SCH", Table: "T2"}

	tests := []struct {
		name string
		ops  []string
		want string
	}{
		{
			name: "build only",
			want: "dbt build --select SCH.T2\n",
		},
		{
			name: "with operations",
			ops:  []string{"MAC_SCH_T2_MERGE", "", "MAC_SCH_T2_INSERT"},
			want: "dbt build --select SCH.T2\ndbt run-operation MAC_SCH_T2_MERGE\ndbt run-operation MAC_SCH_T2_INSERT\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art := Generate(target, tt.ops...)
			assert.Equal(t, core.ArtifactJob, art.Kind)
			assert.Equal(t, "SCH_T2.dbt", art.Name)
			assert.Equal(t, tt.want, art.Content)
		})
	}
}
