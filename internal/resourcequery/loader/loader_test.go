package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
	"github.com/armadaproject/resourcequery/internal/resourcequery/nodedb"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

const snapshotYaml = `
now: 1646147045
partitions:
  - name: batch
    nodeAllocationPolicy: fastest
  - name: debug
    deleted: true
nodes:
  - id: node-0
    partition: batch
    state: Idle
    configuredResources:
      procs: "8"
      memory: 64Gi
    speed: 1.5
    features: [gpu]
    reservations:
      - id: maintenance
        start: 1646150645
        end: 1646154245
        resources:
          procs: "8"
  - id: node-1
    partition: debug
    state: down
    configuredResources:
      procs: "4"
`

const queryYaml = `
requests:
  - taskCount: 4
    perTask:
      procs: "1"
      memory: 1Gi
    coAllocation: g
  - nodeCount: 1
    perTask:
      procs: "2"
    coAllocation: g
wallClockLimit: 3600
credentials:
  user: alice
  group: hpc
options: INTERSECTION,VERBOSE
startTime: "+60"
nodeAllocationPolicy: balanced
`

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSnapshot(t *testing.T) {
	snapshot, err := LoadSnapshot(writeFile(t, "snapshot.yaml", snapshotYaml))
	require.NoError(t, err)

	assert.Equal(t, int64(1646147045), snapshot.Now)
	require.Len(t, snapshot.Partitions, 2)
	assert.Equal(t, schedulerobjects.NodeAllocationPolicyFastest, snapshot.Partitions[0].NodeAllocationPolicy)
	assert.True(t, snapshot.Partitions[1].Deleted)

	require.Len(t, snapshot.Nodes, 2)
	node := snapshot.Nodes[0]
	assert.Equal(t, schedulerobjects.NodeStateIdle, node.State)
	assert.Equal(t, 8, node.ConfiguredResources.Procs())
	assert.Equal(t, 1.5, node.Speed)
	assert.Equal(t, []string{"gpu"}, node.Features)
	require.Len(t, node.Reservations, 1)
	assert.Equal(t, 8, node.Reservations[0].Resources.Procs())
	assert.Equal(t, schedulerobjects.NodeStateDown, snapshot.Nodes[1].State)

	db, err := nodedb.NewNodeDb(snapshot)
	require.NoError(t, err)
	assert.Len(t, db.Partitions(), 2)
	assert.Equal(t, 1, snapshot.Partitions[0].UpNodes)
}

func TestLoadQuery(t *testing.T) {
	q, err := LoadQuery(writeFile(t, "query.yaml", queryYaml))
	require.NoError(t, err)

	require.Len(t, q.Requests, 2)
	assert.Equal(t, 4, q.Requests[0].TaskCount)
	assert.Equal(t, 1, q.Requests[0].PerTask.Procs())
	assert.Equal(t, "g", q.Requests[0].CoAllocationLabel)
	assert.Equal(t, 1, q.Requests[1].NodeCount)
	assert.Equal(t, int64(3600), q.WallClockLimit)
	assert.Equal(t, "alice", q.Credentials.User)
	assert.Equal(t, "INTERSECTION,VERBOSE", q.Options)
	assert.Equal(t, "+60", q.StartTime)
	assert.Equal(t, schedulerobjects.NodeAllocationPolicyBalanced, q.NodeAllocationPolicy)
}

func TestLoadProfiles(t *testing.T) {
	path := writeFile(t, "profiles.yaml", `
- name: small
  startPad: 60
  defaults:
    nodeCount: 2
  acl: [hpc]
`)
	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "small", profiles[0].Name)
	assert.Equal(t, int64(60), profiles[0].StartPad)
	assert.Equal(t, 2, profiles[0].Defaults.NodeCount)
	assert.Equal(t, []string{"hpc"}, profiles[0].ACL)
}

func TestLoad_Errors(t *testing.T) {
	tests := map[string]struct {
		Path     func(t *testing.T) string
		Load     func(path string) error
		Expected func(err error) bool
	}{
		"empty path": {
			Path:     func(t *testing.T) string { return "" },
			Load:     loadQuery,
			Expected: armadaerrors.IsInvalidArgument,
		},
		"missing file": {
			Path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.yaml") },
			Load: loadSnapshot,
			Expected: func(err error) bool {
				var e *armadaerrors.ErrNotFound
				return errors.As(err, &e)
			},
		},
		"unknown field": {
			Path:     func(t *testing.T) string { return writeFile(t, "query.yaml", "requests: []\nwallclock: 10\n") },
			Load:     loadQuery,
			Expected: armadaerrors.IsInvalidArgument,
		},
		"bad node state": {
			Path: func(t *testing.T) string {
				return writeFile(t, "snapshot.yaml", "nodes:\n  - id: a\n    state: sleeping\n")
			},
			Load:     loadSnapshot,
			Expected: armadaerrors.IsInvalidArgument,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tc.Load(tc.Path(t))
			require.Error(t, err)
			assert.True(t, tc.Expected(err), "unexpected error %v", err)
		})
	}
}

func loadQuery(path string) error {
	_, err := LoadQuery(path)
	return err
}

func loadSnapshot(path string) error {
	_, err := LoadSnapshot(path)
	return err
}
