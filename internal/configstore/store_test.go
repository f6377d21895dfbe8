package configstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "printquote/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "config.json"))
}

func TestEnsureDefaultSeedsOnce(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.EnsureDefault(DefaultSnapshot()))
	snap, err := s.Read()
	require.NoError(t, err)
	assert.NotEmpty(t, snap.Materials)
	assert.NotEmpty(t, snap.Machines)

	// A second call must not clobber existing state.
	snap.Materials = snap.Materials[:1]
	require.NoError(t, s.Replace(snap, "tester"))
	require.NoError(t, s.EnsureDefault(DefaultSnapshot()))

	again, err := s.Read()
	require.NoError(t, err)
	assert.Len(t, again.Materials, 1)
}

func TestReplaceRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureDefault(DefaultSnapshot()))

	snap, err := s.Read()
	require.NoError(t, err)
	snap.Settings["markup_pct"] = 0.35
	snap.Materials = append(snap.Materials, Material{ID: "abs-red", Name: "ABS Red", PricePerKg: 600000})
	require.NoError(t, s.Replace(snap, "admin@example.com"))

	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, 0.35, got.Settings.Float("markup_pct", 0))
	mat, ok := got.MaterialByID("abs-red")
	require.True(t, ok)
	// Normalization resolves the unset flags to their defaults.
	assert.True(t, mat.Public.Or(false))
	assert.True(t, mat.Active.Or(false))
}

func TestReplaceRejectsDuplicateIDs(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureDefault(DefaultSnapshot()))
	before, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	snap, err := s.Read()
	require.NoError(t, err)
	snap.Materials = append(snap.Materials, snap.Materials[0])

	err = s.Replace(snap, "tester")
	require.Error(t, err)
	assert.True(t, perrors.IsCode(err, perrors.ErrCodeDuplicateID))

	// The canonical file is untouched and no backup is produced on rejection.
	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoDirExists(t, filepath.Join(filepath.Dir(s.Path()), "backups"))
}

func TestReplaceWritesBackupAndAudit(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureDefault(DefaultSnapshot()))

	snap, err := s.Read()
	require.NoError(t, err)
	require.NoError(t, s.Replace(snap, "ops/admin"))

	backups, err := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), "backups", "config-*.json"))
	require.NoError(t, err)
	require.Len(t, backups, 1)
	// Actor is sanitized for the filename.
	assert.Contains(t, filepath.Base(backups[0]), "ops_admin")

	records, err := s.TailAudit(10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "config.seed", records[0].Action)
	assert.Equal(t, "system", records[0].Actor)
	assert.Equal(t, "config.replace", records[1].Action)
	assert.Equal(t, "ops/admin", records[1].Actor)
}

func TestTailAuditLimitsAndMissingFile(t *testing.T) {
	s := newTestStore(t)

	records, err := s.TailAudit(5)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, s.EnsureDefault(DefaultSnapshot()))
	snap, err := s.Read()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Replace(snap, "tester"))
	}

	records, err = s.TailAudit(3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, "config.replace", rec.Action)
		assert.NotEqual(t, "", rec.ID.String())
	}
}

func TestCanonicalFileIsIndentedJSON(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureDefault(DefaultSnapshot()))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"settings\"")
	assert.Equal(t, byte('\n'), data[len(data)-1])
}

func TestFlexBoolLegacyEncodings(t *testing.T) {
	raw := `{
		"settings": {},
		"materials": [
			{"id": "a", "public": true,  "active": 1},
			{"id": "b", "public": "no",  "active": "ON"},
			{"id": "c", "public": "bogus"},
			{"id": "d", "public": 0.5, "active": "off"}
		],
		"machines": [{"id": "m", "active": "0"}]
	}`
	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	snap.Normalize()

	assert.True(t, snap.Materials[0].Public.Or(false))
	assert.True(t, snap.Materials[0].Active.Or(false))
	assert.False(t, snap.Materials[1].Public.Or(true))
	assert.True(t, snap.Materials[1].Active.Or(false))
	// Unrecognized values normalize to the field default (public, active).
	assert.True(t, snap.Materials[2].Public.Or(false))
	assert.True(t, snap.Materials[2].Active.Or(false))
	assert.True(t, snap.Materials[3].Public.Or(false))
	assert.False(t, snap.Materials[3].Active.Or(true))
	assert.False(t, snap.Machines[0].Active.Or(true))
}

func TestFlexBoolMarshalsPlainBool(t *testing.T) {
	out, err := json.Marshal(Material{ID: "x", Public: Flex(true), Active: Flex(false)})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"public":true`)
	assert.Contains(t, string(out), `"active":false`)
}

func TestSnapshotLookupsSkipInactive(t *testing.T) {
	snap := &Snapshot{
		Materials: []Material{
			{ID: "live"},
			{ID: "dead", Active: Flex(false)},
			{ID: "internal", Public: Flex(false)},
		},
		Machines: []Machine{
			{ID: "off", Active: Flex(false)},
			{ID: "on"},
		},
	}
	snap.Normalize()

	_, ok := snap.MaterialByID("dead")
	assert.False(t, ok)
	_, ok = snap.MaterialByID("live")
	assert.True(t, ok)

	assert.Len(t, snap.ActiveMaterials(), 2)
	assert.Len(t, snap.PublicMaterials(), 1)
	assert.Len(t, snap.ActiveMachines(), 1)
	assert.Equal(t, "on", snap.DefaultMachineID())
}

func TestDefaultMachineIDHonorsSetting(t *testing.T) {
	snap := &Snapshot{
		Settings: Settings{"default_machine_id": "b"},
		Machines: []Machine{{ID: "a"}, {ID: "b"}},
	}
	snap.Normalize()
	assert.Equal(t, "b", snap.DefaultMachineID())

	// A stale setting pointing at a missing machine falls back to the first
	// active one.
	snap.Settings["default_machine_id"] = "gone"
	assert.Equal(t, "a", snap.DefaultMachineID())
}
