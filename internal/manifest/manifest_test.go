package manifest

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hallgrim/keel/internal/core"
	"github.com/hallgrim/keel/internal/runtime"
)

func compileString(t *testing.T, src string) (*Manifest, error) {
	t.Helper()
	ctx := cuecontext.New()
	return Compile(ctx.CompileString(src))
}

func TestCompileFullManifest(t *testing.T) {
	m, err := compileString(t, `
account: "acct-1"
owner:   "aa11"
owners: [
	{slot: 1, credential: "bb22"},
	{slot: 3, credential: "cc33"},
]
orders: [
	{interval: 3600, max_executions: 12, start_time: 100, payload: "cafe"},
]
setup_time: 50
`)
	require.NoError(t, err)

	assert.Equal(t, core.Account("acct-1"), m.Account)
	assert.Equal(t, core.Credential{0xaa, 0x11}, m.Owner)
	require.Len(t, m.ExtraOwners, 2)
	assert.Equal(t, uint32(1), m.ExtraOwners[0].Slot)
	assert.Equal(t, core.Credential{0xbb, 0x22}, m.ExtraOwners[0].Credential)
	assert.Equal(t, uint32(3), m.ExtraOwners[1].Slot)
	require.Len(t, m.Orders, 1)
	assert.Equal(t, OrderSpec{
		Interval:      3600,
		MaxExecutions: 12,
		StartTime:     100,
		Payload:       core.Payload{0xca, 0xfe},
	}, m.Orders[0])
	assert.Equal(t, int64(50), m.SetupTime)
}

func TestCompileMinimalManifest(t *testing.T) {
	m, err := compileString(t, `
account: "acct-1"
owner:   "aa11"
`)
	require.NoError(t, err)
	assert.Empty(t, m.ExtraOwners)
	assert.Empty(t, m.Orders)
	assert.Zero(t, m.SetupTime)
}

func TestCompileMissingAccount(t *testing.T) {
	_, err := compileString(t, `owner: "aa11"`)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "account", ce.Field)
}

func TestCompileMissingOwner(t *testing.T) {
	_, err := compileString(t, `account: "acct-1"`)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "owner", ce.Field)
}

func TestCompileBadHexCredential(t *testing.T) {
	_, err := compileString(t, `
account: "acct-1"
owner:   "not hex"
`)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "invalid hex")
}

func TestCompileMissingOrderField(t *testing.T) {
	_, err := compileString(t, `
account: "acct-1"
owner:   "aa11"
orders: [{interval: 3600, start_time: 0}]
`)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "orders[0].max_executions", ce.Field)
}

func TestLoadManifestFile(t *testing.T) {
	m, err := Load("testdata/account.cue")
	require.NoError(t, err)

	assert.Equal(t, core.Account("acct-main"), m.Account)
	require.Len(t, m.Orders, 2)
	assert.Empty(t, m.Orders[1].Payload)
	assert.Empty(t, Validate(m))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/no-such-manifest.cue")
	require.Error(t, err)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	m := &Manifest{
		Account: "  ",
		ExtraOwners: []OwnerEntry{
			{Slot: 0, Credential: core.Credential{0x01}},
			{Slot: 2, Credential: nil},
			{Slot: 2, Credential: core.Credential{0x02}},
		},
		Orders: []OrderSpec{
			{Interval: -1, MaxExecutions: -2, StartTime: -3},
		},
		SetupTime: -1,
	}

	errs := Validate(m)
	codes := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = e.Code
	}

	assert.ElementsMatch(t, []string{
		ErrAccountEmpty,
		ErrOwnerEmpty,
		ErrSlotZeroReserved,
		ErrOwnerCredEmpty,
		ErrDuplicateSlot,
		ErrNegativeInterval,
		ErrNegativeMax,
		ErrNegativeStartTime,
		ErrNegativeSetupTime,
	}, codes)
}

func TestValidateCleanManifest(t *testing.T) {
	m := &Manifest{
		Account: "acct-1",
		Owner:   core.Credential{0xaa},
		Orders:  []OrderSpec{{Interval: 60, MaxExecutions: 5}},
	}
	assert.Empty(t, Validate(m))
}

func TestPlanOrderingAndArgs(t *testing.T) {
	m := &Manifest{
		Account: "acct-1",
		Owner:   core.Credential{0xaa, 0x11},
		ExtraOwners: []OwnerEntry{
			{Slot: 1, Credential: core.Credential{0xbb, 0x22}},
		},
		Orders: []OrderSpec{
			{Interval: 3600, MaxExecutions: 12, StartTime: 100, Payload: core.Payload{0xca, 0xfe}},
		},
		SetupTime: 50,
	}

	reqs := Plan(m)
	require.Len(t, reqs, 3)

	assert.Equal(t, runtime.KindOwnersInstall, reqs[0].Kind)
	assert.Equal(t, core.String("aa11"), reqs[0].Args["owner"])

	assert.Equal(t, runtime.KindOwnersAddOwner, reqs[1].Kind)
	assert.Equal(t, core.Int(1), reqs[1].Args["slot"])

	assert.Equal(t, runtime.KindSchedulerCreate, reqs[2].Kind)
	assert.Equal(t, core.Int(3600), reqs[2].Args["interval"])
	assert.Equal(t, core.String("cafe"), reqs[2].Args["payload"])

	for _, r := range reqs {
		assert.Equal(t, core.Account("acct-1"), r.Account)
		assert.Equal(t, int64(50), r.OpTime)
	}
}
