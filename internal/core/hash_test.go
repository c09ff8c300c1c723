package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationIDDeterminism(t *testing.T) {
	args := Object{
		"interval":       Int(86400),
		"max_executions": Int(10),
	}

	id1, err := OperationID("tok-1", "0xabc", "scheduler.create", args, 0, 1)
	require.NoError(t, err)

	id2, err := OperationID("tok-1", "0xabc", "scheduler.create", args, 0, 1)
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "OperationID must be deterministic")
	assert.Len(t, id1, 64, "SHA-256 hex is 64 characters")
}

func TestOperationIDChangesWithInput(t *testing.T) {
	args := Object{"order_id": Int(1)}

	id1 := MustOperationID("tok-1", "0xabc", "scheduler.fire", args, 0, 1)
	id2 := MustOperationID("tok-2", "0xabc", "scheduler.fire", args, 0, 1)
	id3 := MustOperationID("tok-1", "0xdef", "scheduler.fire", args, 0, 1)
	id4 := MustOperationID("tok-1", "0xabc", "scheduler.remove", args, 0, 1)
	id5 := MustOperationID("tok-1", "0xabc", "scheduler.fire", args, 5, 1)
	id6 := MustOperationID("tok-1", "0xabc", "scheduler.fire", args, 0, 2)

	ids := []string{id1, id2, id3, id4, id5, id6}
	seen := make(map[string]int)
	for i, id := range ids {
		prev, dup := seen[id]
		assert.False(t, dup, "ids %d and %d collide", prev, i)
		seen[id] = i
	}
}

func TestOutcomeIDLinksOperation(t *testing.T) {
	opID := MustOperationID("tok-1", "0xabc", "owners.addOwner", Object{}, 0, 1)

	id1, err := OutcomeID(opID, "ok", Object{"slot": Int(1)}, 2)
	require.NoError(t, err)

	id2, err := OutcomeID(opID, "owner_exists", Object{"slot": Int(1)}, 2)
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2, "different output cases should produce different IDs")
}

func TestDomainSeparation(t *testing.T) {
	// Identical canonical payloads under different domains must not collide
	obj := Object{"x": Int(1)}
	canonical, err := MarshalCanonical(obj)
	require.NoError(t, err)

	a := hashWithDomain(DomainOperation, canonical)
	b := hashWithDomain(DomainOutcome, canonical)
	c := hashWithDomain(DomainFiring, canonical)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, b, c)
	assert.NotEqual(t, a, c)
}

func TestFiringKeyDeterminism(t *testing.T) {
	f := Firing{Account: "0xabc", OrderID: 3, Seq: 17}

	k1, err := FiringKey(f)
	require.NoError(t, err)
	k2, err := FiringKey(f)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	f.Seq = 18
	k3, err := FiringKey(f)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3, "different seq should produce a different key")
}
