package sui

import (
	"encoding/json"
	"testing"

	"deepbook_go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwner_Unmarshal(t *testing.T) {
	tests := []struct {
		raw  string
		want owner
		str  string
	}{
		{`{"AddressOwner":"0xabc"}`, owner{Address: "0xabc"}, "0xabc"},
		{`{"ObjectOwner":"0xdef"}`, owner{Object: "0xdef"}, "0xdef"},
		{`{"Shared":{"initial_shared_version":"7"}}`, owner{Shared: true, InitialSharedVersion: 7}, "shared"},
		{`{"Shared":{"initial_shared_version":12}}`, owner{Shared: true, InitialSharedVersion: 12}, "shared"},
		{`"Immutable"`, owner{Immutable: true}, "immutable"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var o owner
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &o))
			assert.Equal(t, tt.want, o)
			assert.Equal(t, tt.str, o.String())
		})
	}
}

func TestTxBlockResponse_ToResult(t *testing.T) {
	raw := `{
		"digest": "D1",
		"effects": {
			"status": {"status": "success"},
			"gasUsed": {"computationCost": "1000", "storageCost": "5000", "storageRebate": "2000", "nonRefundableStorageFee": "20"}
		},
		"objectChanges": [
			{"type": "published", "packageId": "0xp1", "version": "1"},
			{"type": "created", "objectType": "0xp1::registry::Registry", "objectId": "0xr", "version": "2", "owner": {"Shared": {"initial_shared_version": 2}}},
			{"type": "mutated", "objectType": "0x2::coin::Coin<0x2::sui::SUI>", "objectId": "0xg", "version": "3", "owner": {"AddressOwner": "0xme"}}
		]
	}`
	var resp txBlockResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	res := resp.toResult()
	assert.Equal(t, "D1", res.Digest)
	assert.Equal(t, domain.TxSuccess, res.Status)
	assert.Equal(t, uint64(4000), res.Gas.Net())
	require.Len(t, res.Changes, 3)
	assert.Equal(t, domain.ChangeRecord{Kind: domain.ChangePublished, PackageID: "0xp1", Version: 1}, res.Changes[0])
	assert.Equal(t, "shared", res.Changes[1].Owner)
	assert.Equal(t, "0xme", res.Changes[2].Owner)

	id, err := domain.Extract(res.Changes, domain.Created().Containing("Registry"))
	require.NoError(t, err)
	assert.Equal(t, "0xr", id)
}

func TestTxBlockResponse_Failure(t *testing.T) {
	raw := `{"digest":"D2","effects":{"status":{"status":"failure","error":"MoveAbort(place_limit_order, 3)"}}}`
	var resp txBlockResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	res := resp.toResult()
	assert.Equal(t, domain.TxFailure, res.Status)
	assert.Contains(t, res.Error, "MoveAbort")
	assert.ErrorIs(t, res.Err("orders round 1"), domain.ErrSubmissionFailed)
}
