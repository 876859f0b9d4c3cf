package sui

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"deepbook_go/internal/domain"
)

// u64 decodes numbers the node sends either as JSON numbers or strings.
type u64 uint64

func (v *u64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*v = u64(n)
	return nil
}

// owner is the polymorphic owner field of objects and object changes.
type owner struct {
	Address              string
	Object               string
	Shared               bool
	InitialSharedVersion uint64
	Immutable            bool
}

func (o *owner) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		o.Immutable = s == "Immutable"
		return nil
	}
	var raw struct {
		AddressOwner string `json:"AddressOwner"`
		ObjectOwner  string `json:"ObjectOwner"`
		Shared       *struct {
			InitialSharedVersion u64 `json:"initial_shared_version"`
		} `json:"Shared"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	o.Address = raw.AddressOwner
	o.Object = raw.ObjectOwner
	if raw.Shared != nil {
		o.Shared = true
		o.InitialSharedVersion = uint64(raw.Shared.InitialSharedVersion)
	}
	return nil
}

func (o owner) String() string {
	switch {
	case o.Shared:
		return "shared"
	case o.Immutable:
		return "immutable"
	case o.Object != "":
		return o.Object
	}
	return o.Address
}

type objectData struct {
	ObjectID string `json:"objectId"`
	Version  u64    `json:"version"`
	Digest   string `json:"digest"`
	Owner    *owner `json:"owner"`
}

type objectResponse struct {
	Data  *objectData     `json:"data"`
	Error json.RawMessage `json:"error"`
}

type coinPage struct {
	Data []struct {
		CoinObjectID string `json:"coinObjectId"`
		Version      u64    `json:"version"`
		Digest       string `json:"digest"`
		Balance      u64    `json:"balance"`
	} `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

type effects struct {
	Status struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	} `json:"status"`
	GasUsed struct {
		ComputationCost         u64 `json:"computationCost"`
		StorageCost             u64 `json:"storageCost"`
		StorageRebate           u64 `json:"storageRebate"`
		NonRefundableStorageFee u64 `json:"nonRefundableStorageFee"`
	} `json:"gasUsed"`
}

type objectChange struct {
	Type       string `json:"type"`
	ObjectType string `json:"objectType"`
	ObjectID   string `json:"objectId"`
	PackageID  string `json:"packageId"`
	Version    u64    `json:"version"`
	Owner      *owner `json:"owner"`
	Recipient  *owner `json:"recipient"`
}

// txBlockResponse is shared by sui_executeTransactionBlock and sui_getTransactionBlock.
type txBlockResponse struct {
	Digest        string         `json:"digest"`
	Effects       *effects       `json:"effects"`
	ObjectChanges []objectChange `json:"objectChanges"`
	Errors        []string       `json:"errors"`
}

func (r *txBlockResponse) toResult() *domain.TxResult {
	res := &domain.TxResult{Digest: r.Digest, Status: domain.TxFailure}
	if r.Effects != nil {
		if r.Effects.Status.Status == string(domain.TxSuccess) {
			res.Status = domain.TxSuccess
		}
		res.Error = r.Effects.Status.Error
		g := r.Effects.GasUsed
		res.Gas = domain.GasSummary{
			ComputationCost:         uint64(g.ComputationCost),
			StorageCost:             uint64(g.StorageCost),
			StorageRebate:           uint64(g.StorageRebate),
			NonRefundableStorageFee: uint64(g.NonRefundableStorageFee),
		}
	} else if len(r.Errors) > 0 {
		res.Error = strings.Join(r.Errors, "; ")
	}

	for _, c := range r.ObjectChanges {
		rec := domain.ChangeRecord{
			Kind:       domain.ChangeKind(c.Type),
			ObjectType: c.ObjectType,
			ObjectID:   c.ObjectID,
			PackageID:  c.PackageID,
			Version:    uint64(c.Version),
		}
		switch {
		case c.Owner != nil:
			rec.Owner = c.Owner.String()
		case c.Recipient != nil:
			rec.Owner = c.Recipient.String()
		}
		res.Changes = append(res.Changes, rec)
	}
	return res
}
