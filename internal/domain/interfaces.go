package domain

import (
	"context"

	"deepbook_go/internal/ptb"
)

// TxStatus is the on-chain outcome of an executed batch.
type TxStatus string

const (
	TxSuccess TxStatus = "success"
	TxFailure TxStatus = "failure"
)

// GasSummary is the resource consumption reported in effects, in MIST.
type GasSummary struct {
	ComputationCost         uint64 `json:"computation_cost"`
	StorageCost             uint64 `json:"storage_cost"`
	StorageRebate           uint64 `json:"storage_rebate"`
	NonRefundableStorageFee uint64 `json:"non_refundable_storage_fee"`
}

// Net is what the sender actually paid.
func (g GasSummary) Net() uint64 {
	total := g.ComputationCost + g.StorageCost
	if g.StorageRebate > total {
		return 0
	}
	return total - g.StorageRebate
}

// TxResult is the record returned for one submission.
type TxResult struct {
	Digest  string         `json:"digest"`
	Status  TxStatus       `json:"status"`
	Error   string         `json:"error,omitempty"` // abort message when Status is failure
	Gas     GasSummary     `json:"gas"`
	Changes []ChangeRecord `json:"changes"`
}

// Err converts an on-chain failure into a SubmissionError, nil on success.
func (r *TxResult) Err(batch string) error {
	if r.Status == TxSuccess {
		return nil
	}
	e := &SubmissionError{Batch: batch, Digest: r.Digest, Status: string(r.Status)}
	if r.Error != "" {
		e.Status += " (" + r.Error + ")"
	}
	return e
}

// Submitter signs and executes batches for one account.
//
// Submit returns an error only when the batch could not be executed at all
// (validation, transport, signature). Ledger-level failures come back as a
// TxResult with Status TxFailure.
type Submitter interface {
	Address() string
	Submit(ctx context.Context, b *ptb.Batch) (*TxResult, error)
	AwaitTransaction(ctx context.Context, digest string) (*TxResult, error)
}

// PackageBuilder compiles a Move package directory.
type PackageBuilder interface {
	Build(ctx context.Context, path string) (*CompiledPackage, error)
}

// CompiledPackage is the build collaborator's output.
type CompiledPackage struct {
	Modules      [][]byte
	Dependencies []string
	Digest       []byte
}

// Faucet funds an address with gas.
type Faucet interface {
	Fund(ctx context.Context, address string) error
}

// ManifestWriter records a package id in the package's manifest for later builds.
// Address reads back what a build of that package will link against.
type ManifestWriter interface {
	SetAddress(path, name, packageID string) error
	Address(path, name string) (string, error)
}
