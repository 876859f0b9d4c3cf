package ptb

import (
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// ObjectRef pins an owned object to the version the batch consumes.
type ObjectRef struct {
	ObjectID string
	Version  uint64
	Digest   string // base58
}

// ResolvedObject is what the submitter learned about an object input.
type ResolvedObject struct {
	Ref                  ObjectRef
	Shared               bool
	InitialSharedVersion uint64
}

// GasData describes who pays and how much.
type GasData struct {
	Payment []ObjectRef
	Owner   string
	Price   uint64
	Budget  uint64
}

// Encode serializes the batch as TransactionData (V1, programmable, no expiration).
func (b *Batch) Encode(sender string, objects map[string]ResolvedObject, gas GasData) ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	senderAddr, err := ParseAddress(sender)
	if err != nil {
		return nil, err
	}
	ownerAddr, err := ParseAddress(gas.Owner)
	if err != nil {
		return nil, err
	}

	var e encoder
	e.uleb128(0) // TransactionData::V1
	e.uleb128(0) // TransactionKind::ProgrammableTransaction

	e.uleb128(uint64(len(b.inputs)))
	for _, in := range b.inputs {
		if err := encodeInput(&e, in, objects); err != nil {
			return nil, fmt.Errorf("batch %q: %w", b.Label, err)
		}
	}

	e.uleb128(uint64(len(b.commands)))
	for _, c := range b.commands {
		c.encode(&e)
	}

	e.address(senderAddr)

	e.uleb128(uint64(len(gas.Payment)))
	for _, ref := range gas.Payment {
		if err := encodeObjectRef(&e, ref); err != nil {
			return nil, err
		}
	}
	e.address(ownerAddr)
	e.u64(gas.Price)
	e.u64(gas.Budget)

	e.uleb128(0) // TransactionExpiration::None
	return e.Bytes(), nil
}

func encodeInput(e *encoder, in Input, objects map[string]ResolvedObject) error {
	if !in.IsObject() {
		e.uleb128(0) // CallArg::Pure
		e.vecBytes(in.Pure)
		return nil
	}
	obj, ok := objects[in.ObjectID]
	if !ok {
		return fmt.Errorf("object %s was not resolved", in.ObjectID)
	}
	e.uleb128(1) // CallArg::Object
	if obj.Shared {
		id, err := ParseAddress(in.ObjectID)
		if err != nil {
			return err
		}
		e.uleb128(1) // ObjectArg::SharedObject
		e.address(id)
		e.u64(obj.InitialSharedVersion)
		e.boolean(in.Mutable)
		return nil
	}
	e.uleb128(0) // ObjectArg::ImmOrOwnedObject
	return encodeObjectRef(e, obj.Ref)
}

func encodeObjectRef(e *encoder, ref ObjectRef) error {
	id, err := ParseAddress(ref.ObjectID)
	if err != nil {
		return err
	}
	digest := base58.Decode(ref.Digest)
	if len(digest) != 32 {
		return fmt.Errorf("object %s: digest %q is not 32 bytes", ref.ObjectID, ref.Digest)
	}
	e.address(id)
	e.u64(ref.Version)
	e.vecBytes(digest)
	return nil
}

func (a Argument) encode(e *encoder) {
	e.uleb128(uint64(a.kind))
	switch a.kind {
	case argInput, argResult:
		e.u16(a.index)
	case argNestedResult:
		e.u16(a.index)
		e.u16(a.nested)
	}
}

func encodeArgs(e *encoder, args []Argument) {
	e.uleb128(uint64(len(args)))
	for _, a := range args {
		a.encode(e)
	}
}

func (c command) encode(e *encoder) {
	e.uleb128(uint64(c.kind))
	switch c.kind {
	case cmdMoveCall:
		e.address(c.pkg)
		e.str(c.module)
		e.str(c.function)
		e.uleb128(uint64(len(c.typeArgs)))
		for _, t := range c.typeArgs {
			t.encode(e)
		}
		encodeArgs(e, c.args)
	case cmdTransferObjects:
		encodeArgs(e, c.args)
		c.target.encode(e)
	case cmdSplitCoins, cmdMergeCoins:
		c.target.encode(e)
		encodeArgs(e, c.args)
	case cmdPublish:
		e.uleb128(uint64(len(c.modules)))
		for _, m := range c.modules {
			e.vecBytes(m)
		}
		e.uleb128(uint64(len(c.deps)))
		for _, d := range c.deps {
			e.address(d)
		}
	}
}
