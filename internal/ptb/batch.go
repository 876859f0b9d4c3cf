// Package ptb builds programmable transaction batches: an ordered list of
// inputs and commands in which later commands consume the results of earlier ones.
//
// A Batch is pure data. It is checked against Limits before submission and
// encoded to BCS once the submitter has resolved object versions and gas.
package ptb

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBatchTooLarge is returned when a batch exceeds a per-submission ceiling.
var ErrBatchTooLarge = errors.New("batch exceeds submission limits")

// CapacityError names the ceiling a batch broke.
type CapacityError struct {
	Batch string
	Limit string
	Have  uint64
	Max   uint64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("batch %q: %s %d exceeds %d", e.Batch, e.Limit, e.Have, e.Max)
}

func (e *CapacityError) Unwrap() error { return ErrBatchTooLarge }

// Limits are the ledger's per-submission ceilings.
type Limits struct {
	MaxCommands     int
	MaxInputObjects int
	MaxGasBudget    uint64
}

// DefaultLimits matches the protocol config of current Sui networks.
var DefaultLimits = Limits{
	MaxCommands:     1024,
	MaxInputObjects: 2048,
	MaxGasBudget:    50_000_000_000,
}

type argKind uint8

const (
	argGasCoin argKind = iota
	argInput
	argResult
	argNestedResult
)

// Argument is a placeholder for a value available when the batch executes.
type Argument struct {
	kind   argKind
	index  uint16
	nested uint16
}

// GasCoin refers to the coin paying for the batch.
func GasCoin() Argument { return Argument{kind: argGasCoin} }

// Nested selects the i-th value returned by a command. Only valid on command results.
func (a Argument) Nested(i uint16) Argument {
	if a.kind != argResult {
		return a
	}
	return Argument{kind: argNestedResult, index: a.index, nested: i}
}

// Input is either a pure BCS value or an object reference resolved at submit time.
type Input struct {
	Pure     []byte
	ObjectID string
	Mutable  bool
}

// IsObject reports whether the input refers to an on-chain object.
func (in Input) IsObject() bool { return in.ObjectID != "" }

type commandKind uint8

const (
	cmdMoveCall commandKind = iota
	cmdTransferObjects
	cmdSplitCoins
	cmdMergeCoins
	cmdPublish
)

type command struct {
	kind commandKind

	// MoveCall
	pkg      [32]byte
	module   string
	function string
	typeArgs []TypeTag

	// Publish
	modules [][]byte
	deps    [][32]byte

	// Shared by TransferObjects/SplitCoins: target is the recipient or source coin.
	target Argument
	args   []Argument
}

// Batch is one atomic unit of work.
type Batch struct {
	Label     string
	GasBudget uint64

	inputs   []Input
	objects  map[string]uint16
	commands []command
	err      error
}

// New starts an empty batch.
func New(label string) *Batch {
	return &Batch{Label: label, objects: make(map[string]uint16)}
}

func (b *Batch) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Batch) addInput(in Input) Argument {
	b.inputs = append(b.inputs, in)
	return Argument{kind: argInput, index: uint16(len(b.inputs) - 1)}
}

// Pure adds a raw BCS-encoded value.
func (b *Batch) Pure(v []byte) Argument { return b.addInput(Input{Pure: v}) }

// U8 adds a u8 value.
func (b *Batch) U8(v uint8) Argument { return b.Pure([]byte{v}) }

// U64 adds a little-endian u64 value.
func (b *Batch) U64(v uint64) Argument {
	var e encoder
	e.u64(v)
	return b.Pure(e.Bytes())
}

// Bool adds a bool value.
func (b *Batch) Bool(v bool) Argument {
	if v {
		return b.Pure([]byte{1})
	}
	return b.Pure([]byte{0})
}

// Address adds a 32-byte address value.
func (b *Batch) Address(addr string) Argument {
	a, err := ParseAddress(addr)
	if err != nil {
		b.fail(err)
	}
	return b.Pure(a[:])
}

// Object references an owned or shared object used by value or &mut.
// Referencing the same id twice yields the same input.
func (b *Batch) Object(id string) Argument { return b.object(id, true) }

// ImmutableObject references a shared object used by & only, such as the clock.
func (b *Batch) ImmutableObject(id string) Argument { return b.object(id, false) }

func (b *Batch) object(id string, mutable bool) Argument {
	a, err := ParseAddress(id)
	if err != nil {
		b.fail(err)
	}
	key := FormatAddress(a)
	if idx, ok := b.objects[key]; ok {
		if mutable {
			b.inputs[idx].Mutable = true
		}
		return Argument{kind: argInput, index: idx}
	}
	arg := b.addInput(Input{ObjectID: key, Mutable: mutable})
	b.objects[key] = arg.index
	return arg
}

func (b *Batch) addCommand(c command) Argument {
	b.commands = append(b.commands, c)
	return Argument{kind: argResult, index: uint16(len(b.commands) - 1)}
}

// MoveCall invokes "<package>::<module>::<function>" with type arguments.
func (b *Batch) MoveCall(target string, typeArgs []string, args ...Argument) Argument {
	parts := strings.Split(target, "::")
	if len(parts) != 3 {
		b.fail(fmt.Errorf("malformed move call target %q", target))
		return b.addCommand(command{kind: cmdMoveCall})
	}
	pkg, err := ParseAddress(parts[0])
	if err != nil {
		b.fail(err)
	}
	tags := make([]TypeTag, 0, len(typeArgs))
	for _, s := range typeArgs {
		tag, err := ParseTypeTag(s)
		if err != nil {
			b.fail(err)
			continue
		}
		tags = append(tags, tag)
	}
	return b.addCommand(command{
		kind:     cmdMoveCall,
		pkg:      pkg,
		module:   parts[1],
		function: parts[2],
		typeArgs: tags,
		args:     args,
	})
}

// SplitCoins splits one coin per amount off coin. Use Nested(i) to pick the i-th new coin.
func (b *Batch) SplitCoins(coin Argument, amounts ...Argument) Argument {
	return b.addCommand(command{kind: cmdSplitCoins, target: coin, args: amounts})
}

// MergeCoins folds sources into coin.
func (b *Batch) MergeCoins(coin Argument, sources ...Argument) Argument {
	return b.addCommand(command{kind: cmdMergeCoins, target: coin, args: sources})
}

// TransferObjects sends objs to the address argument to.
func (b *Batch) TransferObjects(objs []Argument, to Argument) Argument {
	return b.addCommand(command{kind: cmdTransferObjects, target: to, args: objs})
}

// Publish publishes compiled modules. The result is the package's UpgradeCap.
func (b *Batch) Publish(modules [][]byte, deps []string) Argument {
	c := command{kind: cmdPublish, modules: modules}
	for _, d := range deps {
		a, err := ParseAddress(d)
		if err != nil {
			b.fail(err)
			continue
		}
		c.deps = append(c.deps, a)
	}
	return b.addCommand(c)
}

// Commands returns the number of commands.
func (b *Batch) Commands() int { return len(b.commands) }

// Inputs returns a copy of the inputs in index order.
func (b *Batch) Inputs() []Input { return append([]Input(nil), b.inputs...) }

// ObjectIDs returns the distinct object ids the batch references.
func (b *Batch) ObjectIDs() []string {
	ids := make([]string, 0, len(b.objects))
	for _, in := range b.inputs {
		if in.IsObject() {
			ids = append(ids, in.ObjectID)
		}
	}
	return ids
}

// Validate checks construction errors, argument ordering and the capacity ceilings.
// It never reorders or splits; callers partition oversized work themselves.
func (b *Batch) Validate(l Limits) error {
	if b.err != nil {
		return fmt.Errorf("batch %q: %w", b.Label, b.err)
	}
	if len(b.commands) == 0 {
		return fmt.Errorf("batch %q: no commands", b.Label)
	}
	if l.MaxCommands > 0 && len(b.commands) > l.MaxCommands {
		return &CapacityError{Batch: b.Label, Limit: "commands", Have: uint64(len(b.commands)), Max: uint64(l.MaxCommands)}
	}
	if l.MaxInputObjects > 0 && len(b.objects) > l.MaxInputObjects {
		return &CapacityError{Batch: b.Label, Limit: "input objects", Have: uint64(len(b.objects)), Max: uint64(l.MaxInputObjects)}
	}
	if l.MaxGasBudget > 0 && b.GasBudget > l.MaxGasBudget {
		return &CapacityError{Batch: b.Label, Limit: "gas budget", Have: b.GasBudget, Max: l.MaxGasBudget}
	}
	for i, c := range b.commands {
		args := c.args
		if c.kind == cmdTransferObjects || c.kind == cmdSplitCoins || c.kind == cmdMergeCoins {
			args = append([]Argument{c.target}, args...)
		}
		for _, a := range args {
			if err := b.checkArg(i, a); err != nil {
				return fmt.Errorf("batch %q command %d: %w", b.Label, i, err)
			}
		}
	}
	return nil
}

func (b *Batch) checkArg(at int, a Argument) error {
	switch a.kind {
	case argInput:
		if int(a.index) >= len(b.inputs) {
			return fmt.Errorf("input %d out of range", a.index)
		}
	case argResult, argNestedResult:
		if int(a.index) >= at {
			return fmt.Errorf("result of command %d used before it is produced", a.index)
		}
	}
	return nil
}

// Partition splits total units of work into chunks of at most per units.
func Partition(total, per int) []int {
	if total <= 0 || per <= 0 {
		return nil
	}
	chunks := make([]int, 0, (total+per-1)/per)
	for total > 0 {
		n := per
		if total < per {
			n = total
		}
		chunks = append(chunks, n)
		total -= n
	}
	return chunks
}
