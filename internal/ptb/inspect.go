package ptb

import (
	"encoding/binary"
	"strings"
)

// Call is a read-only view of one command.
// Args follow wire order: SplitCoins and MergeCoins put the coin first,
// TransferObjects puts the recipient last.
type Call struct {
	Kind     string
	Target   string // package::module::function, MoveCall only
	TypeArgs []string
	Args     []Argument
	Modules  int // Publish only
}

var commandNames = map[commandKind]string{
	cmdMoveCall:        "MoveCall",
	cmdTransferObjects: "TransferObjects",
	cmdSplitCoins:      "SplitCoins",
	cmdMergeCoins:      "MergeCoins",
	cmdPublish:         "Publish",
}

// Calls returns a view of every command in order.
func (b *Batch) Calls() []Call {
	calls := make([]Call, 0, len(b.commands))
	for _, c := range b.commands {
		call := Call{Kind: commandNames[c.kind]}
		switch c.kind {
		case cmdMoveCall:
			call.Target = FormatAddress(c.pkg) + "::" + c.module + "::" + c.function
			for _, t := range c.typeArgs {
				call.TypeArgs = append(call.TypeArgs, t.String())
			}
			call.Args = append(call.Args, c.args...)
		case cmdTransferObjects:
			call.Args = append(append(call.Args, c.args...), c.target)
		case cmdSplitCoins, cmdMergeCoins:
			call.Args = append([]Argument{c.target}, c.args...)
		case cmdPublish:
			call.Modules = len(c.modules)
		}
		calls = append(calls, call)
	}
	return calls
}

// Function returns the module::function part of a MoveCall target.
func (c Call) Function() string {
	parts := strings.Split(c.Target, "::")
	if len(parts) != 3 {
		return ""
	}
	return parts[1] + "::" + parts[2]
}

// IsGasCoin reports whether a refers to the gas coin.
func (a Argument) IsGasCoin() bool { return a.kind == argGasCoin }

// InputIndex returns the input position a refers to.
func (a Argument) InputIndex() (int, bool) {
	return int(a.index), a.kind == argInput
}

// ResultIndex returns the producing command and, for nested results, the value position (-1 otherwise).
func (a Argument) ResultIndex() (cmd, nested int, ok bool) {
	switch a.kind {
	case argResult:
		return int(a.index), -1, true
	case argNestedResult:
		return int(a.index), int(a.nested), true
	}
	return 0, 0, false
}

// InputOf returns the input a refers to.
func (b *Batch) InputOf(a Argument) (Input, bool) {
	i, ok := a.InputIndex()
	if !ok || i >= len(b.inputs) {
		return Input{}, false
	}
	return b.inputs[i], true
}

// U64Value decodes a pure u64 input.
func (in Input) U64Value() (uint64, bool) {
	if in.IsObject() || len(in.Pure) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(in.Pure), true
}

// BoolValue decodes a pure bool input.
func (in Input) BoolValue() (bool, bool) {
	if in.IsObject() || len(in.Pure) != 1 || in.Pure[0] > 1 {
		return false, false
	}
	return in.Pure[0] == 1, true
}
