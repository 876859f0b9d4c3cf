package ptb

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// encoder writes Binary Canonical Serialization.
type encoder struct {
	bytes.Buffer
}

func (e *encoder) u8(v uint8) { e.WriteByte(v) }

func (e *encoder) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.Write(b[:])
}

func (e *encoder) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.Write(b[:])
}

func (e *encoder) boolean(v bool) {
	if v {
		e.u8(1)
		return
	}
	e.u8(0)
}

func (e *encoder) uleb128(v uint64) {
	for v >= 0x80 {
		e.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	e.WriteByte(byte(v))
}

// vecBytes writes a length-prefixed byte vector.
func (e *encoder) vecBytes(b []byte) {
	e.uleb128(uint64(len(b)))
	e.Write(b)
}

func (e *encoder) str(s string) { e.vecBytes([]byte(s)) }

func (e *encoder) address(a [32]byte) { e.Write(a[:]) }

// ParseAddress decodes a 0x-prefixed hex address, left-padding short forms like 0x2.
func ParseAddress(s string) ([32]byte, error) {
	var a [32]byte
	h := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if h == "" || len(h) > 64 {
		return a, fmt.Errorf("invalid address %q", s)
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	copy(a[32-len(raw):], raw)
	return a, nil
}

// FormatAddress renders the canonical long form.
func FormatAddress(a [32]byte) string {
	return "0x" + hex.EncodeToString(a[:])
}

// TypeTag is a parsed Move type.
type TypeTag struct {
	kind   uint8
	Struct *StructTag
	Elem   *TypeTag
}

// StructTag is a parsed Move struct type.
type StructTag struct {
	Address [32]byte
	Module  string
	Name    string
	Params  []TypeTag
}

// BCS variant indices of TypeTag.
const (
	tagBool    = 0
	tagU8      = 1
	tagU64     = 2
	tagU128    = 3
	tagAddress = 4
	tagSigner  = 5
	tagVector  = 6
	tagStruct  = 7
	tagU16     = 8
	tagU32     = 9
	tagU256    = 10
)

var primitiveTags = map[string]uint8{
	"bool": tagBool, "u8": tagU8, "u16": tagU16, "u32": tagU32, "u64": tagU64,
	"u128": tagU128, "u256": tagU256, "address": tagAddress, "signer": tagSigner,
}

// ParseTypeTag parses forms like "u64", "vector<u8>" and "0x2::coin::Coin<0x2::sui::SUI>".
func ParseTypeTag(s string) (TypeTag, error) {
	p := &typeParser{src: s}
	tag, err := p.parse()
	if err != nil {
		return TypeTag{}, err
	}
	if strings.TrimSpace(p.src[p.pos:]) != "" {
		return TypeTag{}, fmt.Errorf("type %q: trailing input %q", s, p.src[p.pos:])
	}
	return tag, nil
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

// ident reads up to the next delimiter.
func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("<>, :", rune(p.src[p.pos])) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *typeParser) expect(tok string) error {
	p.skipSpace()
	if !strings.HasPrefix(p.src[p.pos:], tok) {
		return fmt.Errorf("type %q: expected %q at %d", p.src, tok, p.pos)
	}
	p.pos += len(tok)
	return nil
}

func (p *typeParser) parse() (TypeTag, error) {
	head := p.ident()
	if head == "" {
		return TypeTag{}, fmt.Errorf("type %q: empty type at %d", p.src, p.pos)
	}
	if k, ok := primitiveTags[head]; ok {
		return TypeTag{kind: k}, nil
	}
	if head == "vector" {
		if err := p.expect("<"); err != nil {
			return TypeTag{}, err
		}
		elem, err := p.parse()
		if err != nil {
			return TypeTag{}, err
		}
		if err := p.expect(">"); err != nil {
			return TypeTag{}, err
		}
		return TypeTag{kind: tagVector, Elem: &elem}, nil
	}

	addr, err := ParseAddress(head)
	if err != nil {
		return TypeTag{}, err
	}
	st := &StructTag{Address: addr}
	if err := p.expect("::"); err != nil {
		return TypeTag{}, err
	}
	st.Module = p.ident()
	if err := p.expect("::"); err != nil {
		return TypeTag{}, err
	}
	st.Name = p.ident()
	if st.Module == "" || st.Name == "" {
		return TypeTag{}, fmt.Errorf("type %q: incomplete struct tag", p.src)
	}

	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '<' {
		p.pos++
		for {
			param, err := p.parse()
			if err != nil {
				return TypeTag{}, err
			}
			st.Params = append(st.Params, param)
			p.skipSpace()
			if p.pos < len(p.src) && p.src[p.pos] == ',' {
				p.pos++
				continue
			}
			if err := p.expect(">"); err != nil {
				return TypeTag{}, err
			}
			break
		}
	}
	return TypeTag{kind: tagStruct, Struct: st}, nil
}

func (t TypeTag) encode(e *encoder) {
	e.uleb128(uint64(t.kind))
	switch t.kind {
	case tagVector:
		t.Elem.encode(e)
	case tagStruct:
		e.address(t.Struct.Address)
		e.str(t.Struct.Module)
		e.str(t.Struct.Name)
		e.uleb128(uint64(len(t.Struct.Params)))
		for _, p := range t.Struct.Params {
			p.encode(e)
		}
	}
}

func (t TypeTag) String() string {
	switch t.kind {
	case tagVector:
		return "vector<" + t.Elem.String() + ">"
	case tagStruct:
		s := FormatAddress(t.Struct.Address) + "::" + t.Struct.Module + "::" + t.Struct.Name
		if len(t.Struct.Params) > 0 {
			ps := make([]string, len(t.Struct.Params))
			for i, p := range t.Struct.Params {
				ps[i] = p.String()
			}
			s += "<" + strings.Join(ps, ", ") + ">"
		}
		return s
	}
	for name, k := range primitiveTags {
		if k == t.kind {
			return name
		}
	}
	return "?"
}
