package sui

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

// ed25519Flag prefixes Ed25519 keys and signatures.
const ed25519Flag = 0x00

// intentTransaction is the (scope, version, app id) prefix signed for transactions.
var intentTransaction = []byte{0, 0, 0}

// Signer holds an Ed25519 keypair and derives the account address from it.
type Signer struct {
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	address string
}

// NewSigner accepts a sui.keystore entry (base64 of flag||seed), a base64 seed or a hex seed.
func NewSigner(encoded string) (*Signer, error) {
	raw, err := decodeKey(strings.TrimSpace(encoded))
	if err != nil {
		return nil, err
	}
	switch len(raw) {
	case ed25519.SeedSize + 1:
		if raw[0] != ed25519Flag {
			return nil, fmt.Errorf("unsupported key scheme flag 0x%02x", raw[0])
		}
		raw = raw[1:]
	case ed25519.SeedSize:
	default:
		return nil, fmt.Errorf("private key has %d bytes, want %d", len(raw), ed25519.SeedSize)
	}

	priv := ed25519.NewKeyFromSeed(raw)
	pub := priv.Public().(ed25519.PublicKey)

	h := blake2b.Sum256(append([]byte{ed25519Flag}, pub...))
	return &Signer{
		priv:    priv,
		pub:     pub,
		address: "0x" + hex.EncodeToString(h[:]),
	}, nil
}

func decodeKey(s string) ([]byte, error) {
	if h := strings.TrimPrefix(s, "0x"); len(h) == 2*ed25519.SeedSize {
		if raw, err := hex.DecodeString(h); err == nil {
			return raw, nil
		}
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("private key is neither hex nor base64: %w", err)
	}
	return raw, nil
}

// Address returns the 0x-prefixed account address.
func (s *Signer) Address() string { return s.address }

// SignTransaction signs BCS TransactionData and returns the serialized signature
// (flag || signature || public key) in base64.
func (s *Signer) SignTransaction(txBytes []byte) string {
	msg := make([]byte, 0, len(intentTransaction)+len(txBytes))
	msg = append(msg, intentTransaction...)
	msg = append(msg, txBytes...)
	digest := blake2b.Sum256(msg)

	sig := ed25519.Sign(s.priv, digest[:])

	out := make([]byte, 0, 1+len(sig)+len(s.pub))
	out = append(out, ed25519Flag)
	out = append(out, sig...)
	out = append(out, s.pub...)
	return base64.StdEncoding.EncodeToString(out)
}

// TransactionDigest computes the base58 digest the node will assign to txBytes.
func TransactionDigest(txBytes []byte) string {
	h := blake2b.Sum256(append([]byte("TransactionData::"), txBytes...))
	return base58.Encode(h[:])
}
