// Package solana provides the ed25519 trading wallet and the JSON-RPC
// ledger client used for transaction submission and confirmation.
package solana

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"

	"soltrader/internal/domain"
)

// Wallet signs serialized Solana transactions with an ed25519 keypair.
type Wallet struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewWallet creates a Wallet from a base58-encoded secret key. Both the
// 64-byte keypair form and the 32-byte seed form are accepted.
func NewWallet(secretBase58 string) (*Wallet, error) {
	raw, err := base58.Decode(secretBase58)
	if err != nil {
		return nil, fmt.Errorf("solana: decode secret key: %w", err)
	}

	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, fmt.Errorf("solana: secret key must be %d or %d bytes, got %d",
			ed25519.PrivateKeySize, ed25519.SeedSize, len(raw))
	}

	return &Wallet{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// PublicKey returns the wallet address as a base58 string.
func (w *Wallet) PublicKey() string {
	return base58.Encode(w.pub)
}

// SignTransaction signs the message section of a serialized transaction and
// writes the signature into the fee payer's slot (index 0). The input is a
// wire-format transaction: a compact-u16 signature count, that many 64-byte
// signatures, then the message.
func (w *Wallet) SignTransaction(tx []byte) ([]byte, error) {
	count, offset, err := decodeCompactU16(tx)
	if err != nil {
		return nil, fmt.Errorf("solana: parse signature count: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("solana: transaction reserves no signature slots")
	}

	msgStart := offset + count*ed25519.SignatureSize
	if msgStart >= len(tx) {
		return nil, fmt.Errorf("solana: transaction truncated: %d bytes, message at %d", len(tx), msgStart)
	}

	sig := ed25519.Sign(w.priv, tx[msgStart:])

	signed := make([]byte, len(tx))
	copy(signed, tx)
	copy(signed[offset:offset+ed25519.SignatureSize], sig)
	return signed, nil
}

// decodeCompactU16 reads a Solana compact-u16 length prefix and returns the
// value and the number of bytes consumed.
func decodeCompactU16(data []byte) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("unexpected end of input")
		}
		b := int(data[i])
		value |= (b & 0x7f) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 longer than 3 bytes")
}

// Compile-time interface check.
var _ domain.Wallet = (*Wallet)(nil)
