package signer

import "github.com/pattonkan/sui-go/suisigner"

// Scheme is the Sui signature scheme flag carried in the first byte of a
// bech32 private key.
type Scheme byte

const (
	SchemeEd25519   Scheme = 0x00
	SchemeSecp256k1 Scheme = 0x01
)

func (s Scheme) String() string {
	switch s {
	case SchemeEd25519:
		return "ed25519"
	case SchemeSecp256k1:
		return "secp256k1"
	default:
		return "unknown"
	}
}

// Signer authorizes transactions for one address.
type Signer interface {
	Address() string
	// Keypair is the key the ledger client signs transaction bytes with.
	Keypair() *suisigner.Signer
}
