package externalapi

import "fmt"

// PubKey is a base58-encoded ed25519 public key
type PubKey string

// Condition is an output locking condition such as "SIG(pubkey)"
type Condition string

// SigCondition returns the condition unlocked by a signature of pubKey
func SigCondition(pubKey PubKey) Condition {
	return Condition(fmt.Sprintf("SIG(%s)", pubKey))
}
