// Package seed embeds the demo ledger used when no persisted state exists.
package seed

import (
	"bytes"
	_ "embed"
)

//go:embed ledger.json
var ledgerJSON []byte

// Ledger returns a copy of the embedded seed document.
func Ledger() []byte {
	return bytes.Clone(ledgerJSON)
}
