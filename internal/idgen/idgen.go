// Package idgen generates ticket identifiers: a kind prefix plus a short
// random suffix drawn from an alphabet without look-alike characters.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet omits 0/O and 1/I so identifiers read back unambiguously.
var Alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// Length is the number of random characters after the prefix.
var Length = 8

// Generate returns "<PREFIX>-<suffix>".
func Generate(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "TK"
	}
	return prefix + "-" + id, nil
}
