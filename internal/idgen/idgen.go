// Package idgen provides short, URL-safe record ids backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultPrefix is prepended to every generated record id.
const DefaultPrefix = "rec-"

// Alphabet defines the character set used for the random portion of the id.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 10

// Generator assigns ids to records that arrive without one.
type Generator interface {
	Generate() (string, error)
}

// Nanoid generates prefixed random ids.
type Nanoid struct {
	Prefix string
}

// Default returns a Nanoid generator using DefaultPrefix.
func Default() Nanoid {
	return Nanoid{Prefix: DefaultPrefix}
}

// Generate implements Generator.
func (n Nanoid) Generate() (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return n.Prefix + id, nil
}
