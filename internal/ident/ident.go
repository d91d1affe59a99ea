// Package ident generates object identifiers.
//
// Identifiers exist for uniqueness only and must never be used as secrets.
// The metadata store's primary key remains the authority on collisions.
package ident

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a random (version 4) UUID in canonical 8-4-4-4-12 form.
func New() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate object id: %w", err)
	}
	return id.String(), nil
}
