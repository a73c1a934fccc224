//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// Race-enabled builds run slow enough that the production cost blows
	// test timeouts.
	return bcrypt.DefaultCost
}
