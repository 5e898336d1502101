// Package accounts implements account registration, credential
// verification, email verification, password resets, and JWT cookie
// sessions on top of a bun backed repository.
package accounts
