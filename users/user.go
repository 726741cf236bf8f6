package users

import (
	"context"
	"errors"
)

// User is a single directory record.
type User struct {
	ID      int    `json:"id" yaml:"id" jsonschema:"minimum=1,description=Sequential identifier assigned on creation"`
	Name    string `json:"name" yaml:"name" jsonschema:"description=Full name"`
	Email   string `json:"email" yaml:"email" jsonschema:"description=Email address"`
	Address string `json:"address" yaml:"address" jsonschema:"description=Postal address"`
	Phone   string `json:"phone" yaml:"phone" jsonschema:"description=Phone number"`
}

// Candidate is a user that has not been assigned an identifier yet.
type Candidate struct {
	Name    string `json:"name" jsonschema:"description=Full name"`
	Email   string `json:"email" jsonschema:"description=Email address"`
	Address string `json:"address" jsonschema:"description=Postal address"`
	Phone   string `json:"phone" jsonschema:"description=Phone number"`
}

// WithID returns the full record for c with the given identifier.
func (c Candidate) WithID(id int) User {
	return User{ID: id, Name: c.Name, Email: c.Email, Address: c.Address, Phone: c.Phone}
}

// Repository is the record store used by the MCP handlers and the CLI.
//
// Identifiers are sequential: Append assigns len(List())+1.
type Repository interface {
	// List returns every record in insertion order.
	List(ctx context.Context) ([]User, error)
	// Append stores c and returns its newly assigned identifier.
	Append(ctx context.Context, c Candidate) (int, error)
}

var (
	// ErrMalformed reports a document or generated payload that is not valid
	// user JSON.
	ErrMalformed = errors.New("users: malformed user data")

	// ErrNotFound reports a lookup for an identifier that has no record.
	ErrNotFound = errors.New("users: not found")
)

// Find returns the record with the given id.
func Find(records []User, id int) (User, bool) {
	for _, u := range records {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// Get lists repo and looks up id, returning ErrNotFound when absent.
func Get(ctx context.Context, repo Repository, id int) (User, error) {
	all, err := repo.List(ctx)
	if err != nil {
		return User{}, err
	}
	u, ok := Find(all, id)
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}
