// Package session models the caller's identity as an explicit value passed
// into controllers, instead of reading it ad hoc from ambient storage.
package session

import "context"

// Context carries the fields the screening pipeline needs about the current
// user. A zero Context is a valid anonymous session.
type Context struct {
	Username     string `json:"username"`
	Role         string `json:"role"`
	RememberedID string `json:"remembered_id,omitempty"`
}

// Anonymous reports whether no user is attached to the session.
func (c Context) Anonymous() bool { return c.Username == "" }

// Store persists session contexts across runs keyed by an opaque id.
type Store interface {
	Load(ctx context.Context, id string) (*Context, error)
	Save(ctx context.Context, id string, sc *Context) error
	Clear(ctx context.Context, id string) error
}
