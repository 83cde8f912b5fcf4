package service

// Caller identifies who performs an operation. The zero value is an anonymous visitor.
type Caller struct {
	UserID   int64
	Username string
}

// Authenticated reports whether the caller is a logged-in user.
func (c Caller) Authenticated() bool {
	return c.UserID != 0
}
