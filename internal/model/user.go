package model

// Identity is the user identity of this client. Exactly one of the two
// identifiers is active at a time; the inactive one is retained so a later
// migration can go back.
type Identity struct {
	AnonymousID    string
	RegisteredID   string
	IsRegistered   bool
	TrialRemaining int
}

// ActiveID returns the identifier conversations and usage are keyed by.
func (id Identity) ActiveID() string {
	if id.IsRegistered {
		return id.RegisteredID
	}
	return id.AnonymousID
}
