package models

import "time"

// Identity is a named email address. It owns at most one mailbox account
// and at most one SMTP account.
type Identity struct {
	ID        int64
	Email     string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Populated by the loader, not persisted with the identity row.
	Mailbox *Account
	SMTP    *Account
}

// Accounts returns the accounts that are set, mailbox first.
func (i *Identity) Accounts() []*Account {
	out := make([]*Account, 0, 2)
	if i.Mailbox != nil {
		out = append(out, i.Mailbox)
	}
	if i.SMTP != nil {
		out = append(out, i.SMTP)
	}
	return out
}

// Attach sets a loaded account on the identity and links it back.
func (i *Identity) Attach(a *Account) {
	a.Identity = i
	a.IdentityID = i.ID
	switch a.Kind {
	case KindMailbox:
		i.Mailbox = a
	case KindSMTP:
		i.SMTP = a
	}
}
