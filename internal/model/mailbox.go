package model

import "strings"

// Mailbox is a disposable address of the form local@domain. The zero value
// means no mailbox has been chosen yet.
type Mailbox string

// NewMailbox joins a local part and a domain.
func NewMailbox(local, domain string) Mailbox {
	return Mailbox(local + "@" + domain)
}

// String returns the address.
func (m Mailbox) String() string { return string(m) }

// IsZero reports whether no mailbox is set.
func (m Mailbox) IsZero() bool { return m == "" }

// Local returns the part before the last '@'.
func (m Mailbox) Local() string {
	i := strings.LastIndexByte(string(m), '@')
	if i < 0 {
		return string(m)
	}
	return string(m[:i])
}

// Domain returns the part after the last '@', or "" if there is none.
func (m Mailbox) Domain() string {
	i := strings.LastIndexByte(string(m), '@')
	if i < 0 {
		return ""
	}
	return string(m[i+1:])
}
