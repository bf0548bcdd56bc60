// Package mailbox produces disposable addresses, either at random or from
// validated user input.
package mailbox

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/nhle/tempmail/internal/model"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	minLocal = 6
	maxLocal = 16
)

// ErrNoDomains is returned when the backend offered no domains; no address
// can be generated until a later domain lookup succeeds.
var ErrNoDomains = errors.New("cannot generate mailbox: no allowed domains")

var localPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidationError reports bad user input for a custom mailbox.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err (or any error in its chain) is a
// ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// Generator creates random mailboxes.
type Generator struct {
	intN func(n int) int
}

// NewGenerator returns a Generator backed by the runtime's auto-seeded
// ChaCha8 source.
func NewGenerator() *Generator {
	return &Generator{intN: rand.IntN}
}

// NewSeededGenerator returns a deterministic Generator, for tests.
func NewSeededGenerator(seed uint64) *Generator {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &Generator{intN: r.IntN}
}

// Generate returns a random local part of 6 to 16 lowercase alphanumerics at
// a domain picked uniformly from domains.
func (g *Generator) Generate(domains []string) (model.Mailbox, error) {
	if len(domains) == 0 {
		return "", ErrNoDomains
	}

	n := minLocal + g.intN(maxLocal-minLocal+1)
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[g.intN(len(alphabet))])
	}

	domain := domains[g.intN(len(domains))]
	return model.NewMailbox(b.String(), domain), nil
}

// ValidateLocal checks a user-supplied local part.
func ValidateLocal(local string) error {
	local = strings.TrimSpace(local)
	if local == "" {
		return &ValidationError{Field: "username", Reason: "enter a username"}
	}
	if !localPattern.MatchString(local) {
		return &ValidationError{
			Field:  "username",
			Reason: "only letters, digits and underscore are allowed",
		}
	}
	return nil
}

// ValidateDomain checks that domain was selected and is one of allowed.
func ValidateDomain(domain string, allowed []string) error {
	if domain == "" {
		return &ValidationError{Field: "domain", Reason: "select a domain"}
	}
	if !slices.Contains(allowed, domain) {
		return &ValidationError{Field: "domain", Reason: fmt.Sprintf("%q is not offered by the server", domain)}
	}
	return nil
}

// Custom builds a mailbox from user input. The domain must be one of
// allowed. Nothing here touches the network.
func Custom(local, domain string, allowed []string) (model.Mailbox, error) {
	if err := ValidateLocal(local); err != nil {
		return "", err
	}
	if err := ValidateDomain(domain, allowed); err != nil {
		return "", err
	}
	return model.NewMailbox(strings.TrimSpace(local), domain), nil
}
