package mailbox

import (
	"regexp"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

var generated = regexp.MustCompile(`^[a-z0-9]{6,16}@(a\.test|b\.test)$`)

func TestGenerateShape(t *testing.T) {
	g := NewSeededGenerator(42)
	seenLen := map[int]bool{}
	for i := 0; i < 500; i++ {
		mb, err := g.Generate([]string{"a.test", "b.test"})
		require.Nil(t, err)
		require.Regexp(t, generated, mb.String())
		seenLen[len(mb.Local())] = true
	}
	require.True(t, seenLen[6])
	require.True(t, seenLen[16])
	require.False(t, seenLen[5])
	require.False(t, seenLen[17])
}

func TestGenerateNoDomains(t *testing.T) {
	mb, err := NewGenerator().Generate(nil)
	require.True(t, errors.Is(err, ErrNoDomains))
	require.True(t, mb.IsZero())
}

func TestCustom(t *testing.T) {
	allowed := []string{"example.com"}

	mb, err := Custom("  John_Doe1 ", "example.com", allowed)
	require.Nil(t, err)
	require.Equal(t, "John_Doe1@example.com", mb.String())
}

func TestCustomRejects(t *testing.T) {
	allowed := []string{"example.com"}
	cases := []struct {
		name   string
		local  string
		domain string
		field  string
	}{
		{"space", "john doe", "example.com", "username"},
		{"empty", "   ", "example.com", "username"},
		{"dot", "john.doe", "example.com", "username"},
		{"no domain", "john", "", "domain"},
		{"unknown domain", "john", "evil.test", "domain"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mb, err := Custom(tc.local, tc.domain, allowed)
			require.True(t, mb.IsZero())
			require.True(t, IsValidationError(err))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			require.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestValidateDomain(t *testing.T) {
	allowed := []string{"a.test", "b.test"}

	require.NoError(t, ValidateDomain("b.test", allowed))

	err := ValidateDomain("c.test", allowed)
	require.True(t, IsValidationError(err))
	require.Contains(t, err.Error(), `"c.test"`)

	require.True(t, IsValidationError(ValidateDomain("", allowed)))
}
