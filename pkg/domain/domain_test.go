package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePrincipal(t *testing.T) {
	t.Run("round trips checksummed address", func(t *testing.T) {
		in := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
		p, err := ParsePrincipal(in)
		require.NoError(t, err)
		require.Equal(t, in, p.String())
	})

	t.Run("accepts lowercase and normalizes checksum", func(t *testing.T) {
		p, err := ParsePrincipal("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
		require.NoError(t, err)
		require.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", p.String())
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, in := range []string{"", "0x", "0x1234", "not-an-address", "0x" + strings.Repeat("zz", 20)} {
			_, err := ParsePrincipal(in)
			require.Error(t, err, "input %q", in)
		}
	})

	t.Run("zero principal", func(t *testing.T) {
		require.True(t, ZeroPrincipal.IsZero())
		p, err := ParsePrincipal("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
		require.NoError(t, err)
		require.False(t, p.IsZero())
	})
}

func TestParseDataHash(t *testing.T) {
	t.Run("round trips", func(t *testing.T) {
		in := "0x" + strings.Repeat("ab", 32)
		h, err := ParseDataHash(in)
		require.NoError(t, err)
		require.Equal(t, in, h.String())
		require.Len(t, h.Bytes(), 32)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseDataHash("0xabcd")
		require.Error(t, err)
	})

	t.Run("rejects non-hex", func(t *testing.T) {
		_, err := ParseDataHash("0x" + strings.Repeat("zz", 32))
		require.Error(t, err)
	})

	t.Run("zero sentinel", func(t *testing.T) {
		require.True(t, ZeroDataHash.IsZero())
		h, err := ParseDataHash("0x" + strings.Repeat("ab", 32))
		require.NoError(t, err)
		require.False(t, h.IsZero())
	})
}

func TestIdentityID(t *testing.T) {
	require.True(t, IdentityID(0).IsNil())
	require.False(t, IdentityID(1).IsNil())
	require.Equal(t, "42", IdentityID(42).String())
}

func TestNonce(t *testing.T) {
	require.True(t, Nonce(0).IsZero())
	require.False(t, Nonce(1).IsZero())
}

func FuzzParsePrincipal(f *testing.F) {
	f.Add("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	f.Add("")
	f.Add("0x1234")
	f.Fuzz(func(t *testing.T, s string) {
		p, err := ParsePrincipal(s)
		if err != nil {
			require.True(t, p.IsZero())
			return
		}
		// A parsed principal must survive a round trip through its string form.
		again, err := ParsePrincipal(p.String())
		require.NoError(t, err)
		require.Equal(t, p, again)
	})
}
