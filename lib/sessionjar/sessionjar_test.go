package sessionjar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	jar := New()
	jar.Merge([]string{
		"PHPSESSID=abc123; Path=/; HttpOnly",
		"cf_clearance=tok; Path=/; Secure",
	})
	require.Equal(t, "abc123", jar["PHPSESSID"])
	require.Equal(t, "tok", jar["cf_clearance"])

	jar.Merge([]string{"PHPSESSID=def456; Path=/"})
	require.Equal(t, "def456", jar["PHPSESSID"])
}

func TestMergeExpired(t *testing.T) {
	jar := Jar{"stale": "1", "gone": "2"}
	jar.Merge([]string{
		"stale=; Path=/",
		"gone=x; Max-Age=0; Path=/",
	})
	require.NotContains(t, jar, "stale")
	require.NotContains(t, jar, "gone")
}

func TestSerializeRoundTrip(t *testing.T) {
	jar := Jar{"a": "1", "b": "2"}
	s, err := jar.Serialize()
	require.NoError(t, err)

	restored, err := Parse(s)
	require.NoError(t, err)
	require.Equal(t, jar, restored)

	empty, err := Parse("")
	require.NoError(t, err)
	require.True(t, empty.Empty())
}

func TestHeader(t *testing.T) {
	require.Equal(t, "", New().Header())
	require.Equal(t, "a=1", Jar{"a": "1"}.Header())
}
