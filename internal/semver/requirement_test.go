package semver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustReq(t *testing.T, s string) *Requirement {
	t.Helper()
	r, err := ParseRequirement(s)
	require.NoError(t, err)
	return r
}

func TestParseRequirementForms(t *testing.T) {
	r := mustReq(t, "requests")
	assert.Equal(t, "requests", r.Name)
	assert.Empty(t, r.Constraints)

	r = mustReq(t, "My_Package[socks,ssl]>=1.0,<2.0 ; os_name == \"posix\"")
	assert.Equal(t, "my-package", r.Name)
	assert.Equal(t, []string{"socks", "ssl"}, r.Extras)
	require.Len(t, r.Constraints, 2)
	assert.Equal(t, OpGe, r.Constraints[0].Op)
	assert.Equal(t, OpLt, r.Constraints[1].Op)
	assert.Equal(t, `os_name == "posix"`, r.Marker)

	r = mustReq(t, "pkg (==1.4.2)")
	require.Len(t, r.Constraints, 1)
	assert.Equal(t, OpEq, r.Constraints[0].Op)
}

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "my-package", CanonicalName("My.Package"))
	assert.Equal(t, "my-package", CanonicalName("MY__PACKAGE"))
	assert.Equal(t, "a-b-c", CanonicalName("a-b_c"))
}

func TestConstraintMatching(t *testing.T) {
	cases := []struct {
		req, version string
		want         bool
	}{
		{"p==1.0", "1.0.0", true},
		{"p==1.0", "1.0+local", false}, // == never admits a local unless spelled
		{"p===1.0", "1.0", true},
		{"p===1.0", "1.0.0", false}, // arbitrary equality is textual
		{"p==1.2.*", "1.2.9", true},
		{"p==1.2.*", "1.3.0", false},
		{"p!=1.5", "1.5", false},
		{"p!=1.5", "1.6", true},
		{"p>=1.0", "1.0+build", true}, // ordered ops ignore the local label
		{"p<2.0", "2.0.dev1", true},
		{"p>1.0a1", "1.0", true},
	}
	for _, c := range cases {
		r := mustReq(t, c.req)
		assert.Equal(t, c.want, r.Matches(MustParse(c.version)), "%s vs %s", c.req, c.version)
	}
}

func TestCompatibleRelease(t *testing.T) {
	r := mustReq(t, "p~=1.2")
	assert.True(t, r.Matches(MustParse("1.2")))
	assert.True(t, r.Matches(MustParse("1.9")))
	assert.False(t, r.Matches(MustParse("2.0")))
	assert.False(t, r.Matches(MustParse("1.1")))

	r = mustReq(t, "p~=1.2.3")
	assert.True(t, r.Matches(MustParse("1.2.3")))
	assert.True(t, r.Matches(MustParse("1.2.99")))
	assert.False(t, r.Matches(MustParse("1.3.0")))
}

func TestAllowsPrerelease(t *testing.T) {
	assert.False(t, mustReq(t, "p>=1.0").AllowsPrerelease())
	assert.True(t, mustReq(t, "p==2.0rc1").AllowsPrerelease())
}
