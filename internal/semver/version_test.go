package semver

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	cases := map[string]string{
		"1.0":            "1.0",
		"1.0.0":          "1.0.0",
		"2!1.4":          "2!1.4",
		"1.0a1":          "1.0a1",
		"1.0.alpha.1":    "1.0a1",
		"1.0b2":          "1.0b2",
		"1.0rc3":         "1.0rc3",
		"1.0.post2":      "1.0.post2",
		"1.0-1":          "1.0.post1",
		"1.0.dev4":       "1.0.dev4",
		"1.0+ubuntu.1":   "1.0+ubuntu.1",
		"V1.2.3":         "1.2.3",
		"1.2.3.4.5":      "1.2.3.4.5",
		"1.0rc1.dev2":    "1.0rc1.dev2",
		"1.0.post1.dev2": "1.0.post1.dev2",
	}
	for in, want := range cases {
		v, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, v.String(), in)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "1.0.zzz", "1..0", "!1.0", "1.0+"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}

func TestTrailingZerosCompareEqual(t *testing.T) {
	assert.True(t, MustParse("1.0").Equal(MustParse("1.0.0")))
	assert.True(t, MustParse("1").Equal(MustParse("1.0.0.0")))
}

func TestTotalOrder(t *testing.T) {
	// Strictly ascending per the published ordering rules.
	ordered := []string{
		"0.9",
		"1.0.dev1",
		"1.0a1",
		"1.0a2",
		"1.0b1",
		"1.0rc1",
		"1.0",
		"1.0+local",
		"1.0.post1",
		"1.1.dev1",
		"1.1",
		"2!0.1",
	}
	for i := 0; i < len(ordered)-1; i++ {
		a, b := MustParse(ordered[i]), MustParse(ordered[i+1])
		assert.Equal(t, -1, a.Compare(b), "%s < %s", ordered[i], ordered[i+1])
		assert.Equal(t, 1, b.Compare(a), "%s > %s", ordered[i+1], ordered[i])
	}
}

func TestExactlyOneRelationHolds(t *testing.T) {
	versions := []string{"1.0", "1.0.0", "1.0a1", "1.0.post1", "1.0+x", "2.0", "1!0.5"}
	for _, a := range versions {
		for _, b := range versions {
			c := MustParse(a).Compare(MustParse(b))
			d := MustParse(b).Compare(MustParse(a))
			assert.Equal(t, -c, d, "%s vs %s antisymmetric", a, b)
		}
	}
}

func TestSortStability(t *testing.T) {
	input := []string{"1.1", "1.0rc1", "1.0", "1.0.dev1", "0.5"}
	vs := make([]*Version, len(input))
	for i, s := range input {
		vs[i] = MustParse(s)
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].Compare(vs[j]) < 0 })
	got := make([]string, len(vs))
	for i, v := range vs {
		got[i] = v.String()
	}
	assert.Equal(t, []string{"0.5", "1.0.dev1", "1.0rc1", "1.0", "1.1"}, got)
}

func TestLocalLabelOrdering(t *testing.T) {
	// Numeric local segments sort above alphanumeric ones.
	assert.Equal(t, -1, MustParse("1.0+abc").Compare(MustParse("1.0+2")))
	assert.Equal(t, -1, MustParse("1.0+1").Compare(MustParse("1.0+1.1")))
}
