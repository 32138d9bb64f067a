// Package semver implements the version algebra of the package ecosystem:
// parsing, total ordering, and constraint matching for version identifiers
// with epochs, arbitrary-length release segments, alpha/beta/rc
// pre-releases, post and dev segments, local labels, and the
// compatible-release operator. A version string is scanned the same way a
// source file is lexed: character class by character class, with the
// position carried for error messages.
package semver

import (
	"fmt"
	"strconv"
	"strings"
)

// PreLabel orders pre-release kinds: a < b < rc, all below the release
// they qualify.
type PreLabel int

const (
	PreAlpha PreLabel = iota
	PreBeta
	PreRC
)

func (l PreLabel) String() string {
	switch l {
	case PreAlpha:
		return "a"
	case PreBeta:
		return "b"
	default:
		return "rc"
	}
}

// Pre is a pre-release qualifier such as a1, b2, rc3.
type Pre struct {
	Label PreLabel
	N     int
}

// Version is the ordered tuple (epoch, release[], pre?, post?, dev?,
// local?). Comparison is field-wise; pre-releases sort below their
// release, post-releases above, dev-releases below everything else at the
// same release number.
type Version struct {
	Epoch   int
	Release []int
	Pre     *Pre
	Post    *int
	Dev     *int
	Local   []string
	raw     string
}

// Parse accepts a version identifier. Leading "v" and surrounding
// whitespace are tolerated; anything else unrecognized is an error.
func Parse(s string) (*Version, error) {
	raw := s
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "v")
	if s == "" {
		return nil, fmt.Errorf("semver: empty version")
	}
	v := &Version{raw: raw}
	rest := s

	// Local label: everything after the first '+', split on '.' / '-' / '_'.
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		local := rest[i+1:]
		rest = rest[:i]
		if local == "" {
			return nil, fmt.Errorf("semver: %q: empty local label", raw)
		}
		v.Local = splitSeparators(local)
	}

	// Epoch: leading digits followed by '!'.
	if i := strings.IndexByte(rest, '!'); i >= 0 {
		n, err := strconv.Atoi(rest[:i])
		if err != nil {
			return nil, fmt.Errorf("semver: %q: bad epoch", raw)
		}
		v.Epoch = n
		rest = rest[i+1:]
	}

	// Release segments: dotted run of digits.
	sc := &scanner{src: rest}
	for {
		n, ok := sc.digits()
		if !ok {
			return nil, fmt.Errorf("semver: %q: expected release digit at offset %d", raw, sc.pos)
		}
		v.Release = append(v.Release, n)
		if !sc.eat('.') {
			break
		}
		// A dot may also introduce post/dev words ("1.0.post1"); peek.
		if !sc.atDigit() {
			sc.pos-- // give the dot back to the qualifier scanner
			break
		}
	}

	// Qualifiers in any of the spellings the ecosystem accepts.
	for sc.pos < len(sc.src) {
		sc.eatAny(".-_")
		word := sc.letters()
		switch word {
		case "a", "alpha":
			v.Pre = &Pre{Label: PreAlpha, N: sc.optionalDigits()}
		case "b", "beta":
			v.Pre = &Pre{Label: PreBeta, N: sc.optionalDigits()}
		case "rc", "c", "pre", "preview":
			v.Pre = &Pre{Label: PreRC, N: sc.optionalDigits()}
		case "post", "rev", "r":
			n := sc.optionalDigits()
			v.Post = &n
		case "dev":
			n := sc.optionalDigits()
			v.Dev = &n
		case "":
			if sc.atDigit() {
				// Bare "-N" is an implicit post release ("1.0-1").
				n, _ := sc.digits()
				v.Post = &n
				continue
			}
			return nil, fmt.Errorf("semver: %q: trailing garbage at offset %d", raw, sc.pos)
		default:
			return nil, fmt.Errorf("semver: %q: unknown qualifier %q", raw, word)
		}
	}
	return v, nil
}

// MustParse is Parse for compile-time-constant versions in tests and
// internal defaults.
func MustParse(s string) *Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) atDigit() bool {
	return s.pos < len(s.src) && s.src[s.pos] >= '0' && s.src[s.pos] <= '9'
}

func (s *scanner) eat(ch byte) bool {
	if s.pos < len(s.src) && s.src[s.pos] == ch {
		s.pos++
		return true
	}
	return false
}

func (s *scanner) eatAny(set string) {
	if s.pos < len(s.src) && strings.IndexByte(set, s.src[s.pos]) >= 0 {
		s.pos++
	}
}

func (s *scanner) digits() (int, bool) {
	start := s.pos
	for s.atDigit() {
		s.pos++
	}
	if s.pos == start {
		return 0, false
	}
	n, err := strconv.Atoi(s.src[start:s.pos])
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s *scanner) optionalDigits() int {
	s.eatAny(".-_")
	n, _ := s.digits()
	return n
}

func (s *scanner) letters() string {
	start := s.pos
	for s.pos < len(s.src) && s.src[s.pos] >= 'a' && s.src[s.pos] <= 'z' {
		s.pos++
	}
	return s.src[start:s.pos]
}

func splitSeparators(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})
}

// String renders the canonical form: epoch only when nonzero, release
// segments as parsed, normalized qualifier spellings.
func (v *Version) String() string {
	var b strings.Builder
	if v.Epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.Epoch)
	}
	for i, r := range v.Release {
		if i > 0 {
			b.WriteByte('.')
		}
		fmt.Fprintf(&b, "%d", r)
	}
	if v.Pre != nil {
		fmt.Fprintf(&b, "%s%d", v.Pre.Label, v.Pre.N)
	}
	if v.Post != nil {
		fmt.Fprintf(&b, ".post%d", *v.Post)
	}
	if v.Dev != nil {
		fmt.Fprintf(&b, ".dev%d", *v.Dev)
	}
	if len(v.Local) > 0 {
		b.WriteByte('+')
		b.WriteString(strings.Join(v.Local, "."))
	}
	return b.String()
}

// IsPrerelease reports whether v carries a pre or dev qualifier. The
// resolver excludes pre-releases from candidate sets unless a constraint
// explicitly names one.
func (v *Version) IsPrerelease() bool { return v.Pre != nil || v.Dev != nil }

// Compare returns -1, 0, or +1. Exactly one of <, =, > holds for any two
// parsed versions: the comparison key is total.
func (v *Version) Compare(o *Version) int {
	if v.Epoch != o.Epoch {
		return cmpInt(v.Epoch, o.Epoch)
	}
	if c := cmpRelease(v.Release, o.Release); c != 0 {
		return c
	}
	if c := cmpPre(v, o); c != 0 {
		return c
	}
	if c := cmpOptional(v.Post, o.Post, -1); c != 0 {
		return c
	}
	if c := cmpOptional(v.Dev, o.Dev, +1); c != 0 {
		return c
	}
	return cmpLocal(v.Local, o.Local)
}

// Equal ignores the raw spelling: 1.0 and 1.0.0 are equal.
func (v *Version) Equal(o *Version) bool { return v.Compare(o) == 0 }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// cmpRelease compares segment-wise with the shorter side padded by zeros,
// so 1.0 == 1.0.0 and 1.0 < 1.0.1.
func cmpRelease(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			return cmpInt(av, bv)
		}
	}
	return 0
}

// cmpPre orders pre-releases below their release: 1.0a1 < 1.0b1 < 1.0rc1
// < 1.0. A version with only a dev segment sorts below any pre-release of
// the same release number.
func cmpPre(v, o *Version) int {
	vk, ok := preKey(v), preKey(o)
	if vk[0] != ok[0] {
		return cmpInt(vk[0], ok[0])
	}
	return cmpInt(vk[1], ok[1])
}

func preKey(v *Version) [2]int {
	if v.Pre != nil {
		return [2]int{int(v.Pre.Label), v.Pre.N}
	}
	if v.Post == nil && v.Dev != nil {
		// Pure dev release sorts below every pre-release.
		return [2]int{-1, 0}
	}
	return [2]int{3, 0} // the release itself, above rc
}

// cmpOptional compares optional numeric segments. missing is the value an
// absent segment takes relative to a present one: -1 for post (no post <
// any post), +1 for dev (no dev > any dev).
func cmpOptional(a, b *int, missing int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return missing
	case b == nil:
		return -missing
	default:
		return cmpInt(*a, *b)
	}
}

// cmpLocal compares local labels segment-wise: numeric segments compare
// numerically and sort above alphanumeric ones; a version with a local
// label sorts above the same version without one.
func cmpLocal(a, b []string) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(a):
			return -1
		case i >= len(b):
			return 1
		}
		an, aNum := strconv.Atoi(a[i])
		bn, bNum := strconv.Atoi(b[i])
		switch {
		case aNum == nil && bNum == nil:
			if an != bn {
				return cmpInt(an, bn)
			}
		case aNum == nil:
			return 1 // numeric > alphanumeric
		case bNum == nil:
			return -1
		default:
			if a[i] != b[i] {
				if a[i] < b[i] {
					return -1
				}
				return 1
			}
		}
	}
	return 0
}
