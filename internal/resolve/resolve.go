// Package resolve is the backtracking dependency solver: given root
// requirements it walks the remote package index, applies the version
// algebra, and produces a flat locked set of (name, version, wheel URL,
// hash). The search is fail-first -- at each step the unassigned package
// with the fewest remaining candidates is attempted next, candidates
// newest first -- and a conflict unwinds to the most recent choice point
// with the requirement chain preserved for the error report.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ashlang/ashc/internal/errors"
	"github.com/ashlang/ashc/internal/pkgindex"
	"github.com/ashlang/ashc/internal/semver"
)

// Resolved is one locked package.
type Resolved struct {
	Name         string   `yaml:"name" json:"name"`
	Version      string   `yaml:"version" json:"version"`
	WheelURL     string   `yaml:"wheel_url" json:"wheel_url"`
	SHA256       string   `yaml:"sha256,omitempty" json:"sha256,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
}

// Index is the slice of pkgindex.Client the solver needs; tests substitute
// a frozen in-memory snapshot to get deterministic runs.
type Index interface {
	Project(ctx context.Context, name string) (*pkgindex.Project, error)
}

// Resolver drives the search.
type Resolver struct {
	index Index
	log   *zap.SugaredLogger
}

func New(index Index, log *zap.SugaredLogger) *Resolver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Resolver{index: index, log: log.With("component", "resolve")}
}

// demand is one requirement plus where it came from, so a conflict can
// surface the whole chain ("<root> -> b==1.0 -> a<1.1").
type demand struct {
	req    *semver.Requirement
	origin string
}

// candidate is one installable release of a package.
type candidate struct {
	version *semver.Version
	release pkgindex.Release
}

type state struct {
	resolver *Resolver
	ctx      context.Context
	demands  map[string][]demand // accumulated constraints per canonical name
	assigned map[string]*candidate
	projects map[string]*pkgindex.Project // index responses, fetched at most once
}

// Resolve solves rootReqs to a flat locked set. The result is sorted by
// name and deterministic for a frozen index snapshot: requirement order
// never changes the outcome because constraint sets are conjunctions and
// the candidate ordering is fixed (newest first).
func (r *Resolver) Resolve(ctx context.Context, rootReqs []string) ([]Resolved, error) {
	s := &state{
		resolver: r,
		ctx:      ctx,
		demands:  map[string][]demand{},
		assigned: map[string]*candidate{},
		projects: map[string]*pkgindex.Project{},
	}
	for _, raw := range rootReqs {
		req, err := semver.ParseRequirement(raw)
		if err != nil {
			return nil, err
		}
		s.demands[req.Name] = append(s.demands[req.Name], demand{req: req, origin: "<root>"})
	}
	if err := s.solve(); err != nil {
		return nil, err
	}
	out := make([]Resolved, 0, len(s.assigned))
	for name, c := range s.assigned {
		out = append(out, Resolved{
			Name:         name,
			Version:      c.version.String(),
			WheelURL:     c.release.WheelURL,
			SHA256:       c.release.SHA256,
			Dependencies: c.release.Dependencies,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// solve is the recursive search. Each call assigns exactly one package;
// dependency cycles terminate because a package already assigned
// consistently is never re-entered (loop detection rides the call stack).
func (s *state) solve() error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	name, candidates, err := s.pickNext()
	if err != nil {
		return err
	}
	if name == "" {
		return nil // every demand satisfied
	}
	if len(candidates) == 0 {
		return s.conflictError(name)
	}
	var lastConflict error
	for _, c := range candidates {
		s.resolver.log.Debugw("trying", "package", name, "version", c.version.String())
		s.assigned[name] = c
		added, conflicting := s.pushDependencies(name, c)
		if conflicting == "" {
			err := s.solve()
			if err == nil {
				return nil
			}
			if rep, isRep := errors.AsReport(err); !isRep || rep.Code != errors.RES001Conflict {
				// Only constraint conflicts trigger backtracking; an index
				// fetch failure or cancellation aborts the whole search.
				return err
			}
			lastConflict = err
		} else {
			// Capture the chain before popping: it names both the already
			// assigned version and the demand this candidate just added.
			lastConflict = s.conflictError(conflicting)
		}
		// Backtrack: drop this candidate's dependency demands and the
		// assignment itself, then try the next-newest candidate.
		s.popDependencies(added)
		delete(s.assigned, name)
	}
	if lastConflict != nil {
		return lastConflict
	}
	return s.conflictError(name)
}

// pickNext returns the unassigned demanded package with the fewest
// remaining candidates. Names tie-break lexically so the search order is
// stable across runs.
func (s *state) pickNext() (string, []*candidate, error) {
	var names []string
	for name := range s.demands {
		if _, done := s.assigned[name]; !done {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", nil, nil
	}
	sort.Strings(names)
	best := ""
	var bestCands []*candidate
	for _, name := range names {
		cands, err := s.candidatesFor(name)
		if err != nil {
			return "", nil, err
		}
		if best == "" || len(cands) < len(bestCands) {
			best, bestCands = name, cands
		}
	}
	return best, bestCands, nil
}

// candidatesFor filters name's releases by every active demand, newest
// first. Pre-releases only qualify when some demand explicitly names one;
// yanked releases never qualify.
func (s *state) candidatesFor(name string) ([]*candidate, error) {
	proj, err := s.projectFor(name)
	if err != nil {
		return nil, err
	}
	allowPre := false
	for _, d := range s.demands[name] {
		if d.req.AllowsPrerelease() {
			allowPre = true
		}
	}
	var cands []*candidate
	for _, rel := range proj.Releases {
		if rel.Yanked {
			continue
		}
		v, err := semver.Parse(rel.Version)
		if err != nil {
			continue // an unparseable published version is skipped, not fatal
		}
		if v.IsPrerelease() && !allowPre {
			continue
		}
		ok := true
		for _, d := range s.demands[name] {
			if !d.req.Matches(v) {
				ok = false
				break
			}
		}
		if ok {
			cands = append(cands, &candidate{version: v, release: rel})
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].version.Compare(cands[j].version) > 0 })
	return cands, nil
}

func (s *state) projectFor(name string) (*pkgindex.Project, error) {
	if p, ok := s.projects[name]; ok {
		return p, nil
	}
	p, err := s.index().Project(s.ctx, name)
	if err != nil {
		if rep, ok := errors.AsReport(err); ok {
			if status, _ := rep.Data["status"].(int); status == 404 {
				return nil, errors.Wrap(errors.New(errors.RES002NotFound,
					fmt.Sprintf("package %s not found in index", name), nil).
					WithData("package", name))
			}
		}
		return nil, err
	}
	s.projects[name] = p
	return p, nil
}

func (s *state) index() Index { return s.resolver.index }

// pushDependencies parses the chosen release's declared dependencies into
// new demands. If a new demand contradicts a package already assigned,
// conflicting names that package so the caller can report the chain and
// try its next candidate; the demands added so far are returned either way
// so the caller can pop them.
func (s *state) pushDependencies(name string, c *candidate) (added []string, conflicting string) {
	origin := fmt.Sprintf("%s==%s", name, c.version.String())
	for _, raw := range c.release.Dependencies {
		req, err := semver.ParseRequirement(raw)
		if err != nil {
			s.resolver.log.Warnw("skipping malformed dependency", "package", name, "dependency", raw)
			continue
		}
		s.demands[req.Name] = append(s.demands[req.Name], demand{req: req, origin: origin})
		added = append(added, req.Name)
		if prev, assigned := s.assigned[req.Name]; assigned && !req.Matches(prev.version) {
			conflicting = req.Name
		}
	}
	return added, conflicting
}

func (s *state) popDependencies(added []string) {
	for i := len(added) - 1; i >= 0; i-- {
		name := added[i]
		s.demands[name] = s.demands[name][:len(s.demands[name])-1]
		if len(s.demands[name]) == 0 {
			delete(s.demands, name)
		}
	}
}

// conflictError reports the full chain of demands on name, so the user
// sees every requirement that boxed the solver in, not just the last one.
func (s *state) conflictError(name string) error {
	var chain []string
	for _, d := range s.demands[name] {
		clause := name
		if len(d.req.Constraints) > 0 {
			var cs []string
			for _, c := range d.req.Constraints {
				cs = append(cs, c.String())
			}
			clause = name + strings.Join(cs, ",")
		}
		chain = append(chain, fmt.Sprintf("%s (via %s)", clause, d.origin))
	}
	rep := errors.New(errors.RES001Conflict,
		fmt.Sprintf("no version of %s satisfies: %s", name, strings.Join(chain, "; ")), nil).
		WithData("package", name).
		WithData("chain", chain)
	return errors.Wrap(rep)
}
