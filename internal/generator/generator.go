// Package generator builds practice sessions from a drill catalog.
//
// A call to Engine.Generate plans the session blocks for the requested
// duration and season phase, fills each block with scored drills, repairs
// the global focus and coverage rules and reports which of them held. The
// engine keeps no state between calls; everything mutable lives in one
// generation value and the random source is seeded per call.
package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/claude/volleyplan/internal/catalog"
	"github.com/claude/volleyplan/internal/models"
)

// Engine generates sessions under a set of rulesets. It is safe for
// concurrent use.
type Engine struct {
	defaults Defaults
	rulesets map[string]Ruleset
	weights  *Weights
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaults replaces the request defaults.
func WithDefaults(d Defaults) Option {
	return func(e *Engine) { e.defaults = d }
}

// WithWeights overrides the factor weights of every ruleset, including
// rulesets registered by later options.
func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = &w }
}

// WithRuleset registers a ruleset, replacing a built-in one of the same name.
func WithRuleset(rs Ruleset) Option {
	return func(e *Engine) { e.rulesets[rs.Name] = rs }
}

// New returns an Engine with the built-in rulesets.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		defaults: DefaultDefaults(),
		rulesets: make(map[string]Ruleset, len(builtinRulesets)),
	}
	for _, name := range RulesetNames() {
		rs, _ := LookupRuleset(name)
		e.rulesets[name] = rs
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.weights != nil {
		for name, rs := range e.rulesets {
			rs.Weights = *e.weights
			e.rulesets[name] = rs
		}
	}
	for _, rs := range e.rulesets {
		if err := rs.Validate(); err != nil {
			return nil, err
		}
	}
	if _, ok := e.rulesets[e.defaults.Ruleset]; !ok {
		return nil, fmt.Errorf("default ruleset %q is not registered", e.defaults.Ruleset)
	}
	return e, nil
}

// Defaults returns the request defaults of the engine.
func (e *Engine) Defaults() Defaults {
	return e.defaults
}

// Rulesets lists the registered ruleset names in sorted order.
func (e *Engine) Rulesets() []string {
	names := make([]string, 0, len(e.rulesets))
	for n := range e.rulesets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ParseRequest decodes a JSON request with the engine defaults.
func (e *Engine) ParseRequest(data []byte) (models.GenerationRequest, error) {
	return ParseRequest(data, e.defaults)
}

// generation is the mutable state of one Generate call.
type generation struct {
	req    models.GenerationRequest
	rs     Ruleset
	drills []models.Drill
	filter *filter
	scorer *scorer
	state  *selectionState
	blocks []filledBlock
}

// Generate builds a session from an already normalized catalog. Invalid
// requests fail with an *InvalidRequestError; constraints that cannot be met
// are reported through the session checks instead.
func (e *Engine) Generate(drills []models.Drill, req models.GenerationRequest) (*models.GeneratedSession, error) {
	if req.Ruleset == "" {
		req.Ruleset = e.defaults.Ruleset
	}
	var p problems
	checkRequest(&p, req)
	rs, ok := e.rulesets[req.Ruleset]
	if !ok {
		p.add("ruleset", "unknown ruleset %q (have %s)", req.Ruleset, strings.Join(e.Rulesets(), ", "))
	}
	if err := p.err(); err != nil {
		return nil, err
	}

	g := &generation{
		req:    req,
		rs:     rs,
		drills: drills,
		filter: newFilter(req, rs),
		scorer: newScorer(req, rs),
		state:  newSelectionState(req),
	}
	sel := &selector{rs: rs, filter: g.filter, scorer: g.scorer, state: g.state, rng: newRand(req.RandomSeed)}
	for _, pb := range PlanBlocks(rs, req.PeriodPhase, req.DurationTotalMin) {
		g.blocks = append(g.blocks, sel.fill(drills, pb))
	}

	g.repairPrimaryFocus()
	g.repairMandatoryDomains()
	g.mergeEmptyBlocks()
	return g.session(), nil
}

// GenerateFromRecords normalizes raw catalog records and generates a session.
func (e *Engine) GenerateFromRecords(records []map[string]any, req models.GenerationRequest) (*models.GeneratedSession, error) {
	return e.Generate(catalog.NormalizeAll(records), req)
}

func (g *generation) session() *models.GeneratedSession {
	out := &models.GeneratedSession{
		Ruleset:         g.rs.Name,
		TotalMinutes:    g.req.DurationTotalMin,
		PeriodPhase:     g.req.PeriodPhase,
		IntensityTarget: g.req.IntensityTarget,
		RandomSeed:      g.req.RandomSeed,
		Focus:           models.Focus{Primary: g.req.MainFocus, Secondary: g.req.SecondaryFocus},
		Blocks:          make([]models.Block, 0, len(g.blocks)),
	}
	for _, fb := range g.blocks {
		b := models.Block{
			BlockType:     fb.plan.Spec.Name,
			Phase:         fb.plan.Spec.Phase,
			PlanKey:       fb.plan.Spec.PlanKey,
			TargetMinutes: fb.plan.Minutes,
			Relaxation:    fb.relaxation,
			Drills:        make([]models.SelectedDrill, 0, len(fb.picked)),
		}
		for i, c := range fb.picked {
			b.Drills = append(b.Drills, models.SelectedDrill{
				DrillID:        c.drill.ID,
				Name:           c.drill.Name,
				Minutes:        fb.minutes[i],
				Intensity:      c.drill.Intensity,
				Category:       c.drill.Category,
				Score:          c.score,
				ScoreBreakdown: c.breakdown,
				Why:            c.why,
				PrimaryMatch:   c.primary,
				SecondaryMatch: c.secondary,
				Skills:         c.skills,
			})
		}
		out.Blocks = append(out.Blocks, b)
	}
	out.Checks = g.checks(out)
	out.Load = loadSummary(g.blocks)
	return out
}

func (g *generation) checks(s *models.GeneratedSession) models.Checks {
	ch := models.Checks{
		Coverage: models.Coverage{
			SkillDomains: make(map[string]int),
			GamePhases:   make(map[string]int),
		},
	}
	minutes := 0
	var seq []models.Intensity
	total, primary := 0, 0
	for _, fb := range g.blocks {
		for i, c := range fb.picked {
			minutes += fb.minutes[i]
			seq = append(seq, c.drill.Intensity)
			total++
			if c.primary {
				primary++
			}
			for _, k := range drillDomainKeys(c.drill) {
				ch.Coverage.SkillDomains[k]++
			}
			for _, k := range drillPhaseKeys(c.drill) {
				ch.Coverage.GamePhases[k]++
			}
		}
	}

	ch.MinutesOK = total > 0 && minutes == s.TotalMinutes
	ch.IntensityProgressionOK = maxHighRun(seq) <= g.req.Constraints.MaxHighIntensityInRow
	if total > 0 {
		ch.PrimaryFocusRatio = round(float64(primary)/float64(total), 3)
	}
	ch.PrimaryFocusRatioOK = g.req.MainFocus == "" || (total > 0 && primary >= primaryTarget(g.rs.PrimaryFocusRatio, total))

	for _, dom := range g.scorer.mustDomains {
		if ch.Coverage.SkillDomains[dom] == 0 {
			ch.MissingDomains = append(ch.MissingDomains, dom)
		}
	}
	ch.MustIncludeOK = len(ch.MissingDomains) == 0
	return ch
}

func loadSummary(blocks []filledBlock) models.LoadSummary {
	var ls models.LoadSummary
	n, minutes, skills := 0, 0, 0
	rpeSum, rpeN := 0, 0
	for _, fb := range blocks {
		for i, c := range fb.picked {
			n++
			minutes += fb.minutes[i]
			skills += len(c.skills)
			if c.drill.RPE != nil {
				rpeSum += *c.drill.RPE
				rpeN++
			}
			if c.drill.Intensity == models.IntensityHigh {
				ls.HighIntensityCount++
			}
		}
	}
	if n == 0 {
		return ls
	}
	ls.AverageDuration = round(float64(minutes)/float64(n), 2)
	ls.AverageSkillCount = round(float64(skills)/float64(n), 2)
	if rpeN > 0 {
		avg := round(float64(rpeSum)/float64(rpeN), 2)
		ls.AverageRPE = &avg
	}
	return ls
}
