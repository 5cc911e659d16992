package generator

import (
	"math"

	"github.com/claude/volleyplan/internal/models"
)

// primaryTarget is how many of n drills must train the primary focus.
func primaryTarget(ratio float64, n int) int {
	return int(math.Ceil(ratio*float64(n) - 1e-9))
}

func (g *generation) selectedCount() (total, primary int) {
	for _, fb := range g.blocks {
		for _, c := range fb.picked {
			total++
			if c.primary {
				primary++
			}
		}
	}
	return total, primary
}

// best scores candidates for block bi and returns the top one. Candidates
// that keep the high-intensity cap when placed at slot pi (insert adds a new
// slot there) come first; with preferPrimary, primary-focus matches come
// first among those.
func (g *generation) best(drills []models.Drill, bi, pi int, insert, preferPrimary bool) candidate {
	scored := make([]candidate, 0, len(drills))
	for _, d := range drills {
		scored = append(scored, g.scorer.score(d, g.blocks[bi].plan, g.state))
	}
	sortCandidates(scored)
	fits := func(c candidate) bool { return g.runOK(bi, pi, insert, c.drill.Intensity) }
	primary := func(c candidate) bool { return !preferPrimary || c.primary }
	for _, ok := range []func(candidate) bool{
		func(c candidate) bool { return fits(c) && primary(c) },
		primary,
		fits,
	} {
		for _, c := range scored {
			if ok(c) {
				return c
			}
		}
	}
	return scored[0]
}

// runOK reports whether the session keeps the high-intensity cap with in
// placed at block bi, slot pi.
func (g *generation) runOK(bi, pi int, insert bool, in models.Intensity) bool {
	var seq []models.Intensity
	for i, fb := range g.blocks {
		for j, c := range fb.picked {
			if i == bi && j == pi {
				seq = append(seq, in)
				if !insert {
					continue
				}
			}
			seq = append(seq, c.drill.Intensity)
		}
		if i == bi && pi >= len(fb.picked) {
			seq = append(seq, in)
		}
	}
	return maxHighRun(seq) <= g.req.Constraints.MaxHighIntensityInRow
}

// maxHighRun is the longest run of high-intensity drills in seq.
func maxHighRun(seq []models.Intensity) int {
	longest, run := 0, 0
	for _, in := range seq {
		if in != models.IntensityHigh {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	return longest
}

func (g *generation) replace(bi, pi int, c candidate) {
	old := g.blocks[bi].picked[pi]
	delete(g.state.used, old.drill.ID)
	g.state.used[c.drill.ID] = true
	g.blocks[bi].picked[pi] = c
}

// repairPrimaryFocus swaps non-matching drills for unused drills that train
// the primary focus until the ratio holds or no substitute is left. Replaced
// drills keep their minutes.
func (g *generation) repairPrimaryFocus() {
	primary := g.req.MainFocus
	if primary == "" {
		return
	}
	total, hits := g.selectedCount()
	need := primaryTarget(g.rs.PrimaryFocusRatio, total)
	trainsPrimary := func(d models.Drill) bool { return containsString(DrillSkills(d), primary) }

	for bi := range g.blocks {
		for pi := range g.blocks[bi].picked {
			if hits >= need {
				return
			}
			if g.blocks[bi].picked[pi].primary {
				continue
			}
			pool := g.filter.repairPool(g.drills, g.blocks[bi].plan.Spec, g.state.used, trainsPrimary)
			if len(pool) == 0 {
				return
			}
			c := g.best(pool, bi, pi, false, false)
			c.why = append(c.why, "Swapped in to keep the primary focus ratio.")
			g.replace(bi, pi, c)
			hits++
		}
	}
}

// coveredDomains counts selected drills per skill-domain key.
func (g *generation) coveredDomains() map[string]int {
	out := make(map[string]int)
	for _, fb := range g.blocks {
		for _, c := range fb.picked {
			for _, k := range drillDomainKeys(c.drill) {
				out[k]++
			}
		}
	}
	return out
}

// repairMandatoryDomains brings in a drill for every required domain the
// session lacks. The drill goes to the block the ruleset associates with the
// domain, else the block of the last selection. It is appended while the
// block has room, otherwise it replaces an entry.
func (g *generation) repairMandatoryDomains() {
	for _, dom := range g.scorer.mustDomains {
		covered := g.coveredDomains()
		if covered[dom] > 0 {
			continue
		}
		bi := g.preferredBlock(dom)
		if bi < 0 {
			return
		}
		carries := func(d models.Drill) bool { return containsString(drillDomainKeys(d), dom) }
		fb := &g.blocks[bi]
		pool := g.filter.repairPool(g.drills, fb.plan.Spec, g.state.used, carries)
		if len(pool) == 0 {
			continue
		}
		if len(fb.picked) < g.rs.MaxDrills && len(fb.picked) < fb.plan.Minutes {
			c := g.best(pool, bi, len(fb.picked), true, true)
			c.why = append(c.why, "Added to cover the required domain "+dom+".")
			fb.picked = append(fb.picked, c)
			g.state.used[c.drill.ID] = true
			fb.minutes = allocateMinutes(fb.plan.Minutes, boundsOf(fb.picked, fb.plan.Spec))
			continue
		}
		pi := g.replaceIndex(bi, covered)
		c := g.best(pool, bi, pi, false, true)
		c.why = append(c.why, "Swapped in to cover the required domain "+dom+".")
		g.replace(bi, pi, c)
	}
}

// preferredBlock returns the block index for a domain repair, or -1 when the
// session has no blocks.
func (g *generation) preferredBlock(dom string) int {
	if name, ok := g.rs.DomainBlocks[dom]; ok {
		for i, fb := range g.blocks {
			if fb.plan.Spec.Name == name {
				return i
			}
		}
	}
	for i := len(g.blocks) - 1; i >= 0; i-- {
		if len(g.blocks[i].picked) > 0 {
			return i
		}
	}
	return len(g.blocks) - 1
}

// replaceIndex picks the entry to give up in a full block: the last one that
// misses the primary focus and is not the only carrier of a required domain,
// else the last one.
func (g *generation) replaceIndex(bi int, covered map[string]int) int {
	picked := g.blocks[bi].picked
	soleCarrier := func(c candidate) bool {
		for _, k := range drillDomainKeys(c.drill) {
			if covered[k] == 1 && containsString(g.scorer.mustDomains, k) {
				return true
			}
		}
		return false
	}
	for i := len(picked) - 1; i >= 0; i-- {
		if !picked[i].primary && !soleCarrier(picked[i]) {
			return i
		}
	}
	for i := len(picked) - 1; i >= 0; i-- {
		if !soleCarrier(picked[i]) {
			return i
		}
	}
	return len(picked) - 1
}

// mergeEmptyBlocks hands the minutes of blocks that found no drills to the
// nearest earlier block with drills, or the nearest later one, and drops
// them.
func (g *generation) mergeEmptyBlocks() {
	for i := range g.blocks {
		if len(g.blocks[i].picked) > 0 {
			continue
		}
		target := -1
		for j := i - 1; j >= 0; j-- {
			if len(g.blocks[j].picked) > 0 {
				target = j
				break
			}
		}
		if target < 0 {
			for j := i + 1; j < len(g.blocks); j++ {
				if len(g.blocks[j].picked) > 0 {
					target = j
					break
				}
			}
		}
		if target < 0 {
			return
		}
		recv := &g.blocks[target]
		recv.plan.Minutes += g.blocks[i].plan.Minutes
		g.blocks[i].plan.Minutes = 0
		recv.minutes = allocateMinutes(recv.plan.Minutes, boundsOf(recv.picked, recv.plan.Spec))
	}
	kept := g.blocks[:0]
	for _, fb := range g.blocks {
		if len(fb.picked) > 0 {
			kept = append(kept, fb)
		}
	}
	g.blocks = kept
}
