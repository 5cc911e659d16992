package generator

import (
	"math/rand/v2"

	"github.com/claude/volleyplan/internal/models"
)

// selector fills blocks one after another.
type selector struct {
	rs     Ruleset
	filter *filter
	scorer *scorer
	state  *selectionState
	rng    *rand.Rand
}

// newRand returns the call-scoped random source, or nil for a deterministic
// highest-score-wins draw.
func newRand(seed *int64) *rand.Rand {
	if seed == nil {
		return nil
	}
	s := uint64(*seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

// filledBlock is a block after selection, before it becomes output.
type filledBlock struct {
	plan       plannedBlock
	relaxation string
	picked     []candidate
	minutes    []int
}

func (s *selector) fill(drills []models.Drill, pb plannedBlock) filledBlock {
	pool, relaxation := s.filter.pool(drills, pb.Spec, s.state.used)
	scored := make([]candidate, 0, len(pool))
	for _, d := range pool {
		scored = append(scored, s.scorer.score(d, pb, s.state))
	}
	sortCandidates(scored)

	picked := s.pick(scored, s.rs.drillCount(pb.Minutes))
	fb := filledBlock{plan: pb, relaxation: relaxation, picked: picked}
	fb.minutes = allocateMinutes(pb.Minutes, boundsOf(picked, pb.Spec))
	s.state.commit(picked, s.rs.SkillBaseSize)
	return fb
}

// pick draws up to target candidates from the top of the sorted list,
// skipping near-duplicate names and drills that would extend a high-intensity
// run past the cap. If fewer than two survive, the best remaining
// candidates fill in regardless of those checks.
func (s *selector) pick(scored []candidate, target int) []candidate {
	target = min(target, len(scored))
	remaining := append([]candidate(nil), scored...)
	var picked []candidate
	var pending []models.Intensity

	for len(picked) < target && len(remaining) > 0 {
		k := min(len(remaining), target-len(picked)+s.rs.SelectionMargin)
		idx := s.draw(remaining[:k])
		c := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)

		if s.tooSimilar(c, picked) || s.state.breaksHighRun(pending, c.drill.Intensity) {
			continue
		}
		picked = append(picked, c)
		pending = append(pending, c.drill.Intensity)
	}

	floor := min(2, target)
	if len(picked) < floor {
		for _, c := range scored {
			if len(picked) >= floor {
				break
			}
			if !containsCandidate(picked, c.drill.ID) {
				picked = append(picked, c)
			}
		}
	}
	return picked
}

// draw returns an index into top: the first one without a random source,
// otherwise a score-weighted draw.
func (s *selector) draw(top []candidate) int {
	if s.rng == nil || len(top) == 1 {
		return 0
	}
	total := 0.0
	for _, c := range top {
		total += weight(c)
	}
	r := s.rng.Float64() * total
	for i, c := range top {
		r -= weight(c)
		if r < 0 {
			return i
		}
	}
	return len(top) - 1
}

// weight keeps zero-score candidates drawable.
func weight(c candidate) float64 {
	return max(c.score, 0.01)
}

func (s *selector) tooSimilar(c candidate, picked []candidate) bool {
	tokens := nameTokens(c.drill.Name)
	for _, p := range picked {
		if jaccard(tokens, nameTokens(p.drill.Name)) >= s.rs.NameSimilarity {
			return true
		}
	}
	return false
}

func containsCandidate(cs []candidate, id int) bool {
	for _, c := range cs {
		if c.drill.ID == id {
			return true
		}
	}
	return false
}

func boundsOf(cs []candidate, b BlockSpec) [][2]int {
	out := make([][2]int, len(cs))
	for i, c := range cs {
		lo, hi := durationBounds(c.drill, b)
		out[i] = [2]int{lo, hi}
	}
	return out
}

// allocateMinutes distributes exactly target minutes. Each drill starts at
// its natural minimum and drills grow round-robin up to their natural
// maximum. If the minimums alone exceed the target, minutes are split evenly
// instead. If the maximums cannot absorb the target, the remainder keeps
// going round-robin past them. Every drill gets at least one minute when
// target allows.
func allocateMinutes(target int, bounds [][2]int) []int {
	n := len(bounds)
	if n == 0 || target <= 0 {
		return make([]int, n)
	}
	minutes := make([]int, n)
	sum := 0
	for i, b := range bounds {
		minutes[i] = b[0]
		sum += b[0]
	}
	if sum > target {
		for i := range minutes {
			minutes[i] = target / n
			if i < target%n {
				minutes[i]++
			}
		}
		return minutes
	}

	for sum < target {
		grew := false
		for i := 0; i < n && sum < target; i++ {
			if minutes[i] < bounds[i][1] {
				minutes[i]++
				sum++
				grew = true
			}
		}
		if !grew {
			break
		}
	}
	for i := 0; sum < target; i = (i + 1) % n {
		minutes[i]++
		sum++
	}
	return minutes
}
