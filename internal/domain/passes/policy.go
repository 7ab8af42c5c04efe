package passes

import "math/rand"

// Policy resolves per-site apply/skip decisions from the protection level.
// Each eligible site draws independently with probability Level/100; no
// state is shared between sites beyond the supplied randomness source, so a
// seeded source makes whole runs reproducible.
type Policy struct {
	Level int
	Rand  *rand.Rand
}

// NewPolicy pairs a protection level with an injected randomness source.
func NewPolicy(level int, rng *rand.Rand) *Policy {
	return &Policy{Level: level, Rand: rng}
}

// Decide samples one site. Level 0 never applies, level 100 always does.
func (p *Policy) Decide() bool {
	if p.Level <= 0 {
		return false
	}

	if p.Level >= 100 {
		return true
	}

	return p.Rand.Intn(100) < p.Level
}
