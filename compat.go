package imm

import "fmt"

// SamplerKind identifies a concrete sampler in the compatibility table.
type SamplerKind string

const (
	SamplerGibbs SamplerKind = "gibbs"
	SamplerRGMS  SamplerKind = "rgms"
	SamplerSlice SamplerKind = "slice"
)

// ProcessKind identifies a process model variant.
type ProcessKind string

const (
	ProcessDP  ProcessKind = "dp"
	ProcessMFM ProcessKind = "mfm"
)

// MixtureKind identifies a mixture model variant.
type MixtureKind string

const (
	MixtureCollapsedConjugateGaussian MixtureKind = "collapsed_conjugate_gaussian"
	MixtureConjugateGaussian          MixtureKind = "conjugate_gaussian"
	MixtureNonconjugateGaussian       MixtureKind = "nonconjugate_gaussian"
)

// Collapsed reports whether component parameters of this kind are integrated
// out. Collapsed kinds must implement CollapsedMixture, the others
// ParametricMixture.
func (k MixtureKind) Collapsed() bool {
	return k == MixtureCollapsedConjugateGaussian
}

type compatSet struct {
	processes []ProcessKind
	mixtures  []MixtureKind
}

// compatibility lists, per sampler, the model variants it is correct for.
var compatibility = map[SamplerKind]compatSet{
	SamplerGibbs: {
		processes: []ProcessKind{ProcessDP, ProcessMFM},
		mixtures: []MixtureKind{
			MixtureCollapsedConjugateGaussian,
			MixtureConjugateGaussian,
			MixtureNonconjugateGaussian,
		},
	},
	SamplerRGMS: {
		processes: []ProcessKind{ProcessDP, ProcessMFM},
		mixtures:  []MixtureKind{MixtureConjugateGaussian, MixtureNonconjugateGaussian},
	},
	SamplerSlice: {
		processes: []ProcessKind{ProcessDP},
		mixtures:  []MixtureKind{MixtureConjugateGaussian, MixtureNonconjugateGaussian},
	},
}

// Compatible reports whether the sampler declares both model kinds.
func Compatible(s SamplerKind, p ProcessKind, m MixtureKind) bool {
	set, ok := compatibility[s]
	if !ok {
		return false
	}
	return containsKind(set.processes, p) && containsKind(set.mixtures, m)
}

func containsKind[K comparable](set []K, k K) bool {
	for _, v := range set {
		if v == k {
			return true
		}
	}
	return false
}

func kindNames[K ~string](set []K) []string {
	out := make([]string, len(set))
	for i, k := range set {
		out[i] = string(k)
	}
	return out
}

// binding is a process/mixture pair validated against one sampler's
// compatibility set, with the mixture capability resolved.
type binding struct {
	sampler    SamplerKind
	process    ProcessModel
	mixture    MixtureModel
	collapsed  CollapsedMixture
	parametric ParametricMixture
}

// bind validates p and m against the compatibility table for s. Membership is
// decided by the models' declared kinds; the capability interface the kind
// requires is then resolved once so samplers never switch on types mid-run.
func bind(s SamplerKind, p ProcessModel, m MixtureModel) (*binding, error) {
	set, ok := compatibility[s]
	if !ok {
		return nil, fmt.Errorf("imm: unknown sampler %q", s)
	}
	if p == nil {
		return nil, &IncompatibleModelError{Sampler: s, Model: "<nil process>", Allowed: kindNames(set.processes)}
	}
	if m == nil {
		return nil, &IncompatibleModelError{Sampler: s, Model: "<nil mixture>", Allowed: kindNames(set.mixtures)}
	}
	if !containsKind(set.processes, p.Kind()) {
		return nil, &IncompatibleModelError{Sampler: s, Model: string(p.Kind()), Allowed: kindNames(set.processes)}
	}
	if !containsKind(set.mixtures, m.Kind()) {
		return nil, &IncompatibleModelError{Sampler: s, Model: string(m.Kind()), Allowed: kindNames(set.mixtures)}
	}

	b := &binding{sampler: s, process: p, mixture: m}
	if m.Kind().Collapsed() {
		cm, ok := m.(CollapsedMixture)
		if !ok {
			return nil, &IncompatibleModelError{Sampler: s, Model: fmt.Sprintf("%T", m), Allowed: kindNames(set.mixtures)}
		}
		b.collapsed = cm
	} else {
		pm, ok := m.(ParametricMixture)
		if !ok {
			return nil, &IncompatibleModelError{Sampler: s, Model: fmt.Sprintf("%T", m), Allowed: kindNames(set.mixtures)}
		}
		b.parametric = pm
	}
	return b, nil
}
