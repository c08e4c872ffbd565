package prioritise

import (
	"go.uber.org/zap"

	"priovcf/internal/rules"
	"priovcf/internal/vcf"
)

// MOISource looks up a gene's simplified mode of inheritance.
// Satisfied by panels.GeneMOI.
type MOISource interface {
	Lookup(gene string) (rules.MOI, bool)
}

// Engine assigns a terminal flag to every record. Evaluation is a pure
// function of the group contents, the MOI map, the rule set and the
// policy, so running it twice over the same groups yields identical
// flags.
type Engine struct {
	moi    MOISource
	rules  rules.Set
	policy Policy
	logger *zap.Logger
}

// New creates an engine over the resolved gene-MOI map and rule set.
func New(moi MOISource, set rules.Set) *Engine {
	return &Engine{
		moi:    moi,
		rules:  set,
		logger: zap.NewNop(),
	}
}

// SetPolicy configures the gating policy.
func (e *Engine) SetPolicy(p Policy) {
	e.policy = p
}

// SetLogger sets the logger for per-gene evaluation warnings.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// decision is the provisional per-record outcome of rule evaluation.
// Final flags are assigned in one place after the group's zygosity
// counts are known, so in-progress state never leaks into the records.
type decision struct {
	flag     Flag
	reason   string
	survived bool // passed AF/consequence gating, awaits zygosity check
}

// Run evaluates every group and assigns each record its flag and
// reason exactly once. sampleIndex selects the tested sample's
// genotype column (0 for single-sample VCFs).
func (e *Engine) Run(groups []*Group, sampleIndex int) error {
	for _, g := range groups {
		if err := e.evaluateGroup(g, sampleIndex); err != nil {
			return err
		}
	}
	return nil
}

// evaluateGroup runs the RuleEvaluation, GenotypeAggregation and
// FlagAssignment stages for one gene group.
func (e *Engine) evaluateGroup(g *Group, sampleIndex int) error {
	rule, ok := e.lookupRule(g.Gene)
	decisions := make([]decision, len(g.Records))

	if !ok {
		// Gene absent from panel, MOI unknown, or MOI has no rule:
		// short-circuit the whole group, skipping zygosity counting.
		for i := range decisions {
			decisions[i] = decision{flag: FlagNotAssessed, reason: ReasonGeneInfoUnavailable}
		}
		e.assign(g, decisions)
		return nil
	}

	for i, rec := range g.Records {
		decisions[i] = e.evaluateRecord(rec, rule)
	}

	hetCount, homCount := e.countZygosity(g, decisions, sampleIndex)

	// A group with no survivors has empty counts and is never
	// prioritised, even when a zero threshold would be trivially
	// satisfiable.
	survivors := 0
	for _, d := range decisions {
		if d.survived {
			survivors++
		}
	}
	prioritised := survivors > 0 &&
		(hetCount >= rule.HetsNeeded || homCount >= rule.HomsNeeded)

	for i := range decisions {
		if !decisions[i].survived {
			continue
		}
		if prioritised {
			decisions[i] = decision{flag: FlagPrioritised}
		} else {
			decisions[i] = decision{flag: FlagNotPrioritised, reason: ReasonZygosityCount}
		}
	}

	e.assign(g, decisions)
	return nil
}

// lookupRule resolves the three joint conditions that gate a group:
// gene present on the panel, gene has a known MOI, and that MOI has a
// configured rule.
func (e *Engine) lookupRule(gene string) (rules.Rule, bool) {
	moi, present := e.moi.Lookup(gene)
	if !present || moi == "" {
		return rules.Rule{}, false
	}
	return e.rules.Lookup(moi)
}

// evaluateRecord applies the FILTER, AF and consequence gates to one
// record and returns its provisional outcome.
func (e *Engine) evaluateRecord(rec *vcf.Record, rule rules.Rule) decision {
	if e.policy.RequirePass && !rec.Passed() {
		return decision{flag: FlagNotPrioritised, reason: ReasonFiltered}
	}

	if !e.policy.belowAFCeiling(rec, rule.AF) {
		if e.policy.rescued(rec) {
			return decision{survived: true}
		}
		return decision{flag: FlagNotPrioritised, reason: ReasonAFExceedsThreshold}
	}

	if !e.policy.relevantConsequence(rec) {
		if e.policy.rescued(rec) {
			return decision{survived: true}
		}
		return decision{flag: FlagNotPrioritised, reason: ReasonConsequence}
	}

	return decision{survived: true}
}

// countZygosity tallies heterozygous and homozygous calls among the
// group's surviving records. Genotypes that are neither clearly het
// nor hom for a single alt allele contribute to neither count.
func (e *Engine) countZygosity(g *Group, decisions []decision, sampleIndex int) (hets, homs int) {
	for i, rec := range g.Records {
		if !decisions[i].survived {
			continue
		}
		gt, err := rec.Genotype(sampleIndex)
		if err != nil {
			e.logger.Warn("could not read genotype, excluding from zygosity counts",
				zap.String("variant", rec.Key()),
				zap.Error(err))
			continue
		}
		switch gt.Zygosity() {
		case vcf.ZygosityHet:
			hets++
		case vcf.ZygosityHomAlt:
			homs++
		}
	}
	return hets, homs
}

// assign writes each record's terminal flag and reason, once.
func (e *Engine) assign(g *Group, decisions []decision) {
	for i, rec := range g.Records {
		rec.Flag = string(decisions[i].flag)
		rec.Reason = decisions[i].reason
	}
}
