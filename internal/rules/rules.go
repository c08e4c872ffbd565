package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Rule holds the filtering thresholds for one mode of inheritance: the
// population allele-frequency ceiling a variant must stay strictly
// below, and the minimum heterozygous / homozygous counts a gene needs
// for its surviving variants to be prioritised.
type Rule struct {
	AF         float64 `mapstructure:"af"`
	HetsNeeded int     `mapstructure:"het"`
	HomsNeeded int     `mapstructure:"hom"`
}

// Set maps each simplified MOI code to its rule.
type Set map[MOI]Rule

// Lookup returns the rule for the given MOI. The boolean is false when
// no rule is configured, which the engine treats as "rule unavailable"
// rather than a default.
func (s Set) Lookup(moi MOI) (Rule, bool) {
	r, ok := s[moi]
	return r, ok
}

// MOIs returns the configured MOI codes in sorted order.
func (s Set) MOIs() []MOI {
	out := make([]MOI, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Config is the run configuration for the flagging pipeline.
type Config struct {
	// FlagName is the INFO field the terminal flag is written under.
	FlagName string
	// Rules are the per-MOI thresholds.
	Rules Set
	// FieldsToSplit lists the VEP CSQ sub-fields +split-vep expands
	// into CSQ_-prefixed INFO fields for rule evaluation.
	FieldsToSplit []string
	// FilterCommand is the full bcftools command applied between
	// splitting and flagging, e.g. a soft-filter marking records
	// EXCLUDE. Empty disables the pass.
	FilterCommand string

	// Optional extended gating policy. Zero values mean AF-only
	// gating, the minimal contract.
	CsqTypes                []string
	ClinVarRescue           bool
	SpliceAIRescueThreshold float64
}

type rawConfig struct {
	FlagName                string                     `mapstructure:"flag_name"`
	FilteringRules          map[string]map[string]any  `mapstructure:"filtering_rules"`
	VEPFieldsToSplit        []string                   `mapstructure:"vep_fields_to_split"`
	BCFtoolsFilterString    string                     `mapstructure:"bcftools_filter_string"`
	CsqTypes                []string                   `mapstructure:"csq_types"`
	ClinVarRescue           bool                       `mapstructure:"clinvar_rescue"`
	SpliceAIRescueThreshold float64                    `mapstructure:"spliceai_rescue_threshold"`
}

// Load reads a rule configuration from a JSON or YAML file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read rules config %s: %w", path, err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("parse rules config %s: %w", path, err)
	}

	cfg := &Config{
		FlagName:                raw.FlagName,
		Rules:                   make(Set, len(raw.FilteringRules)),
		FieldsToSplit:           raw.VEPFieldsToSplit,
		FilterCommand:           unescapeFilterCommand(raw.BCFtoolsFilterString),
		CsqTypes:                raw.CsqTypes,
		ClinVarRescue:           raw.ClinVarRescue,
		SpliceAIRescueThreshold: raw.SpliceAIRescueThreshold,
	}

	// Viper lowercases map keys; MOI codes are upper-case by
	// convention, so restore them.
	for moi, fields := range raw.FilteringRules {
		rule, err := decodeRule(moi, fields)
		if err != nil {
			return nil, err
		}
		cfg.Rules[MOI(strings.ToUpper(moi))] = rule
	}

	return cfg, cfg.validate()
}

func decodeRule(moi string, fields map[string]any) (Rule, error) {
	var rule Rule
	for key, val := range fields {
		switch strings.ToLower(key) {
		case "af":
			f, ok := toFloat(val)
			if !ok {
				return rule, fmt.Errorf("rule %s: af is not a number: %v", moi, val)
			}
			rule.AF = f
		case "het":
			f, ok := toFloat(val)
			if !ok {
				return rule, fmt.Errorf("rule %s: HET is not a number: %v", moi, val)
			}
			rule.HetsNeeded = int(f)
		case "hom":
			f, ok := toFloat(val)
			if !ok {
				return rule, fmt.Errorf("rule %s: HOM is not a number: %v", moi, val)
			}
			rule.HomsNeeded = int(f)
		}
	}
	return rule, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func (c *Config) validate() error {
	if c.FlagName == "" {
		return fmt.Errorf("rules config: flag_name is required")
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("rules config: filtering_rules is empty")
	}
	return nil
}

// unescapeFilterCommand removes the extra escaping the bcftools filter
// expression needs inside JSON (e.g. `\!~` for the negated regex
// operator).
func unescapeFilterCommand(cmd string) string {
	return strings.ReplaceAll(cmd, `\!~`, `!~`)
}
