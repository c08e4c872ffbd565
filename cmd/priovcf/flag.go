package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"priovcf/internal/audit"
	"priovcf/internal/bcftools"
	"priovcf/internal/panels"
	"priovcf/internal/prioritise"
	"priovcf/internal/rules"
	"priovcf/internal/vcf"
)

type flagOptions struct {
	inputVCF    string
	panelString string
	rulesConfig string
	genepanels  string
	panelDump   string
	sortOutput  bool
	auditDB     string
	keepTemp    bool
}

func newFlagCmd() *cobra.Command {
	var opts flagOptions

	cmd := &cobra.Command{
		Use:   "flag",
		Short: "Add prioritisation flags to an annotated VCF",
		Example: `  priovcf flag -i sample.vcf.gz -p "R49.3_Beckwith-Wiedemann syndrome_G" \
      -c rules.json -g genepanels.tsv -d panelapp_dump.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlag(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.inputVCF, "input", "i", "", "Annotated VCF to flag (required)")
	cmd.Flags().StringVarP(&opts.panelString, "panel", "p", "", "Clinical indication string (required)")
	cmd.Flags().StringVarP(&opts.rulesConfig, "config", "c", "", "Filtering rules config, JSON or YAML (required)")
	cmd.Flags().StringVarP(&opts.genepanels, "genepanels", "g", "", "genepanels TSV with panel IDs (required)")
	cmd.Flags().StringVarP(&opts.panelDump, "panel-dump", "d", "", "PanelApp JSON dump (required)")
	cmd.Flags().BoolVar(&opts.sortOutput, "sort", false, "Re-sort the output by genomic position")
	cmd.Flags().StringVar(&opts.auditDB, "audit-db", "", "DuckDB file to record flag decisions in")
	cmd.Flags().BoolVar(&opts.keepTemp, "keep-temp", false, "Keep intermediate VCFs")

	for _, f := range []string{"input", "panel", "config", "genepanels", "panel-dump"} {
		cobra.CheckErr(cmd.MarkFlagRequired(f))
	}

	return cmd
}

func runFlag(ctx context.Context, opts *flagOptions) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := rules.Load(opts.rulesConfig)
	if err != nil {
		return err
	}

	geneMOI, err := resolvePanel(opts.panelString, opts.genepanels, opts.panelDump, logger)
	if err != nil {
		return err
	}
	logger.Info("resolved panel entities", zap.Int("entities", len(geneMOI)))

	runner := bcftools.NewRunner()
	runner.SetLogger(logger)

	stem := vcfStem(opts.inputVCF)
	splitVCF := stem + ".split.vcf"
	filterVCF := stem + ".filter.vcf"
	flaggedVCF := stem + ".flagged.vcf"
	finalVCF := stem + ".G2P.vcf"
	sortedVCF := stem + ".G2P.sorted.vcf"

	intermediates := []string{splitVCF, flaggedVCF, finalVCF}

	// Decompose per-transcript annotations and expand the CSQ fields
	// the engine reads.
	if err := runner.SplitVEP(ctx, opts.inputVCF, splitVCF, cfg.FieldsToSplit); err != nil {
		return err
	}

	toFlag := splitVCF
	filterApplied := cfg.FilterCommand != ""
	if filterApplied {
		if err := runner.Filter(ctx, cfg.FilterCommand, splitVCF, filterVCF); err != nil {
			return err
		}
		toFlag = filterVCF
		intermediates = append(intermediates, filterVCF)
	}

	parser, err := vcf.NewParser(toFlag)
	if err != nil {
		return err
	}
	defer parser.Close()

	sample, err := parser.SingleSample()
	if err != nil {
		return err
	}
	csqFields, err := parser.CSQFields()
	if err != nil {
		return err
	}
	records, err := parser.ReadAll()
	if err != nil {
		return err
	}
	logger.Info("read records for flagging",
		zap.String("sample", sample),
		zap.Int("records", len(records)))

	groups, err := prioritise.GroupByGene(records)
	if err != nil {
		return err
	}

	engine := prioritise.New(geneMOI, cfg.Rules)
	engine.SetPolicy(prioritise.PolicyFromConfig(cfg, filterApplied))
	engine.SetLogger(logger)
	if err := engine.Run(groups, 0); err != nil {
		return err
	}

	if err := vcf.WriteFile(flaggedVCF, parser.Header(), cfg.FlagName, prioritise.Records(groups)); err != nil {
		return err
	}
	logger.Info("wrote flagged VCF", zap.String("path", flaggedVCF))

	// Strip the expanded CSQ_ fields; they remain inside the original
	// CSQ string.
	strip := make([]string, len(csqFields))
	for i, f := range csqFields {
		strip[i] = "CSQ_" + f
	}
	if err := runner.RemoveFields(ctx, flaggedVCF, finalVCF, strip); err != nil {
		return err
	}

	deliverable := finalVCF
	if opts.sortOutput {
		if err := runner.Sort(ctx, finalVCF, sortedVCF); err != nil {
			return err
		}
		deliverable = sortedVCF
		intermediates = append(intermediates, sortedVCF)
	}

	outPath, err := runner.BGZip(ctx, deliverable)
	if err != nil {
		return err
	}

	if opts.auditDB != "" {
		if err := recordAudit(opts.auditDB, sample, opts.panelString, geneMOI, groups); err != nil {
			return err
		}
	}

	// Intermediate files are removed only on success; on any failure
	// above they are left in place for inspection.
	if !opts.keepTemp {
		for _, f := range intermediates {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				logger.Warn("could not remove intermediate file",
					zap.String("path", f), zap.Error(err))
			}
		}
	}

	logger.Info("flagging complete", zap.String("output", outPath))
	fmt.Println(outPath)
	return nil
}

// resolvePanel loads the reference inputs and resolves the indication
// string to a gene-MOI map.
func resolvePanel(panelString, genepanelsPath, dumpPath string, logger *zap.Logger) (panels.GeneMOI, error) {
	gp, err := panels.LoadGenepanels(genepanelsPath)
	if err != nil {
		return nil, err
	}
	dump, err := panels.LoadDump(dumpPath)
	if err != nil {
		return nil, err
	}

	resolver := panels.NewResolver()
	resolver.SetLogger(logger)
	if fallback := viper.GetString("moi_fallback"); fallback != "" {
		resolver.SetNormalizer(panels.Normalizer{Fallback: rules.MOI(fallback)})
	}

	return resolver.Resolve(panelString, gp, dump)
}

// recordAudit writes one decision row per record to the audit store
// and logs a per-flag summary.
func recordAudit(dbPath, sample, panel string, geneMOI panels.GeneMOI, groups []*prioritise.Group) error {
	store, err := audit.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var decisions []audit.Decision
	for _, g := range groups {
		moi, _ := geneMOI.Lookup(g.Gene)
		for _, rec := range g.Records {
			decisions = append(decisions, audit.Decision{
				Sample: sample,
				Panel:  panel,
				Chrom:  rec.Chrom,
				Pos:    rec.Pos,
				Ref:    rec.Ref,
				Alt:    rec.Alt,
				Gene:   g.Gene,
				MOI:    string(moi),
				Flag:   rec.Flag,
				Reason: rec.Reason,
			})
		}
	}
	if err := store.WriteDecisions(decisions); err != nil {
		return err
	}

	summary, err := store.FlagSummary()
	if err != nil {
		return err
	}
	for _, fc := range summary {
		fmt.Fprintf(os.Stderr, "%-16s %d\n", fc.Flag, fc.Count)
	}
	return nil
}

// vcfStem strips .vcf/.vcf.gz from the input filename, matching the
// intermediate naming convention.
func vcfStem(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	return strings.TrimSuffix(base, ".vcf")
}
