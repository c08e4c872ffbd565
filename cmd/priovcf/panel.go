package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"priovcf/internal/panels"
	"priovcf/internal/rules"
)

func newPanelCmd() *cobra.Command {
	var (
		genepanelsPath string
		dumpPath       string
	)

	cmd := &cobra.Command{
		Use:   "panel <indication-string>",
		Short: "Resolve a clinical indication to its gene-MOI map",
		Long: `Resolve a clinical-indication string against the genepanels table
and PanelApp dump, and print the established-evidence genes and
regions with their simplified modes of inheritance.`,
		Example: `  priovcf panel "R49.3_Beckwith-Wiedemann syndrome_G" \
      -g genepanels.tsv -d panelapp_dump.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPanel(args[0], genepanelsPath, dumpPath)
		},
	}

	cmd.Flags().StringVarP(&genepanelsPath, "genepanels", "g", "", "genepanels TSV with panel IDs (required)")
	cmd.Flags().StringVarP(&dumpPath, "panel-dump", "d", "", "PanelApp JSON dump (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("genepanels"))
	cobra.CheckErr(cmd.MarkFlagRequired("panel-dump"))

	return cmd
}

func runPanel(panelString, genepanelsPath, dumpPath string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	gp, err := panels.LoadGenepanels(genepanelsPath)
	if err != nil {
		return err
	}
	dump, err := panels.LoadDump(dumpPath)
	if err != nil {
		return err
	}

	resolver := panels.NewResolver()
	resolver.SetLogger(logger)
	if fallback := viper.GetString("moi_fallback"); fallback != "" {
		resolver.SetNormalizer(panels.Normalizer{Fallback: rules.MOI(fallback)})
	}

	geneMOI, err := resolver.Resolve(panelString, gp, dump)
	if err != nil {
		return err
	}

	genes := make([]string, 0, len(geneMOI))
	for gene := range geneMOI {
		genes = append(genes, gene)
	}
	sort.Strings(genes)

	for _, gene := range genes {
		fmt.Printf("%s\t%s\n", gene, geneMOI[gene])
	}
	return nil
}
