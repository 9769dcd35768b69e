package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

const (
	outputAuto  = "auto"
	outputTable = "table"
	outputJSON  = "json"
)

type summaryOutput struct {
	Ingest  ingestStats             `json:"ingest"`
	Summary *models.SummaryResponse `json:"summary"`
}

func newSummaryCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags
	var output string

	cmd := &cobra.Command{
		Use:   "summary [submissions.ndjson ...]",
		Short: "Ingest result submissions and print batch statistics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			switch output {
			case outputAuto, outputTable, outputJSON:
			default:
				return fmt.Errorf("invalid output %q (expected auto, table or json)", output)
			}

			c, stats, err := ingestFiles(cmd.Context(), cfg, flags, args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer c.Close()

			summary := c.Service().Summary()
			if output == outputJSON || (output == outputAuto && !isTerminal(cmd.OutOrStdout())) {
				return writeJSON(cmd, summaryOutput{Ingest: stats, Summary: summary})
			}
			printSummary(cmd.OutOrStdout(), stats, summary)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&output, "output", outputAuto, "Output format: auto (tables on a terminal, JSON otherwise), table or json")
	return cmd
}

func printSummary(out io.Writer, stats ingestStats, s *models.SummaryResponse) {
	fmt.Fprintln(out, renderTable("Batch", []string{"Metric", "Value"}, [][]string{
		{"Run ID", s.RunID},
		{"Total Images", strconv.Itoa(s.Statistics.TotalImages)},
		{"Analysis Mode", string(s.Schema.Mode)},
		{"Submissions", strconv.Itoa(stats.Submitted)},
		{"Rejected", strconv.Itoa(stats.Rejected)},
		{"Settled", strconv.Itoa(stats.Settled)},
		{"Generated At", s.GeneratedAt},
	}, []columnAlignment{alignLeft, alignRight}))

	for _, eb := range s.Statistics.Emotion {
		rows := make([][]string, 0, len(models.CanonicalEmotions))
		for _, e := range models.CanonicalEmotions {
			stat := eb.Emotions[e]
			rows = append(rows, []string{
				string(e),
				formatFloat(stat.Mean),
				formatFloat(stat.StdDev),
				strconv.Itoa(eb.DominantCounts[e]),
			})
		}
		title := fmt.Sprintf("%s (%d analyzed, %d errors) valence %s %s",
			eb.Backend.DisplayName(), eb.ImagesAnalyzed, eb.Errors, formatFloat(eb.Valence.Score), eb.Valence.Classification)
		fmt.Fprintln(out, renderTable(title, []string{"Emotion", "Mean", "Std Dev", "Dominant"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight}))
	}

	if m := s.Statistics.Muscle; m != nil {
		title := fmt.Sprintf("%s (%d analyzed, %d errors) average AUs %s",
			m.Backend.DisplayName(), m.ImagesAnalyzed, m.Errors, formatFloat(m.AverageAUCount))
		fmt.Fprintln(out, renderTable(title, []string{"Action Unit", "Images"}, frequencyRows(m.AUFrequency),
			[]columnAlignment{alignLeft, alignRight}))
	}

	if d := s.Statistics.Delta; d != nil {
		title := fmt.Sprintf("%s (%d analyzed, %d with baseline) average movement %s, average AUs %s",
			d.Backend.DisplayName(), d.ImagesAnalyzed, d.BaselineImages, formatFloat(d.AverageTotalMovement), formatFloat(d.AverageAUCount))
		fmt.Fprintln(out, renderTable(title, []string{"Action Unit", "Images"}, frequencyRows(d.AUFrequency),
			[]columnAlignment{alignLeft, alignRight}))
		fmt.Fprintln(out, renderTable("", []string{"Movement Pattern", "Images"}, frequencyRows(d.PatternFrequency),
			[]columnAlignment{alignLeft, alignRight}))
	}

	if s.Schema.HasComparison() {
		cmp := s.Comparison
		rows := make([][]string, 0, len(cmp.Pairs))
		for _, p := range cmp.Pairs {
			rows = append(rows, []string{
				p.BackendA.DisplayName() + " / " + p.BackendB.DisplayName(),
				fmt.Sprintf("%d/%d", p.Agreements, p.Comparisons),
				formatPercent(p.Rate),
				formatOptional(p.AverageCorrelation),
				formatOptional(p.SequenceDivergence),
			})
		}
		title := fmt.Sprintf("Comparison: %s agreement over %d images, %d unanimous",
			formatPercent(cmp.AgreementRate), cmp.ImagesCompared, cmp.UnanimousImages)
		fmt.Fprintln(out, renderTable(title, []string{"Pair", "Agreements", "Rate", "Avg Correlation", "Divergence"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight}))
	}
}

// frequencyRows orders counts descending, ties by key
func frequencyRows(freq map[string]int) [][]string {
	keys := sortedKeys(freq)
	sort.SliceStable(keys, func(i, j int) bool { return freq[keys[i]] > freq[keys[j]] })
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, strconv.Itoa(freq[k])})
	}
	return rows
}
