package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/services"
)

// scoreFile is the input of the score command. JSON is accepted as well.
//
//	criteria:
//	  - {id: innovation, name: 創新性, weight: 60}
//	subjects:
//	  - id: a
//	    name: 甲案
//	    scores: {innovation: 80}
type scoreFile struct {
	Criteria []struct {
		ID     string  `yaml:"id"`
		Name   string  `yaml:"name"`
		Weight float64 `yaml:"weight"`
	} `yaml:"criteria"`
	Subjects []struct {
		ID     string             `yaml:"id"`
		Name   string             `yaml:"name"`
		Scores map[string]float64 `yaml:"scores"`
	} `yaml:"subjects"`
}

var scoreJSON bool

var scoreCmd = &cobra.Command{
	Use:   "score [file]",
	Short: "Rank subjects from a YAML or JSON score sheet",
	Long: `Computes weighted totals (sum of score x weight / 100) and prints the
ranking. Missing scores count as 0. Reads stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := io.Reader(os.Stdin)
		if len(args) > 0 {
			f, err := os.Open(args[0])
			if err != nil {
				log.Fatalf("Failed to open score sheet: %v", err)
			}
			defer f.Close()
			in = f
		}

		report, err := rankSheet(in)
		if err != nil {
			log.Fatalf("Failed to rank: %v", err)
		}

		if scoreJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				log.Fatalf("Failed to write report: %v", err)
			}
			return
		}
		printRanking(cmd.OutOrStdout(), report)
	},
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Print the report as JSON")
}

type rankingReport struct {
	Results     []domain.RankedResult `json:"results"`
	TotalWeight float64               `json:"total_weight"`
	Warning     string                `json:"warning,omitempty"`
}

func rankSheet(r io.Reader) (*rankingReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var sheet scoreFile
	if err := yaml.Unmarshal(data, &sheet); err != nil {
		return nil, fmt.Errorf("parse score sheet: %w", err)
	}

	criteria := make([]domain.ScoringCriterion, 0, len(sheet.Criteria))
	for _, c := range sheet.Criteria {
		criteria = append(criteria, domain.ScoringCriterion{ID: c.ID, Name: c.Name, Weight: c.Weight})
	}
	if err := domain.ValidateCriteria(criteria); err != nil {
		return nil, err
	}

	subjects := make([]domain.Subject, 0, len(sheet.Subjects))
	scores := domain.ScoreMatrix{}
	for _, s := range sheet.Subjects {
		subjects = append(subjects, domain.Subject{ID: s.ID, Name: s.Name})
		for criterionID, score := range s.Scores {
			scores.Set(s.ID, criterionID, domain.CriterionScore{Score: score})
		}
	}

	total := domain.TotalWeight(criteria)
	return &rankingReport{
		Results:     services.Score(subjects, criteria, scores.Lookup),
		TotalWeight: total,
		Warning:     domain.WeightWarning(total),
	}, nil
}

func printRanking(w io.Writer, report *rankingReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSUBJECT\tTOTAL")
	for _, r := range report.Results {
		name := r.Subject.Name
		if name == "" {
			name = r.Subject.ID
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.Rank, name, r.TotalDisplay())
	}
	_ = tw.Flush()
	if report.Warning != "" {
		fmt.Fprintln(w, report.Warning)
	}
}
