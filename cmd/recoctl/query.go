package main

import (
	"github.com/spf13/cobra"

	"github.com/drug-reco-engine/internal/domain"
)

func statsCmd(opts *rootOptions) *cobra.Command {
	var diagnosis string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Cure rate and average recovery per diagnosis and drug",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.Service.DiagnosisDrugStats(cmd.Context(), diagnosis)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().StringVar(&diagnosis, "diagnosis", "", "only rows for this diagnosis")
	return cmd
}

func dosesCmd(opts *rootOptions) *cobra.Command {
	var drug string
	cmd := &cobra.Command{
		Use:   "doses",
		Short: "Historical dose ranges per drug and unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			doses, err := a.Service.DoseReference(cmd.Context())
			if err != nil {
				return err
			}
			if drug != "" {
				filtered := make([]domain.DoseStat, 0, len(doses))
				for _, d := range doses {
					if d.DrugName == drug {
						filtered = append(filtered, d)
					}
				}
				doses = filtered
			}
			return printJSON(cmd.OutOrStdout(), doses)
		},
	}
	cmd.Flags().StringVar(&drug, "drug", "", "only rows for this drug")
	return cmd
}

func complaintsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complaints",
		Short: "Cure rates per diagnosis and chief complaint",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.Service.ComplaintCureStats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func effectivenessCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "effectiveness",
		Short: "Drugs ranked by combined cure rate, speed and reliability",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := a.Service.DrugEffectiveness(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
}

func outliersCmd(opts *rootOptions) *cobra.Command {
	var z float64
	cmd := &cobra.Command{
		Use:   "outliers",
		Short: "Doses per kilogram far from the drug's mean",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := a.Service.DoseOutliers(cmd.Context(), z)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().Float64Var(&z, "z", 0, "z-score threshold; the configured default when 0")
	return cmd
}

func qualityCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quality",
		Short: "Missing-value rates of the merged records",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Service.DataQuality(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func historyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <patient-id>",
		Short: "Drugs that cured or failed a patient, and their recurrence timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			history, err := a.Service.PatientHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), history)
		},
	}
}

func recommendCmd(opts *rootOptions) *cobra.Command {
	var req domain.RecommendationRequest
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank drugs for a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.Service.Recommend(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringVar(&req.PatientID, "patient", "", "patient identifier")
	cmd.Flags().StringVar(&req.Diagnosis, "diagnosis", "", "working diagnosis")
	cmd.Flags().Float64Var(&req.AgeMonths, "age", 0, "age in months")
	cmd.Flags().Float64Var(&req.WeightKG, "weight", 0, "weight in kilograms")
	cmd.Flags().StringVar(&req.ChiefComplaint, "complaint", "", "chief complaint")
	cmd.Flags().StringVar(&req.Gender, "gender", "", "gender")
	cmd.Flags().StringVar(&req.Allergies, "allergies", "", "free-text allergies")
	cmd.Flags().IntVar(&req.K, "k", 0, "number of drugs to return")
	cmd.Flags().IntVar(&req.FailThreshold, "fail-threshold", 0, "prior failures that exclude a drug")
	cmd.MarkFlagRequired("patient")
	cmd.MarkFlagRequired("diagnosis")
	return cmd
}

func snapshotCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Build a snapshot and print its counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.Service.RebuildSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), info)
		},
	}
}
