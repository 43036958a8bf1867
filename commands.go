/*
 *  commands.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/20/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// banner is printed before every command
func banner(cmd *cobra.Command) {
	log.Noticef("mlrho %s: %s", Version, cmd.Short)
}

// addAnalysisFlags binds the config knobs shared by estimate and profiles
func addAnalysisFlags(cmd *cobra.Command, cfg *Config) {
	f := cmd.Flags()
	f.IntVarP(&cfg.MinCov, "mincov", "c", cfg.MinCov, "Minimum coverage of a site")
	f.IntVarP(&cfg.MinDist, "mindist", "m", cfg.MinDist, "Minimum distance of the linkage analysis")
	f.IntVarP(&cfg.MaxDist, "maxdist", "M", cfg.MaxDist, "Maximum distance of the linkage analysis, 0 to skip it, -1 for all")
	f.IntVarP(&cfg.Step, "step", "S", cfg.Step, "Step between two distances")
	f.BoolVar(&cfg.Lump, "lump", cfg.Lump, "Pool the distances of each step into one estimate")
	f.IntVarP(&cfg.Stride, "stride", "T", cfg.Stride, "Only pair left sites at multiples of stride, for simulated site pairs")
	f.BoolVar(&cfg.Lenient, "lenient", cfg.Lenient, "Warn instead of failing on positions out of order")
	f.IntVar(&cfg.MinMapQ, "minmapq", cfg.MinMapQ, "Minimum mapping quality of BAM alignments")
	f.IntVar(&cfg.MinBaseQ, "minbaseq", cfg.MinBaseQ, "Minimum base quality of BAM bases")
	f.BoolVar(&cfg.StartOver, "startover", cfg.StartOver, "Rebuild index and site likelihoods")
}

func newEstimateCmd() *cobra.Command {
	cfg := DefaultConfig()
	cmd := &cobra.Command{
		Use:   "estimate profiles.txt|alignments.bam",
		Short: "Estimate theta, epsilon and delta or rho",
		Long: `Fit heterozygosity (theta) and error rate (epsilon) to the single sites, then
the linkage parameter at each distance: rho by default, delta with --delta.
Fast mode keeps theta and epsilon fixed for the linkage analysis, --full
refits them at every distance.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			banner(cmd)
			return NewAnalyzer(args[0], cfg).Run()
		},
	}
	addAnalysisFlags(cmd, cfg)
	f := cmd.Flags()
	f.BoolVarP(&cfg.DeltaMode, "delta", "l", cfg.DeltaMode, "Estimate delta instead of rho")
	f.BoolVarP(&cfg.Full, "full", "f", cfg.Full, "Refit theta and epsilon at every distance")
	f.Float64VarP(&cfg.IniTheta, "theta", "P", cfg.IniTheta, "Initial theta")
	f.Float64VarP(&cfg.IniEpsilon, "epsilon", "E", cfg.IniEpsilon, "Initial epsilon")
	f.Float64VarP(&cfg.IniDelta, "delta0", "D", cfg.IniDelta, "Initial delta")
	f.Float64VarP(&cfg.IniRho, "rho0", "R", cfg.IniRho, "Initial rho")
	f.Float64VarP(&cfg.StepSize, "stepsize", "s", cfg.StepSize, "Size of the initial simplex")
	f.Float64VarP(&cfg.Threshold, "threshold", "t", cfg.Threshold, "Simplex size threshold")
	f.IntVarP(&cfg.MaxIter, "iterations", "i", cfg.MaxIter, "Maximum number of iterations")
	f.IntVarP(&cfg.Threads, "threads", "j", cfg.Threads, "Number of distances fitted at once")
	f.BoolVar(&cfg.SaveLik, "savelik", cfg.SaveLik, "Save single-site likelihoods for reruns")
	f.BoolVar(&cfg.RunGA, "ga", cfg.RunGA, "Seed the simplex with a genetic algorithm")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed of the genetic algorithm")
	f.IntVar(&cfg.NPop, "npop", cfg.NPop, "Population size of the genetic algorithm")
	f.IntVar(&cfg.NGen, "ngen", cfg.NGen, "Number of generations of the genetic algorithm")
	f.Float64Var(&cfg.MutProb, "mutprob", cfg.MutProb, "Mutation probability of the genetic algorithm")
	return cmd
}

func newProfilesCmd() *cobra.Command {
	cfg := DefaultConfig()
	distance := 0
	cmd := &cobra.Command{
		Use:   "profiles profiles.txt|alignments.bam",
		Short: "Print the aggregated profiles at one distance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			banner(cmd)
			if distance < 0 {
				return errors.Errorf("distance must not be negative, got %d", distance)
			}
			return NewAnalyzer(args[0], cfg).PrintProfiles(distance)
		},
	}
	addAnalysisFlags(cmd, cfg)
	cmd.Flags().IntVarP(&distance, "distance", "d", distance, "Distance between paired sites, 0 for single sites")
	return cmd
}

func newIndexCmd() *cobra.Command {
	cfg := DefaultConfig()
	cmd := &cobra.Command{
		Use:   "index profiles.txt|alignments.bam",
		Short: "Build the binary .sum and .pos index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			banner(cmd)
			if err := cfg.Validate(); err != nil {
				return err
			}
			s, err := NewAnalyzer(args[0], cfg).BuildIndex()
			if err != nil {
				return err
			}
			log.Noticef("Indexed %d sites, longest span %d", s.Tree.Total(), s.Span)
			return nil
		},
	}
	addAnalysisFlags(cmd, cfg)
	return cmd
}

func newPileupCmd() *cobra.Command {
	cfg := DefaultConfig()
	cmd := &cobra.Command{
		Use:   "pileup alignments.bam",
		Short: "Convert a sorted BAM file into text profiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			banner(cmd)
			src, err := OpenPileup(args[0], cfg.MinMapQ, cfg.MinBaseQ)
			if err != nil {
				return err
			}
			defer src.Close()
			nsites, err := WriteProfiles(os.Stdout, src)
			if err != nil {
				return err
			}
			log.Noticef("Wrote %d sites", nsites)
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.MinMapQ, "minmapq", cfg.MinMapQ, "Minimum mapping quality")
	cmd.Flags().IntVar(&cfg.MinBaseQ, "minbaseq", cfg.MinBaseQ, "Minimum base quality")
	return cmd
}

// NewRootCmd assembles the command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "mlrho",
		Short:        "Maximum likelihood estimation of population genetic parameters from one diploid genome",
		Version:      Version,
		SilenceUsage: true,
	}
	root.AddCommand(newEstimateCmd(), newProfilesCmd(), newIndexCmd(), newPileupCmd())
	return root
}

// Execute runs the command line
func Execute() error {
	return NewRootCmd().Execute()
}
