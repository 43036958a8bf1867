/*
 *  analysis.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/18/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"fmt"
	"io"
	"os"

	"github.com/exascience/pargo/parallel"
	"github.com/pkg/errors"
)

// Stage is a step of the pipeline run for every distance
type Stage int

const (
	// StageIdle waits for the next distance
	StageIdle Stage = iota
	// StageAggregate collects the profiles or pairs into a tree
	StageAggregate
	// StageEstimateSingle fits theta and epsilon, distance 0 only
	StageEstimateSingle
	// StageEstimateLinkage fits delta or rho
	StageEstimateLinkage
	// StageConfidenceBound computes the profile likelihood intervals
	StageConfidenceBound
	// StageReport prints the result row
	StageReport
)

var stageNames = [...]string{"Idle", "Aggregate", "Estimate(theta,epsilon)",
	"Estimate(delta|rho)", "ConfidenceBound", "Report"}

func (s Stage) String() string {
	return stageNames[s]
}

// Analyzer estimates theta and epsilon from the single sites of a profile
// file, then delta or rho at each requested distance
type Analyzer struct {
	*Config
	Infile string
	Out    io.Writer

	sumfile  string
	posfile  string
	summary  *Summary
	profiles []Profile
	model    *Model
	single   *Result
	lik      *LikTable
}

// NewAnalyzer prepares an analysis of infile, results go to stdout
func NewAnalyzer(infile string, cfg *Config) *Analyzer {
	prefix := RemoveExt(infile)
	return &Analyzer{
		Config:  cfg,
		Infile:  infile,
		Out:     os.Stdout,
		sumfile: prefix + ".sum",
		posfile: prefix + ".pos",
	}
}

func (r *Analyzer) trace(d int, s Stage) {
	log.Infof("d=%d: %v", d, s)
}

// Run kicks off the Analyzer
func (r *Analyzer) Run() error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := r.prepare(); err != nil {
		return err
	}
	tree := r.summary.Tree
	if tree.Total() == 0 {
		log.Warningf("No site with coverage >= %d in `%s`", r.MinCov, r.Infile)
		return nil
	}
	if _, err := fmt.Fprint(r.Out, Header(r.Config)); err != nil {
		return err
	}
	if err := r.singlePass(); err != nil {
		return err
	}
	r.trace(0, StageReport)
	if _, err := fmt.Fprint(r.Out, r.single.Format(1)); err != nil {
		return err
	}

	ds := r.Distances(r.summary.Span)
	if len(ds) == 0 {
		log.Notice("Success")
		return nil
	}
	var cache map[Key]SiteTerms
	if !r.Full {
		cache = r.lik.Cache(r.profiles)
	}
	if r.Threads > 1 {
		err := r.runParallel(ds, cache)
		if err != nil {
			return err
		}
	} else {
		for _, d := range ds {
			res, err := r.LinkagePass(d, cache)
			if err != nil {
				return err
			}
			if err = r.report(res); err != nil {
				return err
			}
		}
	}
	log.Notice("Success")
	return nil
}

// runParallel fits the distances concurrently and prints them in order
func (r *Analyzer) runParallel(ds []int, cache map[Key]SiteTerms) error {
	results := make([]*Result, len(ds))
	errs := make([]error, len(ds))
	parallel.Range(0, len(ds), min(r.Threads, len(ds)), func(low, high int) {
		for i := low; i < high; i++ {
			results[i], errs[i] = r.LinkagePass(ds[i], cache)
		}
	})
	for i := range ds {
		if errs[i] != nil {
			return errs[i]
		}
		if err := r.report(results[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Analyzer) report(res *Result) error {
	if res == nil {
		return nil
	}
	r.trace(res.Distance, StageReport)
	lo, hi := r.Window(res.Distance)
	_, err := fmt.Fprint(r.Out, res.Format(float64(lo+hi)/2))
	r.trace(res.Distance, StageIdle)
	return err
}

// prepare loads the binary index, building it first when missing or stale
func (r *Analyzer) prepare() error {
	if !r.StartOver && IsNewerFile(r.sumfile, r.Infile) && IsNewerFile(r.posfile, r.Infile) {
		s, err := loadSummary(r.sumfile)
		switch {
		case err != nil:
			log.Warningf("Ignore index `%s` (%v)", r.sumfile, err)
		case !s.Matches(r.Config):
			log.Noticef("Index `%s` was built with other filters, rebuild", r.sumfile)
		default:
			log.Noticef("Reuse index `%s`", r.sumfile)
			r.setSummary(s)
			return nil
		}
	}
	s, err := r.BuildIndex()
	if err != nil {
		return err
	}
	r.setSummary(s)
	return nil
}

func (r *Analyzer) setSummary(s *Summary) {
	r.summary = s
	r.profiles = s.Tree.Profiles()
	r.model = NewModel(s.Tree.Frequencies(), s.Tree.MaxCoverage())
	log.Noticef("%d sites, %d distinct profiles, frequencies %.4f",
		s.Tree.Total(), s.Tree.Len(), r.model.Freq)
}

func loadSummary(filename string) (*Summary, error) {
	fh, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, filename)
	}
	defer fh.Close()
	return ReadSummary(fh)
}

// BuildIndex reads the input once, writing the .pos index as it goes and
// the .sum profile table at the end. Both files are written under temporary
// names and only replace the old index once complete.
func (r *Analyzer) BuildIndex() (s *Summary, err error) {
	src, err := OpenSites(r.Infile, r.Config)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	postmp, sumtmp := r.posfile+".tmp", r.sumfile+".tmp"
	defer func() {
		if err != nil {
			os.Remove(postmp)
			os.Remove(sumtmp)
		}
	}()
	r.trace(0, StageAggregate)
	if s, err = writeIndex(postmp, src, r.Config); err != nil {
		return nil, errors.Wrap(err, r.Infile)
	}
	if err = writeSummary(sumtmp, s); err != nil {
		return nil, err
	}
	// a .sum without its .pos is never left behind
	if err = os.Remove(r.sumfile); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, r.sumfile)
	}
	if err = os.Rename(postmp, r.posfile); err != nil {
		return nil, errors.Wrap(err, r.posfile)
	}
	if err = os.Rename(sumtmp, r.sumfile); err != nil {
		return nil, errors.Wrap(err, r.sumfile)
	}
	log.Noticef("Index written to `%s` and `%s`", r.sumfile, r.posfile)
	return s, nil
}

func writeIndex(filename string, src SiteReader, cfg *Config) (*Summary, error) {
	fh, err := os.Create(filename)
	if err != nil {
		return nil, errors.Wrap(err, filename)
	}
	defer fh.Close()
	iw, err := NewIndexWriter(fh, cfg.MinCov)
	if err != nil {
		return nil, errors.Wrap(err, filename)
	}
	s, err := Summarize(src, cfg, iw)
	if err != nil {
		return nil, err
	}
	if err = iw.Flush(); err != nil {
		return nil, errors.Wrap(err, filename)
	}
	return s, errors.Wrap(fh.Close(), filename)
}

func writeSummary(filename string, s *Summary) error {
	fh, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, filename)
	}
	defer fh.Close()
	if err = WriteSummary(fh, s); err != nil {
		return errors.Wrap(err, filename)
	}
	return errors.Wrap(fh.Close(), filename)
}

// Summarize aggregates the sites that meet the minimum coverage into a
// single-site tree. Sites are also streamed to iw when it is not nil.
func Summarize(src SiteReader, cfg *Config, iw *IndexWriter) (*Summary, error) {
	s := &Summary{
		MinCov:   cfg.MinCov,
		Lenient:  cfg.Lenient,
		MinMapQ:  cfg.MinMapQ,
		MinBaseQ: cfg.MinBaseQ,
		Tree:     NewProfileTree(0),
	}
	contig := ""
	first, last, started := 0, 0, false
	nsites := 0
	for {
		rec, err := src.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rec.Header {
			contig, started = rec.Contig, false
			continue
		}
		if started && rec.Pos <= last {
			err = errors.Wrapf(ErrPositionOrder, "%s: position %d follows %d", contig, rec.Pos, last)
			if !cfg.Lenient {
				return nil, err
			}
			log.Warningf("%v, site skipped", err)
			continue
		}
		last = rec.Pos
		nsites++
		if !started {
			first, started = rec.Pos, true
			if iw != nil {
				if err = iw.Contig(contig, first); err != nil {
					return nil, err
				}
			}
		}
		if rec.Profile.Coverage() < cfg.MinCov {
			continue
		}
		e := s.Tree.Add(rec.Profile)
		if iw != nil {
			if err = iw.Site(rec.Pos, e.ID); err != nil {
				return nil, err
			}
		}
		s.Span = max(s.Span, rec.Pos-first)
	}
	log.Noticef("%s sites with coverage >= %d", Percentage(s.Tree.Total(), nsites), cfg.MinCov)
	return s, nil
}

// singlePass runs theta and epsilon estimation, or loads it from the saved
// site likelihoods
func (r *Analyzer) singlePass() error {
	prefix := RemoveExt(r.Infile)
	npyfile, jsonfile := prefix+".lik.npy", prefix+".lik.json"
	if r.SaveLik && !r.StartOver && IsNewerFile(npyfile, r.sumfile) {
		lik, err := LoadLikTable(npyfile, jsonfile, len(r.profiles))
		if err == nil {
			log.Noticef("Reuse site likelihoods `%s`", npyfile)
			r.lik, r.single = lik, lik.Result
			return nil
		}
		log.Warningf("Ignore site likelihoods (%v)", err)
	}
	est := &Estimator{Config: r.Config, Model: r.model, Trace: r.trace}
	single, err := est.EstimateSingle(r.summary.Tree)
	if err != nil {
		return err
	}
	r.single = single
	r.lik = NewLikTable(r.model, r.profiles, single)
	if r.SaveLik {
		return r.lik.Save(npyfile, jsonfile)
	}
	return nil
}

// LinkagePass aggregates the pairs at distance d, or the distance bin
// starting at d, and fits delta or rho. It returns nil when no pair exists.
func (r *Analyzer) LinkagePass(d int, cache map[Key]SiteTerms) (*Result, error) {
	r.trace(d, StageAggregate)
	ir, err := OpenIndex(r.posfile, r.profiles)
	if err != nil {
		return nil, err
	}
	defer ir.Close()
	lo, hi := r.Window(d)
	t, err := CollectPairs(ir, lo, hi, r.Config)
	if err != nil {
		return nil, errors.Wrap(err, r.posfile)
	}
	if t.Total() == 0 {
		log.Warningf("d=%d: no pairs, skipped", d)
		return nil, nil
	}
	est := &Estimator{Config: r.Config, Model: r.model, Trace: r.trace}
	return est.EstimateLinkage(t, r.single, cache)
}

// PrintProfiles writes the aggregated profiles at distance d, single sites
// for d = 0
func (r *Analyzer) PrintProfiles(d int) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := r.prepare(); err != nil {
		return err
	}
	if d == 0 {
		return r.summary.Tree.Print(r.Out)
	}
	ir, err := OpenIndex(r.posfile, r.profiles)
	if err != nil {
		return err
	}
	defer ir.Close()
	lo, hi := r.Window(d)
	t, err := CollectPairs(ir, lo, hi, r.Config)
	if err != nil {
		return err
	}
	return t.Print(r.Out)
}
