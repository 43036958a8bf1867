/*
 *  index_test.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/14/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho_test

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tanghaibao/mlrho"
)

func TestIndexRoundTrip(t *testing.T) {
	cfg := mlrho.DefaultConfig()
	var pos, sum bytes.Buffer
	iw, err := mlrho.NewIndexWriter(&pos, cfg.MinCov)
	if err != nil {
		t.Fatal(err)
	}
	s, err := mlrho.Summarize(mlrho.NewProfileReader(strings.NewReader(sampleProfiles)), cfg, iw)
	if err != nil {
		t.Fatal(err)
	}
	if err = iw.Flush(); err != nil {
		t.Fatal(err)
	}
	// the site at chr1:3 has coverage 2
	if s.Tree.Total() != 3 || s.Span != 1 {
		t.Fatalf("Expected 3 sites and span 1, got %d and %d", s.Tree.Total(), s.Span)
	}

	if err = mlrho.WriteSummary(&sum, s); err != nil {
		t.Fatal(err)
	}
	loaded, err := mlrho.ReadSummary(&sum)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.MinCov != cfg.MinCov || loaded.Span != s.Span || !loaded.Matches(cfg) {
		t.Fatalf("Header mismatch: %+v", loaded)
	}
	profiles := loaded.Tree.Profiles()
	if !reflect.DeepEqual(profiles, s.Tree.Profiles()) {
		t.Fatalf("Expected profiles %v, got %v", s.Tree.Profiles(), profiles)
	}
	if loaded.Tree.Total() != s.Tree.Total() {
		t.Fatalf("Expected %d sites, got %d", s.Tree.Total(), loaded.Tree.Total())
	}

	ir, err := mlrho.NewIndexReader(&pos, profiles)
	if err != nil {
		t.Fatal(err)
	}
	if ir.MinCov != cfg.MinCov {
		t.Fatalf("Expected min coverage %d, got %d", cfg.MinCov, ir.MinCov)
	}
	recs := readAll(t, ir)
	expected := []mlrho.Record{
		{Contig: "chr1", Header: true, Start: 1},
		{Contig: "chr1", Site: mlrho.Site{Pos: 1, Profile: mlrho.Profile{10, 0, 0, 0}}},
		{Contig: "chr1", Site: mlrho.Site{Pos: 2, Profile: mlrho.Profile{5, 5, 0, 0}}},
		{Contig: "chr2", Header: true, Start: 7},
		{Contig: "chr2", Site: mlrho.Site{Pos: 7, Profile: mlrho.Profile{0, 0, 8, 0}}},
	}
	if !reflect.DeepEqual(recs, expected) {
		t.Fatalf("Expected %v, got %v", expected, recs)
	}
}

func TestSummaryMatches(t *testing.T) {
	cfg := mlrho.DefaultConfig()
	s, err := mlrho.Summarize(mlrho.NewProfileReader(strings.NewReader(sampleProfiles)), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Matches(cfg) {
		t.Fatal("Expected the summary to match its own settings")
	}
	tests := []struct {
		name   string
		change func(*mlrho.Config)
	}{
		{"mincov", func(c *mlrho.Config) { c.MinCov++ }},
		{"lenient", func(c *mlrho.Config) { c.Lenient = true }},
		{"mapq", func(c *mlrho.Config) { c.MinMapQ = 20 }},
		{"baseq", func(c *mlrho.Config) { c.MinBaseQ = 13 }},
	}
	for _, tt := range tests {
		other := mlrho.DefaultConfig()
		tt.change(other)
		if s.Matches(other) {
			t.Errorf("%s: expected a mismatch", tt.name)
		}
	}
}

func TestReadSummaryBadMagic(t *testing.T) {
	if _, err := mlrho.ReadSummary(strings.NewReader("pos1xxxxxxxxxxxx")); err == nil {
		t.Fatal("Expected an error on a foreign file")
	}
}

func TestSummarizeRegression(t *testing.T) {
	input := ">chr1\n5\t4\t0\t0\t0\n3\t4\t0\t0\t0\n9\t4\t0\t0\t0\n"
	cfg := mlrho.DefaultConfig()
	if _, err := mlrho.Summarize(mlrho.NewProfileReader(strings.NewReader(input)), cfg, nil); err == nil {
		t.Fatal("Expected an error on positions out of order")
	}
	cfg.Lenient = true
	s, err := mlrho.Summarize(mlrho.NewProfileReader(strings.NewReader(input)), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Tree.Total() != 2 || s.Span != 4 {
		t.Fatalf("Expected 2 sites and span 4, got %d and %d", s.Tree.Total(), s.Span)
	}
}

func TestLikTableSaveLoad(t *testing.T) {
	m := scenarioModel()
	profiles := scenarioTree().Profiles()
	res := &mlrho.Result{N: 100, Theta: mlrho.Bound{Lo: 0.05, Est: 0.1, Up: 0.17},
		Epsilon: mlrho.Bound{Est: 0.001, Up: 0.002}, NegLogLik: 42, Converged: true}
	lt := mlrho.NewLikTable(m, profiles, res)

	dir := t.TempDir()
	npy, js := filepath.Join(dir, "x.lik.npy"), filepath.Join(dir, "x.lik.json")
	if err := lt.Save(npy, js); err != nil {
		t.Fatal(err)
	}
	loaded, err := mlrho.LoadLikTable(npy, js, len(profiles))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.Terms, lt.Terms) {
		t.Fatalf("Expected terms %v, got %v", lt.Terms, loaded.Terms)
	}
	if !reflect.DeepEqual(loaded.Result, res) {
		t.Fatalf("Expected result %+v, got %+v", res, loaded.Result)
	}
	if _, err = mlrho.LoadLikTable(npy, js, len(profiles)+1); err == nil {
		t.Fatal("Expected a shape mismatch")
	}
	cache := loaded.Cache(profiles)
	if cache[mlrho.ProfileKey(profiles[1])] != lt.Terms[1] {
		t.Fatal("Cache does not follow profile order")
	}
}
