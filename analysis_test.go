/*
 *  analysis_test.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/18/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho_test

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/tanghaibao/mlrho"
)

// writeSample writes one contig of n sites, every tenth one heterozygous
func writeSample(t *testing.T, n int) string {
	var b strings.Builder
	b.WriteString(">chr1\n")
	for pos := 1; pos <= n; pos++ {
		if pos%10 == 0 {
			fmt.Fprintf(&b, "%d\t5\t5\t0\t0\n", pos)
		} else {
			fmt.Fprintf(&b, "%d\t10\t0\t0\t0\n", pos)
		}
	}
	filename := filepath.Join(t.TempDir(), "sample.txt")
	if err := ioutil.WriteFile(filename, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return filename
}

func runAnalyzer(t *testing.T, filename string, cfg *mlrho.Config) []string {
	var out bytes.Buffer
	r := mlrho.NewAnalyzer(filename, cfg)
	r.Out = &out
	if err := r.Run(); err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
}

func TestAnalyzerRun(t *testing.T) {
	filename := writeSample(t, 200)
	cfg := mlrho.DefaultConfig()
	cfg.MaxDist = 3
	lines := runAnalyzer(t, filename, cfg)
	if len(lines) != 5 {
		t.Fatalf("Expected a header and 4 rows, got %q", lines)
	}
	if lines[0]+"\n" != mlrho.Header(cfg) {
		t.Errorf("Unexpected header %q", lines[0])
	}
	for i, prefix := range []string{"0\t200\t", "1\t199\t", "2\t198\t", "3\t197\t"} {
		if !strings.HasPrefix(lines[i+1], prefix) {
			t.Errorf("Expected row %q to start with %q", lines[i+1], prefix)
		}
	}
	for _, ext := range []string{".sum", ".pos"} {
		if _, err := os.Stat(mlrho.RemoveExt(filename) + ext); err != nil {
			t.Errorf("Index not written: %v", err)
		}
	}

	// the second run reuses the index
	again := runAnalyzer(t, filename, cfg)
	if strings.Join(again, "\n") != strings.Join(lines, "\n") {
		t.Errorf("Rerun differs:\n%q\n%q", lines, again)
	}
}

func TestAnalyzerSingleOnly(t *testing.T) {
	filename := writeSample(t, 50)
	cfg := mlrho.DefaultConfig()
	cfg.MaxDist = 0
	cfg.SaveLik = true
	lines := runAnalyzer(t, filename, cfg)
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "d\tn\ttheta") || !strings.HasPrefix(lines[1], "0\t50\t") {
		t.Fatalf("Unexpected output %q", lines)
	}
	if _, err := os.Stat(mlrho.RemoveExt(filename) + ".lik.npy"); err != nil {
		t.Fatalf("Site likelihoods not saved: %v", err)
	}
	again := runAnalyzer(t, filename, cfg)
	if again[1] != lines[1] {
		t.Fatalf("Reloaded result %q differs from %q", again[1], lines[1])
	}
}

func TestAnalyzerLumpedParallel(t *testing.T) {
	filename := writeSample(t, 100)
	cfg := mlrho.DefaultConfig()
	cfg.MaxDist = 4
	cfg.Step = 2
	cfg.Lump = true
	cfg.Threads = 2
	cfg.DeltaMode = true
	lines := runAnalyzer(t, filename, cfg)
	if len(lines) != 4 {
		t.Fatalf("Expected a header and 3 rows, got %q", lines)
	}
	if !strings.Contains(lines[0], "delta") {
		t.Errorf("Expected the delta header, got %q", lines[0])
	}
	// [1, 2] and [3, 4] pooled
	for i, prefix := range []string{"0\t100\t", "1\t197\t", "3\t193\t"} {
		if !strings.HasPrefix(lines[i+1], prefix) {
			t.Errorf("Expected row %q to start with %q", lines[i+1], prefix)
		}
	}
}

func TestAnalyzerNoCoverage(t *testing.T) {
	filename := writeSample(t, 20)
	cfg := mlrho.DefaultConfig()
	cfg.MinCov = 50
	lines := runAnalyzer(t, filename, cfg)
	if len(lines) != 1 || lines[0] != "" {
		t.Fatalf("Expected no output, got %q", lines)
	}
}

func TestAnalyzerLumpedMaxDist(t *testing.T) {
	filename := writeSample(t, 100)
	cfg := mlrho.DefaultConfig()
	cfg.MaxDist = 7
	cfg.Step = 5
	cfg.Lump = true
	lines := runAnalyzer(t, filename, cfg)
	if len(lines) != 4 {
		t.Fatalf("Expected a header and 3 rows, got %q", lines)
	}
	// [1, 5] and [6, 7], distances past 7 are not pooled
	for i, prefix := range []string{"0\t100\t", "1\t485\t", "6\t187\t"} {
		if !strings.HasPrefix(lines[i+1], prefix) {
			t.Errorf("Expected row %q to start with %q", lines[i+1], prefix)
		}
	}
}

// writeRegressed writes n sites with position 25 repeated after 30
func writeRegressed(t *testing.T, n int) string {
	var b strings.Builder
	b.WriteString(">chr1\n")
	for pos := 1; pos <= n; pos++ {
		if pos%10 == 0 {
			fmt.Fprintf(&b, "%d\t5\t5\t0\t0\n", pos)
		} else {
			fmt.Fprintf(&b, "%d\t10\t0\t0\t0\n", pos)
		}
		if pos == 30 {
			b.WriteString("25\t10\t0\t0\t0\n")
		}
	}
	filename := filepath.Join(t.TempDir(), "regressed.txt")
	if err := ioutil.WriteFile(filename, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestAnalyzerIndexFilters(t *testing.T) {
	filename := writeRegressed(t, 50)
	cfg := mlrho.DefaultConfig()
	cfg.MaxDist = 0
	cfg.Lenient = true
	lines := runAnalyzer(t, filename, cfg)
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "0\t50\t") {
		t.Fatalf("Unexpected lenient output %q", lines)
	}

	// neither a fresh nor a cached strict run accepts the lenient index
	for _, startOver := range []bool{true, false} {
		var out bytes.Buffer
		strict := mlrho.DefaultConfig()
		strict.MaxDist = 0
		strict.StartOver = startOver
		r := mlrho.NewAnalyzer(filename, strict)
		r.Out = &out
		err := r.Run()
		if errors.Cause(err) != mlrho.ErrPositionOrder {
			t.Fatalf("startover=%v: expected ErrPositionOrder, got %v", startOver, err)
		}
		if out.Len() != 0 {
			t.Errorf("startover=%v: expected no output, got %q", startOver, out.String())
		}
	}

	// the failed rebuild leaves the previous index in place
	prefix := mlrho.RemoveExt(filename)
	for _, ext := range []string{".sum", ".pos"} {
		if _, err := os.Stat(prefix + ext); err != nil {
			t.Errorf("Index lost: %v", err)
		}
		if _, err := os.Stat(prefix + ext + ".tmp"); !os.IsNotExist(err) {
			t.Errorf("Temporary %s left behind", ext)
		}
	}
	again := runAnalyzer(t, filename, cfg)
	if strings.Join(again, "\n") != strings.Join(lines, "\n") {
		t.Errorf("Rerun differs:\n%q\n%q", lines, again)
	}
}

func TestPrintProfiles(t *testing.T) {
	filename := writeSample(t, 20)
	var out bytes.Buffer
	r := mlrho.NewAnalyzer(filename, mlrho.DefaultConfig())
	r.Out = &out
	if err := r.PrintProfiles(0); err != nil {
		t.Fatal(err)
	}
	expected := "0\t5\t5\t0\t0\t2\n0\t10\t0\t0\t0\t18\n"
	if out.String() != expected {
		t.Fatalf("Expected %q, got %q", expected, out.String())
	}
}

func TestPrintProfilesStride(t *testing.T) {
	// the first site is below the minimum coverage but still anchors the stride
	input := ">chr1\n1\t1\t0\t0\t0\n2\t4\t0\t0\t0\n3\t4\t0\t0\t0\n4\t4\t0\t0\t0\n5\t4\t0\t0\t0\n"
	filename := filepath.Join(t.TempDir(), "stride.txt")
	if err := ioutil.WriteFile(filename, []byte(input), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := mlrho.DefaultConfig()
	cfg.Stride = 2
	var out bytes.Buffer
	r := mlrho.NewAnalyzer(filename, cfg)
	r.Out = &out
	if err := r.PrintProfiles(1); err != nil {
		t.Fatal(err)
	}
	// only (3, 4) starts at an even offset from position 1
	expected := "1\t4\t0\t0\t0\t4\t0\t0\t0\t1\n"
	if out.String() != expected {
		t.Fatalf("Expected %q, got %q", expected, out.String())
	}
}
