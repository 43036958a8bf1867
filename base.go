/**
 * Filename: /Users/bao/code/mlrho/base.go
 * Path: /Users/bao/code/mlrho
 * Created Date: Monday, March 2nd 2020, 9:12:40 pm
 * Author: bao
 *
 * Copyright (c) 2020 Haibao Tang
 */

package mlrho

import (
	"fmt"
	"math"
	"os"
	"path"
	"strings"

	logging "github.com/op/go-logging"
)

const (
	// Version is the current version of mlrho
	Version = "0.3.1"
	// IniTheta is the initial value of theta
	IniTheta = 1e-3
	// IniEpsilon is the initial sequencing error rate
	IniEpsilon = 1e-3
	// IniDelta is the initial disequilibrium coefficient
	IniDelta = 1e-3
	// IniRho is the initial recombination parameter
	IniRho = 1.0
	// Threshold is the simplex size where the minimizer stops
	Threshold = 1e-8
	// StepSize is the size of the initial simplex
	StepSize = 1e-4
	// MaxIter caps the iterations of the minimizer and the root finder
	MaxIter = 100
	// MinCov is the minimum coverage for a site to enter the analysis
	MinCov = 4
	// DefaultStep is the step between two analysis distances
	DefaultStep = 1
	// LRCutoff is the drop in log-likelihood that defines a confidence bound
	LRCutoff = 2.0
	// ThetaEdge is the upper end of the theta bound search
	ThetaEdge = 0.75
	// EpsilonEdge is the upper end of the epsilon bound search
	EpsilonEdge = 0.5
	// MaxRho is the upper end of the rho bound search
	MaxRho = math.MaxFloat32
	// MaxCount is the largest read count a profile may carry
	MaxCount = math.MaxUint32
)

// minPositive is the smallest normal double, the floor for a likelihood
const minPositive = 0x1p-1022

// logFloor replaces log(L) whenever L is not positive
var logFloor = math.Log(minPositive)

var log = logging.MustGetLogger("mlrho")
var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05} %{shortfunc} | %{level:.6s} %{color:reset} %{message}`,
)

// Backend is the default stderr output
var Backend = logging.NewLogBackend(os.Stderr, "", 0)

// BackendFormatter contains the fancy debug formatter
var BackendFormatter = logging.NewBackendFormatter(Backend, format)

// RemoveExt returns the substring minus the extension
func RemoveExt(filename string) string {
	return strings.TrimSuffix(filename, path.Ext(filename))
}

// IsNewerFile checks if file a is newer than file b
func IsNewerFile(a, b string) bool {
	af, aerr := os.Stat(a)
	bf, berr := os.Stat(b)
	if os.IsNotExist(aerr) || os.IsNotExist(berr) {
		return false
	}
	return af.ModTime().Sub(bf.ModTime()) > 0
}

// Percentage prints a human readable message of the percentage
func Percentage(a, b int) string {
	if b == 0 {
		return fmt.Sprintf("%d of %d", a, b)
	}
	return fmt.Sprintf("%d of %d (%.1f %%)", a, b, float64(a)*100./float64(b))
}

// min gets the minimum for two ints
func min(x, y int) int {
	if x < y {
		return x
	}
	return y
}

// max gets the maximum for two ints
func max(x, y int) int {
	if x > y {
		return x
	}
	return y
}
