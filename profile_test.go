/*
 *  profile_test.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/02/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho_test

import (
	"testing"

	"github.com/tanghaibao/mlrho"
)

var testProfiles = []mlrho.Profile{
	{0, 0, 0, 0},
	{10, 0, 0, 0},
	{5, 5, 0, 0},
	{0, 10, 0, 0},
	{1, 2, 3, 4},
	{4294967295, 0, 7, 65536},
}

func TestProfileKeyRoundTrip(t *testing.T) {
	for _, p := range testProfiles {
		a, _, pair, err := mlrho.DecodeKey(mlrho.ProfileKey(p))
		if err != nil {
			t.Fatal(err)
		}
		if pair || a != p {
			t.Errorf("Expected %v, got %v (pair=%v)", p, a, pair)
		}
	}
}

func TestPairKeyRoundTrip(t *testing.T) {
	for _, p := range testProfiles {
		for _, q := range testProfiles {
			k := mlrho.PairKey(p, q)
			a, b, pair, err := mlrho.DecodeKey(k)
			if err != nil {
				t.Fatal(err)
			}
			if !pair || a != p || b != q {
				t.Errorf("Expected %v %v, got %v %v", p, q, a, b)
			}
		}
	}
}

func TestKeyDistinguishesOrder(t *testing.T) {
	p, q := mlrho.Profile{1, 0, 0, 0}, mlrho.Profile{0, 1, 0, 0}
	if mlrho.PairKey(p, q) == mlrho.PairKey(q, p) {
		t.Fatal("Swapped pair produced the same key")
	}
	if mlrho.ProfileKey(mlrho.Profile{1, 10, 0, 0}) == mlrho.ProfileKey(mlrho.Profile{11, 0, 0, 0}) {
		t.Fatal("Distinct profiles collide")
	}
}

func TestKeyOrder(t *testing.T) {
	small := mlrho.ProfileKey(mlrho.Profile{1, 300, 0, 0})
	large := mlrho.ProfileKey(mlrho.Profile{2, 0, 0, 0})
	if !(small < large) {
		t.Fatal("Keys do not follow the order of the counts")
	}
}

func TestDecodeMalformedKey(t *testing.T) {
	if _, _, _, err := mlrho.DecodeKey(mlrho.Key("abc")); err == nil {
		t.Fatal("Expected an error for a 3-byte key")
	}
}

func TestProfileValidate(t *testing.T) {
	if err := (mlrho.Profile{-1, 0, 0, 0}).Validate(); err == nil {
		t.Error("Negative count accepted")
	}
	if err := (mlrho.Profile{3, 0, 2, 1}).Validate(); err != nil {
		t.Error(err)
	}
	if cov := (mlrho.Profile{3, 0, 2, 1}).Coverage(); cov != 6 {
		t.Errorf("Expected coverage 6, got %d", cov)
	}
}
