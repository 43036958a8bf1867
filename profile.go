/*
 *  profile.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/02/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// Nucleotides lists the bases in profile order
const Nucleotides = "ACGT"

// countWidth is the number of bytes per count in a key
const countWidth = 4

// Profile holds the read counts of A, C, G and T at one site
type Profile [4]int

// Coverage is the total number of reads at the site
func (p Profile) Coverage() int {
	return p[0] + p[1] + p[2] + p[3]
}

// String prints the counts tab separated
func (p Profile) String() string {
	return fmt.Sprintf("%d\t%d\t%d\t%d", p[0], p[1], p[2], p[3])
}

// Validate checks that all counts fit into a key
func (p Profile) Validate() error {
	for i, c := range p {
		if c < 0 || uint64(c) > MaxCount {
			return errors.Errorf("count %d for %c out of range", c, Nucleotides[i])
		}
	}
	return nil
}

// Site is a profile observed at a position
type Site struct {
	Pos     int
	Profile Profile
}

// Pair contains two sites from the same contig, Left before Right
type Pair struct {
	Left, Right Site
}

// Distance is the separation between the two sites
func (r Pair) Distance() int {
	return r.Right.Pos - r.Left.Pos
}

// Key is the canonical byte encoding of a profile or a pair of profiles.
// Counts are written as fixed-width big-endian integers, so comparing two
// keys as strings orders them by their counts.
type Key string

// ProfileKey encodes a single profile
func ProfileKey(p Profile) Key {
	var buf [4 * countWidth]byte
	putProfile(buf[:], p)
	return Key(buf[:])
}

// PairKey encodes two profiles, in order
func PairKey(a, b Profile) Key {
	var buf [8 * countWidth]byte
	putProfile(buf[:4*countWidth], a)
	putProfile(buf[4*countWidth:], b)
	return Key(buf[:])
}

// IsPair tells if the key was built from two profiles
func (k Key) IsPair() bool {
	return len(k) == 8*countWidth
}

// DecodeKey recovers the counts from a key. b is only set for pair keys.
func DecodeKey(k Key) (a, b Profile, pair bool, err error) {
	switch len(k) {
	case 4 * countWidth:
		a = getProfile(k)
	case 8 * countWidth:
		a = getProfile(k[:4*countWidth])
		b = getProfile(k[4*countWidth:])
		pair = true
	default:
		err = errors.Errorf("malformed key of %d bytes", len(k))
	}
	return
}

func putProfile(buf []byte, p Profile) {
	for i, c := range p {
		binary.BigEndian.PutUint32(buf[i*countWidth:], uint32(c))
	}
}

func getProfile(k Key) (p Profile) {
	b := []byte(k)
	for i := range p {
		p[i] = int(binary.BigEndian.Uint32(b[i*countWidth:]))
	}
	return
}
