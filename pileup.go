/*
 *  pileup.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/06/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"io"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
)

// PileupReader turns a coordinate-sorted BAM file into site profiles. A
// position is emitted once no later alignment can start before it.
type PileupReader struct {
	Filename string
	MinMapQ  int
	MinBaseQ int

	fh     io.Closer
	br     *bam.Reader
	ref    *sam.Reference
	base   int       // 0-based position of counts[0]
	counts []Profile // pending positions
	queue  []Record  // finished records
	eof    bool
}

// NewPileupReader piles up the BAM stream r
func NewPileupReader(r io.Reader, minMapQ, minBaseQ int) (*PileupReader, error) {
	br, err := bam.NewReader(r, 0)
	if err != nil {
		return nil, err
	}
	return &PileupReader{
		Filename: "-",
		MinMapQ:  minMapQ,
		MinBaseQ: minBaseQ,
		br:       br,
	}, nil
}

// OpenPileup opens a BAM file for piling up
func OpenPileup(filename string, minMapQ, minBaseQ int) (*PileupReader, error) {
	fh, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, filename)
	}
	log.Noticef("Parse bamfile `%s`", filename)
	r, err := NewPileupReader(fh, minMapQ, minBaseQ)
	if err != nil {
		fh.Close()
		return nil, errors.Wrapf(err, "cannot open bamfile `%s`", filename)
	}
	r.Filename, r.fh = filename, fh
	return r, nil
}

// Read returns the next record
func (r *PileupReader) Read() (Record, error) {
	for len(r.queue) == 0 {
		if r.eof {
			return Record{}, io.EOF
		}
		if err := r.fill(); err != nil {
			return Record{}, err
		}
	}
	rec := r.queue[0]
	r.queue = r.queue[1:]
	return rec, nil
}

// fill consumes one alignment
func (r *PileupReader) fill() error {
	rec, err := r.br.Read()
	if err == io.EOF {
		r.flush(-1)
		r.eof = true
		return nil
	}
	if err != nil {
		return errors.Wrap(err, r.Filename)
	}
	// Filtering: Unmapped | Secondary | QCFail | Duplicate | Supplementary
	if rec.Ref == nil || int(rec.MapQ) < r.MinMapQ || rec.Flags&3844 != 0 {
		return nil
	}
	if r.ref == nil || rec.Ref.ID() != r.ref.ID() {
		if r.ref != nil && rec.Ref.ID() < r.ref.ID() {
			return errors.Errorf("%s: %s is not sorted by coordinate", r.Filename, rec.Name)
		}
		r.flush(-1)
		r.ref = rec.Ref
		r.base = rec.Pos
		r.counts = r.counts[:0]
		r.queue = append(r.queue, Record{Contig: r.ref.Name(), Header: true})
	}
	if rec.Pos < r.base {
		return errors.Errorf("%s: %s:%d is not sorted by coordinate",
			r.Filename, r.ref.Name(), rec.Pos+1)
	}
	r.flush(rec.Pos)
	r.pile(rec)
	return nil
}

// pile adds the aligned bases of one read
func (r *PileupReader) pile(rec *sam.Record) {
	seq := rec.Seq.Expand()
	qpos, rpos := 0, rec.Pos
	for _, co := range rec.Cigar {
		t, n := co.Type(), co.Len()
		switch t {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			for i := 0; i < n; i++ {
				if qpos+i >= len(seq) {
					break
				}
				if len(rec.Qual) > qpos+i && rec.Qual[qpos+i] != 0xff &&
					int(rec.Qual[qpos+i]) < r.MinBaseQ {
					continue
				}
				r.count(rpos+i, seq[qpos+i])
			}
			qpos += n
			rpos += n
		default:
			c := t.Consumes()
			qpos += n * c.Query
			rpos += n * c.Reference
		}
	}
}

func (r *PileupReader) count(pos int, base byte) {
	var idx int
	switch base {
	case 'A', 'a':
		idx = 0
	case 'C', 'c':
		idx = 1
	case 'G', 'g':
		idx = 2
	case 'T', 't':
		idx = 3
	default:
		return
	}
	offset := pos - r.base
	for len(r.counts) <= offset {
		r.counts = append(r.counts, Profile{})
	}
	r.counts[offset][idx]++
}

// flush emits covered positions before upto, or all of them if upto < 0
func (r *PileupReader) flush(upto int) {
	n := len(r.counts)
	if upto >= 0 {
		n = min(n, upto-r.base)
	}
	for i := 0; i < n; i++ {
		if p := r.counts[i]; p.Coverage() > 0 {
			r.queue = append(r.queue, Record{
				Contig: r.ref.Name(),
				Site:   Site{Pos: r.base + i + 1, Profile: p},
			})
		}
	}
	r.counts = append(r.counts[:0], r.counts[n:]...)
	if upto >= 0 {
		r.base = upto
	} else {
		r.base += n
	}
}

// Close releases the BAM reader and its file
func (r *PileupReader) Close() error {
	err := r.br.Close()
	if r.fh == nil {
		return err
	}
	if cerr := r.fh.Close(); err == nil {
		err = cerr
	}
	return err
}

// OpenSites picks the reader from the file extension
func OpenSites(filename string, cfg *Config) (SiteReader, error) {
	if isBam(filename) {
		return OpenPileup(filename, cfg.MinMapQ, cfg.MinBaseQ)
	}
	return OpenProfiles(filename)
}
