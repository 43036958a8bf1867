/*
 *  index.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/14/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
)

// Binary index files written next to the input:
//
//	.sum  "sum2", minCov, lenient, minMapQ, minBaseQ, span, n, then
//	      n x (A, C, G, T, count)
//	.pos  "pos2", minCov, then a stream of (pos, id) records; a record
//	      with pos 0xffffffff starts a contig and id is its name length,
//	      followed by the name and the first position of the contig
//
// All integers are little-endian uint32, counts are uint64. Only sites that
// meet minCov are indexed, id refers to the profile order in .sum.
var (
	sumMagic = [4]byte{'s', 'u', 'm', '2'}
	posMagic = [4]byte{'p', 'o', 's', '2'}
)

const contigMark = math.MaxUint32

// Summary is the content of a .sum file, with the settings it was built
// with
type Summary struct {
	MinCov   int
	Lenient  bool
	MinMapQ  int
	MinBaseQ int
	Span     int
	Tree     *ProfileTree
}

// Matches tells if the summary was built with the filters of cfg
func (s *Summary) Matches(cfg *Config) bool {
	return s.MinCov == cfg.MinCov && s.Lenient == cfg.Lenient &&
		s.MinMapQ == cfg.MinMapQ && s.MinBaseQ == cfg.MinBaseQ
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// WriteSummary stores the single-site tree with its profile ids
func WriteSummary(w io.Writer, s *Summary) error {
	bw := bufio.NewWriter(w)
	profiles := s.Tree.Profiles()
	counts := make([]int, len(profiles))
	s.Tree.Walk(func(e *Entry) {
		counts[e.ID] = e.Count
	})
	header := []uint32{uint32(s.MinCov), boolToUint32(s.Lenient), uint32(s.MinMapQ),
		uint32(s.MinBaseQ), uint32(s.Span), uint32(len(profiles))}
	if err := binary.Write(bw, binary.LittleEndian, sumMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return err
	}
	for i, p := range profiles {
		rec := [4]uint32{uint32(p[0]), uint32(p[1]), uint32(p[2]), uint32(p[3])}
		if err := binary.Write(bw, binary.LittleEndian, rec); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint64(counts[i])); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadSummary loads a .sum stream, profile ids are kept
func ReadSummary(r io.Reader) (*Summary, error) {
	br := bufio.NewReader(r)
	var magic [4]byte
	var header [6]uint32
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return nil, errors.Wrap(err, "summary header")
	}
	if magic != sumMagic {
		return nil, errors.Errorf("not a summary file (tag %q)", magic[:])
	}
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return nil, errors.Wrap(err, "summary header")
	}
	s := &Summary{
		MinCov:   int(header[0]),
		Lenient:  header[1] != 0,
		MinMapQ:  int(header[2]),
		MinBaseQ: int(header[3]),
		Span:     int(header[4]),
		Tree:     NewProfileTree(0),
	}
	for i := 0; i < int(header[5]); i++ {
		var rec [4]uint32
		var count uint64
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return nil, errors.Wrapf(err, "summary profile %d", i)
		}
		if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
			return nil, errors.Wrapf(err, "summary profile %d", i)
		}
		p := Profile{int(rec[0]), int(rec[1]), int(rec[2]), int(rec[3])}
		s.Tree.AddCount(p, int(count))
	}
	return s, nil
}

// IndexWriter streams sites into the .pos format
type IndexWriter struct {
	w   *bufio.Writer
	buf [8]byte
}

// NewIndexWriter writes the .pos header
func NewIndexWriter(w io.Writer, minCov int) (*IndexWriter, error) {
	r := &IndexWriter{w: bufio.NewWriter(w)}
	if _, err := r.w.Write(posMagic[:]); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint32(r.buf[:4], uint32(minCov))
	if _, err := r.w.Write(r.buf[:4]); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *IndexWriter) record(a, b uint32) error {
	binary.LittleEndian.PutUint32(r.buf[:4], a)
	binary.LittleEndian.PutUint32(r.buf[4:], b)
	_, err := r.w.Write(r.buf[:])
	return err
}

// Contig starts a new contig whose first site, indexed or not, is at start
func (r *IndexWriter) Contig(name string, start int) error {
	if start < 0 || start >= contigMark {
		return errors.Errorf("position %d cannot be indexed", start)
	}
	if err := r.record(contigMark, uint32(len(name))); err != nil {
		return err
	}
	if _, err := r.w.WriteString(name); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(r.buf[:4], uint32(start))
	_, err := r.w.Write(r.buf[:4])
	return err
}

// Site appends a site of the current contig
func (r *IndexWriter) Site(pos, id int) error {
	if pos < 0 || pos >= contigMark {
		return errors.Errorf("position %d cannot be indexed", pos)
	}
	return r.record(uint32(pos), uint32(id))
}

// Flush writes out buffered records
func (r *IndexWriter) Flush() error {
	return r.w.Flush()
}

// IndexReader replays a .pos stream as records, resolving profile ids
type IndexReader struct {
	MinCov   int
	r        *bufio.Reader
	closer   io.Closer
	profiles []Profile
	contig   string
	buf      [8]byte
}

// NewIndexReader reads the .pos header from r
func NewIndexReader(r io.Reader, profiles []Profile) (*IndexReader, error) {
	ir := &IndexReader{r: bufio.NewReader(r), profiles: profiles}
	if _, err := io.ReadFull(ir.r, ir.buf[:]); err != nil {
		return nil, errors.Wrap(err, "index header")
	}
	var magic [4]byte
	copy(magic[:], ir.buf[:4])
	if magic != posMagic {
		return nil, errors.Errorf("not a position index (tag %q)", magic[:])
	}
	ir.MinCov = int(binary.LittleEndian.Uint32(ir.buf[4:]))
	return ir, nil
}

// OpenIndex opens a .pos file
func OpenIndex(filename string, profiles []Profile) (*IndexReader, error) {
	fh, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, filename)
	}
	ir, err := NewIndexReader(fh, profiles)
	if err != nil {
		fh.Close()
		return nil, errors.Wrap(err, filename)
	}
	ir.closer = fh
	return ir, nil
}

// Read returns the next record
func (r *IndexReader) Read() (Record, error) {
	if _, err := io.ReadFull(r.r, r.buf[:]); err != nil {
		if err == io.EOF {
			return Record{}, io.EOF
		}
		return Record{}, errors.Wrap(err, "truncated index")
	}
	a := binary.LittleEndian.Uint32(r.buf[:4])
	b := binary.LittleEndian.Uint32(r.buf[4:])
	if a == contigMark {
		name := make([]byte, b)
		if _, err := io.ReadFull(r.r, name); err != nil {
			return Record{}, errors.Wrap(err, "truncated contig name")
		}
		if _, err := io.ReadFull(r.r, r.buf[:4]); err != nil {
			return Record{}, errors.Wrap(err, "truncated contig start")
		}
		r.contig = string(name)
		start := int(binary.LittleEndian.Uint32(r.buf[:4]))
		return Record{Contig: r.contig, Header: true, Start: start}, nil
	}
	if int(b) >= len(r.profiles) {
		return Record{}, errors.Errorf("profile id %d out of %d", b, len(r.profiles))
	}
	return Record{Contig: r.contig, Site: Site{Pos: int(a), Profile: r.profiles[b]}}, nil
}

// Close releases the file
func (r *IndexReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
