/*
 *  reader.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/04/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
)

// Record is either a contig header or a site of the current contig
type Record struct {
	Contig string
	Header bool
	// Start is the first position of the contig when positive, set on
	// headers by sources that know it ahead of the sites
	Start int
	Site
}

// SiteReader streams records sorted by position within each contig.
// Read returns io.EOF at the end of the stream.
type SiteReader interface {
	Read() (Record, error)
	Close() error
}

// ProfileReader parses the text profile format:
//
//	>contig
//	pos	A	C	G	T
type ProfileReader struct {
	Filename string
	reader   *bufio.Reader
	closer   io.Closer
	line     int
	contig   string
}

// NewProfileReader reads profiles from r
func NewProfileReader(r io.Reader) *ProfileReader {
	return &ProfileReader{Filename: "-", reader: bufio.NewReader(r)}
}

// OpenProfiles opens a profile file, gzipped or not
func OpenProfiles(filename string) (*ProfileReader, error) {
	fh, err := xopen.Ropen(filename)
	if err != nil {
		return nil, errors.Wrap(err, filename)
	}
	log.Noticef("Parse profiles `%s`", filename)
	r := NewProfileReader(fh)
	r.Filename = filename
	r.closer = fh
	return r, nil
}

// Read returns the next record
func (r *ProfileReader) Read() (Record, error) {
	for {
		row, err := r.reader.ReadString('\n')
		if err != nil && (err != io.EOF || row == "") {
			if err == io.EOF {
				return Record{}, io.EOF
			}
			return Record{}, errors.Wrap(err, r.Filename)
		}
		r.line++
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}
		if row[0] == '>' {
			r.contig = strings.TrimSpace(row[1:])
			return Record{Contig: r.contig, Header: true}, nil
		}
		return r.parseSite(row)
	}
}

func (r *ProfileReader) parseSite(row string) (Record, error) {
	words := strings.Fields(row)
	if len(words) != 5 {
		return Record{}, errors.Errorf("%s:%d: expect 5 fields, found %d",
			r.Filename, r.line, len(words))
	}
	rec := Record{Contig: r.contig}
	var err error
	if rec.Pos, err = strconv.Atoi(words[0]); err != nil {
		return Record{}, errors.Wrapf(err, "%s:%d: bad position", r.Filename, r.line)
	}
	for i := range rec.Profile {
		if rec.Profile[i], err = strconv.Atoi(words[i+1]); err != nil {
			return Record{}, errors.Wrapf(err, "%s:%d: bad count", r.Filename, r.line)
		}
	}
	if err = rec.Profile.Validate(); err != nil {
		return Record{}, errors.Wrapf(err, "%s:%d", r.Filename, r.line)
	}
	return rec, nil
}

// Close releases the underlying file
func (r *ProfileReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// WriteProfiles copies a record stream to w in the text profile format and
// returns the number of sites written
func WriteProfiles(w io.Writer, src SiteReader) (int, error) {
	bw := bufio.NewWriter(w)
	nsites := 0
	for {
		rec, err := src.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nsites, err
		}
		if rec.Header {
			fmt.Fprintf(bw, ">%s\n", rec.Contig)
			continue
		}
		fmt.Fprintf(bw, "%d\t%s\n", rec.Pos, rec.Profile)
		nsites++
	}
	return nsites, bw.Flush()
}
