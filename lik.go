/*
 *  lik.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/16/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"encoding/json"
	"io/ioutil"

	"github.com/kshedden/gonpy"
	"github.com/pkg/errors"
)

// LikTable holds the single-site likelihoods of every distinct profile, in
// profile id order, with the single-site result they were computed at
type LikTable struct {
	Result *Result
	Terms  []SiteTerms
}

// NewLikTable evaluates the site terms of all profiles at the epsilon of res
func NewLikTable(m *Model, profiles []Profile, res *Result) *LikTable {
	lt := &LikTable{Result: res, Terms: make([]SiteTerms, len(profiles))}
	for i, p := range profiles {
		lt.Terms[i] = m.Terms(p, res.Epsilon.Est)
	}
	return lt
}

// Cache maps profile keys to their site terms
func (r *LikTable) Cache(profiles []Profile) map[Key]SiteTerms {
	cache := make(map[Key]SiteTerms, len(profiles))
	for i, p := range profiles {
		cache[ProfileKey(p)] = r.Terms[i]
	}
	return cache
}

// Save writes the terms as an n x 2 .npy array and the result as json
func (r *LikTable) Save(npyfile, jsonfile string) error {
	data := make([]float64, 0, 2*len(r.Terms))
	for _, st := range r.Terms {
		data = append(data, st.L1, st.L2)
	}
	w, err := gonpy.NewFileWriter(npyfile)
	if err != nil {
		return errors.Wrap(err, npyfile)
	}
	w.Shape = []int{len(r.Terms), 2}
	if err = w.WriteFloat64(data); err != nil {
		return errors.Wrap(err, npyfile)
	}
	js, err := json.MarshalIndent(r.Result, "", "  ")
	if err != nil {
		return err
	}
	if err = ioutil.WriteFile(jsonfile, js, 0644); err != nil {
		return errors.Wrap(err, jsonfile)
	}
	log.Noticef("Site likelihoods written to `%s` and `%s`", npyfile, jsonfile)
	return nil
}

// LoadLikTable reads what Save wrote and checks it covers n profiles
func LoadLikTable(npyfile, jsonfile string, n int) (*LikTable, error) {
	rd, err := gonpy.NewFileReader(npyfile)
	if err != nil {
		return nil, errors.Wrap(err, npyfile)
	}
	if len(rd.Shape) != 2 || rd.Shape[0] != n || rd.Shape[1] != 2 {
		return nil, errors.Errorf("%s: shape %v does not match %d profiles", npyfile, rd.Shape, n)
	}
	data, err := rd.GetFloat64()
	if err != nil {
		return nil, errors.Wrap(err, npyfile)
	}
	js, err := ioutil.ReadFile(jsonfile)
	if err != nil {
		return nil, errors.Wrap(err, jsonfile)
	}
	lt := &LikTable{Result: &Result{}, Terms: make([]SiteTerms, n)}
	if err = json.Unmarshal(js, lt.Result); err != nil {
		return nil, errors.Wrap(err, jsonfile)
	}
	for i := range lt.Terms {
		lt.Terms[i] = SiteTerms{data[2*i], data[2*i+1]}
	}
	return lt, nil
}
