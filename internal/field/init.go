// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package field

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vk/pixsimgo/internal/units"
	"gonum.org/v1/gonum/spatial/r3"
)

// ReadINIT parses a field in the INIT text format:
//
//	<free text header line>
//	<2 tokens> <3 tokens> <3 tokens>        ignored
//	<thickness> <xsize> <ysize>             micrometres
//	<4 tokens>                              ignored
//	<nx> <ny> <nz> <1 token>
//	<i> <j> <k> <v1> [<v2> <v3>]            one record per cell, 1-based
//
// Values are returned as written; callers apply their own unit.
func ReadINIT(r io.Reader, components int) (*Data, error) {
	br := bufio.NewReader(r)
	if _, err := br.ReadString('\n'); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)
	tok := &tokens{sc: sc}

	tok.skip(8)
	thickness := tok.float("thickness")
	xsize := tok.float("x size")
	ysize := tok.float("y size")
	tok.skip(4)
	nx := tok.int("x dimension")
	ny := tok.int("y dimension")
	nz := tok.int("z dimension")
	tok.skip(1)
	if tok.err != nil {
		return nil, tok.err
	}

	um, _ := units.Factor("um")
	data := &Data{
		Dimensions: [3]int{nx, ny, nz},
		Size:       r3.Vec{X: xsize * um, Y: ysize * um, Z: thickness * um},
		Components: components,
	}
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%dx%d", nx, ny, nz)
	}
	data.Values = make([]float64, data.Cells()*components)
	seen := make([]bool, data.Cells())

	records := 0
	for tok.next() {
		i := tok.atoi(tok.current, "x index")
		j := tok.int("y index")
		k := tok.int("z index")
		if tok.err != nil {
			return nil, fmt.Errorf("record %d: %w", records+1, tok.err)
		}
		if i < 1 || i > nx || j < 1 || j > ny || k < 1 || k > nz {
			return nil, fmt.Errorf("record %d: index (%d, %d, %d) outside %dx%dx%d grid", records+1, i, j, k, nx, ny, nz)
		}
		cell := ((i-1)*ny+(j-1))*nz + (k - 1)
		if seen[cell] {
			return nil, fmt.Errorf("record %d: cell (%d, %d, %d) defined twice", records+1, i, j, k)
		}
		seen[cell] = true
		for c := 0; c < components; c++ {
			data.Values[cell*components+c] = tok.float("value")
		}
		if tok.err != nil {
			return nil, fmt.Errorf("record %d: %w", records+1, tok.err)
		}
		records++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if records != data.Cells() {
		return nil, fmt.Errorf("expected %d records for %dx%dx%d grid, found %d", data.Cells(), nx, ny, nz, records)
	}

	if err := data.Validate(); err != nil {
		return nil, err
	}
	return data, nil
}

// tokens reads whitespace separated words and keeps the first error.
type tokens struct {
	sc      *bufio.Scanner
	current string
	err     error
}

func (t *tokens) next() bool {
	if t.err != nil || !t.sc.Scan() {
		return false
	}
	t.current = t.sc.Text()
	return true
}

func (t *tokens) require(what string) bool {
	if t.next() {
		return true
	}
	if t.err == nil {
		t.err = fmt.Errorf("unexpected end of file reading %s", what)
	}
	return false
}

func (t *tokens) skip(n int) {
	for i := 0; i < n; i++ {
		t.require("header")
	}
}

func (t *tokens) float(what string) float64 {
	if !t.require(what) {
		return 0
	}
	v, err := strconv.ParseFloat(t.current, 64)
	if err != nil {
		t.err = fmt.Errorf("invalid %s %q", what, t.current)
	}
	return v
}

func (t *tokens) int(what string) int {
	if !t.require(what) {
		return 0
	}
	return t.atoi(t.current, what)
}

func (t *tokens) atoi(s, what string) int {
	if t.err != nil {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		t.err = fmt.Errorf("invalid %s %q", what, s)
	}
	return v
}
