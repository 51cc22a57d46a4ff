package ucm

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Encode renders m as comma-separated text, one row per line.
func Encode(m MatrixView) []byte {
	var buf bytes.Buffer
	for i := 0; i < m.n; i++ {
		for j := 0; j < m.n; j++ {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.FormatFloat(m.At(i, j), 'g', -1, 64))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Decode parses text produced by Encode. Empty input is the empty matrix.
// A token that is not a plain finite decimal number, a blank line before the
// last row, or a shape that is not square yields an error wrapping
// ErrMalformed.
func Decode(data []byte) (MatrixView, error) {
	r := bufio.NewReader(bytes.NewReader(data))
	var rows [][]float64

	for lineNo := 1; ; lineNo++ {
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return MatrixView{}, err
		}
		eof := errors.Is(err, io.EOF)
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if eof {
				break
			}
			return MatrixView{}, fmt.Errorf("%w: line %d is blank", ErrMalformed, lineNo)
		}
		fields := strings.Split(line, ",")
		row := make([]float64, len(fields))
		for j, f := range fields {
			v, perr := parseNumber(strings.TrimSpace(f))
			if perr != nil {
				return MatrixView{}, fmt.Errorf("%w: line %d field %d: %q", ErrMalformed, lineNo, j+1, f)
			}
			row[j] = v
		}
		rows = append(rows, row)
		if eof {
			break
		}
	}

	for i, row := range rows {
		if len(row) != len(rows) {
			return MatrixView{}, fmt.Errorf("%w: row %d has %d fields, want %d", ErrMalformed, i+1, len(row), len(rows))
		}
	}
	return NewMatrixView(rows), nil
}

// parseNumber accepts decimal notation only. Hex floats, digit separators
// and the NaN and Inf spellings are rejected before strconv sees them.
func parseNumber(tok string) (float64, error) {
	if tok == "" {
		return 0, strconv.ErrSyntax
	}
	for _, c := range tok {
		switch {
		case c >= '0' && c <= '9':
		case c == '+', c == '-', c == '.', c == 'e', c == 'E':
		default:
			return 0, strconv.ErrSyntax
		}
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, strconv.ErrRange
	}
	return v, nil
}
