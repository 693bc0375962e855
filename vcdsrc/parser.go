package vcdsrc

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// header is the result of scanning a VCD file's declaration section: every
// identifier code's hierarchical path and declared width.
type header struct {
	codeWidth map[string]int
	pathCode  map[string]string // dot-separated path -> identifier code
}

// change is one value-change event: at a given simulation time, identifier
// code takes on value (a VCD scalar char, or a binary string for vectors).
type change struct {
	time  uint64
	code  string
	value string
}

// scanVCD reads r token by token (VCD is whitespace-delimited outside of
// string-valued commands this parser never needs), returning the header and
// the ordered stream of value changes. It does not interpret clocks or
// cycles: that is table.go's job.
func scanVCD(r io.Reader) (*header, []change, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	h := &header{codeWidth: map[string]int{}, pathCode: map[string]string{}}
	var scopeStack []string
	var changes []change
	var curTime uint64
	inDefinitions := true

	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}

	for {
		tok, ok := next()
		if !ok {
			break
		}
		switch {
		case inDefinitions && tok == "$scope":
			// $scope module NAME $end
			if _, ok := next(); !ok {
				return nil, nil, fmt.Errorf("vcdsrc: truncated $scope")
			}
			name, ok := next()
			if !ok {
				return nil, nil, fmt.Errorf("vcdsrc: truncated $scope")
			}
			scopeStack = append(scopeStack, normalizeName(name))
			if err := skipToEnd(next); err != nil {
				return nil, nil, err
			}
		case inDefinitions && tok == "$upscope":
			if len(scopeStack) == 0 {
				return nil, nil, fmt.Errorf("vcdsrc: $upscope with empty scope stack")
			}
			scopeStack = scopeStack[:len(scopeStack)-1]
			if err := skipToEnd(next); err != nil {
				return nil, nil, err
			}
		case inDefinitions && tok == "$var":
			// $var wire WIDTH ID NAME [bitrange] $end
			if _, ok := next(); !ok { // var type, e.g. "wire" / "reg"
				return nil, nil, fmt.Errorf("vcdsrc: truncated $var")
			}
			widthStr, ok := next()
			if !ok {
				return nil, nil, fmt.Errorf("vcdsrc: truncated $var")
			}
			width := 1
			fmt.Sscanf(widthStr, "%d", &width)
			id, ok := next()
			if !ok {
				return nil, nil, fmt.Errorf("vcdsrc: truncated $var")
			}
			name, ok := next()
			if !ok {
				return nil, nil, fmt.Errorf("vcdsrc: truncated $var")
			}
			name = stripBitRange(normalizeName(name))
			path := strings.Join(append(append([]string{}, scopeStack...), name), ".")
			h.codeWidth[id] = width
			h.pathCode[path] = id
			if err := skipToEnd(next); err != nil {
				return nil, nil, err
			}
		case inDefinitions && tok == "$enddefinitions":
			if err := skipToEnd(next); err != nil {
				return nil, nil, err
			}
			inDefinitions = false
		case inDefinitions && strings.HasPrefix(tok, "$"):
			// $date, $version, $timescale, $comment, etc: skip the body.
			if err := skipToEnd(next); err != nil {
				return nil, nil, err
			}
		case !inDefinitions && strings.HasPrefix(tok, "#"):
			var t uint64
			fmt.Sscanf(tok[1:], "%d", &t)
			curTime = t
		case !inDefinitions && tok == "$dumpvars", !inDefinitions && tok == "$dumpon", !inDefinitions && tok == "$dumpoff", !inDefinitions && tok == "$end":
			// no-op markers
		case !inDefinitions && (tok[0] == 'b' || tok[0] == 'B'):
			val := tok[1:]
			id, ok := next()
			if !ok {
				return nil, nil, fmt.Errorf("vcdsrc: truncated vector value change")
			}
			changes = append(changes, change{time: curTime, code: id, value: val})
		case !inDefinitions:
			// scalar value change: "0!" / "1!" / "x!" / "z!" (no whitespace
			// between value and id per the VCD grammar).
			changes = append(changes, change{time: curTime, code: tok[1:], value: tok[:1]})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("vcdsrc: scanning trace: %w", err)
	}
	return h, changes, nil
}

func skipToEnd(next func() (string, bool)) error {
	for {
		tok, ok := next()
		if !ok {
			return fmt.Errorf("vcdsrc: unterminated command, expected $end")
		}
		if tok == "$end" {
			return nil
		}
	}
}

// normalizeName canonicalises escaped identifiers: a leading backslash is
// stripped, and a doubled backslash canonicalises to one.
func normalizeName(s string) string {
	if strings.HasPrefix(s, "\\") {
		s = s[1:]
	}
	return strings.ReplaceAll(s, "\\\\", "\\")
}

// stripBitRange removes a trailing "[msb:lsb]" or "[n]" VCD name suffix,
// since this parser samples whole variables and leaves bit indexing to the
// caller.
func stripBitRange(s string) string {
	if i := strings.IndexByte(s, '['); i >= 0 {
		return s[:i]
	}
	return s
}
