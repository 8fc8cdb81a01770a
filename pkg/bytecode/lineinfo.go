package bytecode

import "fmt"

// LineInfo is one run of the chunk's debug line table: RunLength
// consecutive code bytes emitted at the same source position.
type LineInfo struct {
	Line      int // 1-based source line, 0 if unknown
	Column    int // 1-based source column, 0 if unknown
	RunLength int // number of code bytes covered by this run
}

// UnknownPosition is returned for offsets the line table does not cover.
var UnknownPosition = LineInfo{}

// IsUnknown returns true if the position has not been set.
func (l LineInfo) IsUnknown() bool {
	return l.Line == 0 && l.Column == 0
}

// String returns "line:column", or "?" for an unknown position.
func (l LineInfo) String() string {
	if l.IsUnknown() {
		return "?"
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// samePosition reports whether l starts at the given line and column.
func (l LineInfo) samePosition(line, column int) bool {
	return l.Line == line && l.Column == column
}
