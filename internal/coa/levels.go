package coa

import (
	"fmt"
	"strconv"
)

// Level identifies one of the four ranks of the chart of accounts.
type Level string

const (
	LevelGroup   Level = "group"
	LevelGL      Level = "gl"
	LevelMoein   Level = "moein"
	LevelTafsili Level = "tafsili"
)

// levelSpec is the per-level capability table: code width, the first code in
// the level's band, and how the generation scope is keyed. Changing a width
// here is the single configuration point for the numbering convention.
type levelSpec struct {
	width       int
	start       int64
	parentLevel Level // empty when the level has no parent
	typeScoped  bool  // tafsili: codes are unique per tafsili type
}

var levelSpecs = map[Level]levelSpec{
	LevelGroup:   {width: 1, start: 1},
	LevelGL:      {width: 2, start: 10, parentLevel: LevelGroup},
	LevelMoein:   {width: 4, start: 1001, parentLevel: LevelGL},
	LevelTafsili: {width: 4, start: 1001, typeScoped: true},
}

func (l Level) spec() (levelSpec, bool) {
	s, ok := levelSpecs[l]
	return s, ok
}

// formatCode renders a numeric code value at the level's width. The width is
// a padding minimum, not a cap: when a band outgrows it the code simply gains
// a digit ("99" is followed by "100") and generation continues.
func (s levelSpec) formatCode(value int64) string {
	return fmt.Sprintf("%0*d", s.width, value)
}

// nextAfter returns the code following max, or the start code when the scope
// holds no parsable codes yet.
func (s levelSpec) nextAfter(max string) string {
	if max == "" {
		return s.formatCode(s.start)
	}
	value, err := strconv.ParseInt(max, 10, 64)
	if err != nil {
		return s.formatCode(s.start)
	}
	return s.formatCode(value + 1)
}

// CodeScope keys a next-code query: the parent id for gl/moein, the tafsili
// type for tafsili, nothing for group.
type CodeScope struct {
	ParentID    int64
	TafsiliType TafsiliType
}
