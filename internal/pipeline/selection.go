package pipeline

import "slices"

type selectionKind uint8

const (
	selectAny selectionKind = iota
	selectOne
	selectMany
)

// Selection is a categorical filter value: nothing, a single value, or a set.
// The zero value selects everything.
type Selection struct {
	kind   selectionKind
	values []string
	set    map[string]struct{}
}

func Any() Selection {
	return Selection{}
}

func One(value string) Selection {
	if value == "" {
		return Any()
	}
	return Selection{kind: selectOne, values: []string{value}}
}

// Many selects any of values. Blank entries are ignored and an empty set is Any.
func Many(values ...string) Selection {
	set := make(map[string]struct{}, len(values))
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, dup := set[v]; dup {
			continue
		}
		set[v] = struct{}{}
		kept = append(kept, v)
	}
	if len(kept) == 0 {
		return Any()
	}
	return Selection{kind: selectMany, values: kept, set: set}
}

// Of picks One or Many depending on how many values were supplied.
func Of(values ...string) Selection {
	if len(values) == 1 {
		return One(values[0])
	}
	return Many(values...)
}

func (s Selection) IsAny() bool {
	return s.kind == selectAny
}

func (s Selection) Values() []string {
	return slices.Clone(s.values)
}

func (s Selection) Matches(value string) bool {
	switch s.kind {
	case selectOne:
		return value == s.values[0]
	case selectMany:
		_, ok := s.set[value]
		return ok
	default:
		return true
	}
}
