package galaxy

import (
	"sort"
	"strconv"
	"strings"
)

// CompareVersions compares two Galaxy tool versions such as "2.4.1" or
// "1.0.0+galaxy2". Numeric segments compare numerically, others
// lexically; a missing segment sorts first. It returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	as, bs := versionSegments(a), versionSegments(b)
	for i := 0; i < len(as) || i < len(bs); i++ {
		if i >= len(as) {
			return -1
		}
		if i >= len(bs) {
			return 1
		}
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return 0
}

func versionSegments(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == '.' || r == '+' || r == '-' || r == '_'
	})
}

func compareSegment(a, b string) int {
	an, aErr := strconv.Atoi(a)
	bn, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aErr == nil:
		return 1
	case bErr == nil:
		return -1
	}
	return strings.Compare(a, b)
}

// LatestTools keeps only the newest version of each tool name, preserving
// the order in which names first appear.
func LatestTools(tools []ToolSummary) []ToolSummary {
	index := map[string]int{}
	out := make([]ToolSummary, 0, len(tools))
	for _, t := range tools {
		i, seen := index[t.Name]
		if !seen {
			index[t.Name] = len(out)
			out = append(out, t)
			continue
		}
		if CompareVersions(t.Version, out[i].Version) > 0 {
			out[i] = t
		}
	}
	return out
}

// SortTools orders tools by name, then newest version first.
func SortTools(tools []ToolSummary) {
	sort.SliceStable(tools, func(i, j int) bool {
		if tools[i].Name != tools[j].Name {
			return strings.ToLower(tools[i].Name) < strings.ToLower(tools[j].Name)
		}
		return CompareVersions(tools[i].Version, tools[j].Version) > 0
	})
}
