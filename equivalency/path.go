package equivalency

import (
	"fmt"
	"strconv"
	"strings"
)

// Path is the location of a node relative to the root of a comparison.
//
// Paths are immutable linked segments: a child shares its parent's segments
// and adds exactly one. The nil *Path is the root.
type Path struct {
	parent *Path
	name   string // member name or rendered key
	index  int    // collection index when kind == segmentIndex
	kind   segmentKind
}

type segmentKind int

const (
	segmentMember segmentKind = iota
	segmentIndex
	segmentKey
)

// Member returns the path of the named member below p.
func (p *Path) Member(name string) *Path {
	return &Path{parent: p, name: name, kind: segmentMember}
}

// Index returns the path of the collection element at i below p.
func (p *Path) Index(i int) *Path {
	return &Path{parent: p, index: i, kind: segmentIndex}
}

// Key returns the path of a non-string map key below p.
func (p *Path) Key(key any) *Path {
	return &Path{parent: p, name: fmt.Sprint(key), kind: segmentKey}
}

// IsRoot reports whether p addresses the root.
func (p *Path) IsRoot() bool {
	return p == nil
}

// Depth returns the number of segments in p.
func (p *Path) Depth() int {
	n := 0
	for s := p; s != nil; s = s.parent {
		n++
	}
	return n
}

// Name returns the last member name, or "" when p ends in an index.
func (p *Path) Name() string {
	if p == nil || p.kind == segmentIndex {
		return ""
	}
	return p.name
}

// String renders p as Orders[2].Customer.Name. The root renders as "".
func (p *Path) String() string {
	return p.render(true)
}

// Pattern renders p without collection indices, e.g. Orders.Customer.Name.
// Member selection matches against both forms.
func (p *Path) Pattern() string {
	return p.render(false)
}

func (p *Path) render(withIndices bool) string {
	if p == nil {
		return ""
	}
	segments := make([]*Path, 0, p.Depth())
	for s := p; s != nil; s = s.parent {
		segments = append(segments, s)
	}

	var b strings.Builder
	for i := len(segments) - 1; i >= 0; i-- {
		s := segments[i]
		switch s.kind {
		case segmentMember:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s.name)
		case segmentIndex:
			if withIndices {
				b.WriteByte('[')
				b.WriteString(strconv.Itoa(s.index))
				b.WriteByte(']')
			}
		case segmentKey:
			b.WriteByte('[')
			b.WriteString(s.name)
			b.WriteByte(']')
		}
	}
	return b.String()
}

// stripIndices removes [n] segments from a user-supplied path so that
// "Orders[0].ID" and "Orders.ID" select the same members.
func stripIndices(path string) string {
	if !strings.Contains(path, "[") {
		return path
	}
	var b strings.Builder
	for i := 0; i < len(path); i++ {
		if path[i] == '[' {
			end := strings.IndexByte(path[i:], ']')
			if end > 0 && isDigits(path[i+1:i+end]) {
				i += end
				continue
			}
		}
		b.WriteByte(path[i])
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
