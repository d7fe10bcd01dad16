package router

import (
	"fmt"
	"strings"

	"github.com/nexhop/gateway/internal/config"
	"github.com/nexhop/gateway/internal/util"
)

// noIndex marks the absence of a node or route reference.
const noIndex int32 = -1

// node is one segment of the routing trie. Nodes live in the table's
// arena slice and reference each other by index, so a rebuilt table is
// a plain value replacement with no pointer graph to tear down.
type node struct {
	// literal maps an exact segment string to a child node index.
	literal map[string]int32

	// param is the single parameter-segment child, or noIndex.
	param     int32
	paramName string

	// route is the index of the entry registered at this node, or
	// noIndex when the node is only an interior prefix.
	route int32
}

// Table is an immutable routing table built once from an ordered list
// of route entries. It is never mutated during serving; reloads build
// a new Table and publish it through a Handle.
type Table struct {
	nodes  []node
	routes []config.RouteEntry
}

// Param is one captured path parameter.
type Param struct {
	Name  string
	Value string
}

// Match is the result of a lookup: the matched entry, the captured
// parameters in pattern order, and the unmatched remainder of the
// request path.
type Match struct {
	Route     *config.RouteEntry
	Params    []Param
	Remainder string
}

// ParamMap returns the captured parameters as a map.
func (m *Match) ParamMap() map[string]string {
	if len(m.Params) == 0 {
		return nil
	}
	out := make(map[string]string, len(m.Params))
	for _, p := range m.Params {
		out[p.Name] = p.Value
	}
	return out
}

// Build constructs a Table from an ordered list of route entries.
// It rejects duplicate ids, patterns with empty segments, duplicate
// parameter names within one pattern, and conflicting registrations.
// Build fails atomically: on error no table is produced.
func Build(entries []config.RouteEntry) (*Table, error) {
	if err := config.ValidateEntries(entries); err != nil {
		return nil, err
	}

	t := &Table{
		nodes:  make([]node, 1, len(entries)*4+1),
		routes: make([]config.RouteEntry, len(entries)),
	}
	t.nodes[0] = newNode()
	copy(t.routes, entries)

	for i := range t.routes {
		if err := t.insert(int32(i)); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func newNode() node {
	return node{literal: make(map[string]int32), param: noIndex, route: noIndex}
}

// insert registers route i under its listen path pattern.
func (t *Table) insert(i int32) error {
	entry := &t.routes[i]
	cur := int32(0)

	for _, seg := range splitPath(entry.ListenPath) {
		if name, ok := paramName(seg); ok {
			if t.nodes[cur].param == noIndex {
				t.nodes = append(t.nodes, newNode())
				t.nodes[cur].param = int32(len(t.nodes) - 1)
				t.nodes[cur].paramName = name
			} else if t.nodes[cur].paramName != name {
				return util.NewConfigError("listen_path",
					fmt.Sprintf("route %s: parameter %q conflicts with existing parameter %q at the same position",
						entry.ID, name, t.nodes[cur].paramName))
			}
			cur = t.nodes[cur].param
			continue
		}

		next, ok := t.nodes[cur].literal[seg]
		if !ok {
			t.nodes = append(t.nodes, newNode())
			next = int32(len(t.nodes) - 1)
			t.nodes[cur].literal[seg] = next
		}
		cur = next
	}

	if t.nodes[cur].route != noIndex {
		return util.NewConfigError("listen_path",
			fmt.Sprintf("route %s: listen_path %q conflicts with route %s",
				entry.ID, entry.ListenPath, t.routes[t.nodes[cur].route].ID))
	}
	t.nodes[cur].route = i

	return nil
}

// Len returns the number of routes in the table.
func (t *Table) Len() int {
	return len(t.routes)
}

// Routes returns the table's route entries in registration order.
func (t *Table) Routes() []config.RouteEntry {
	out := make([]config.RouteEntry, len(t.routes))
	copy(out, t.routes)
	return out
}

// Lookup finds the route whose listen path is the deepest registered
// prefix of the request path. Literal segments win over a parameter
// segment at the same depth. The second return value is false when no
// route matches.
func (t *Table) Lookup(path string) (*Match, bool) {
	segs := splitPath(path)

	var best struct {
		route  int32
		depth  int
		params []Param
	}
	best.route = noIndex
	best.depth = -1

	var descend func(cur int32, pos int, params []Param)
	descend = func(cur int32, pos int, params []Param) {
		if r := t.nodes[cur].route; r != noIndex && pos > best.depth {
			best.route = r
			best.depth = pos
			best.params = append([]Param(nil), params...)
		}
		if pos == len(segs) {
			return
		}
		// Literal first: a literal match at a given depth is recorded
		// before the parameter branch can reach the same depth, and
		// deeper matches only ever replace shallower ones.
		if next, ok := t.nodes[cur].literal[segs[pos]]; ok {
			descend(next, pos+1, params)
		}
		if p := t.nodes[cur].param; p != noIndex {
			descend(p, pos+1, append(params, Param{Name: t.nodes[cur].paramName, Value: segs[pos]}))
		}
	}
	descend(0, 0, nil)

	if best.route == noIndex {
		return nil, false
	}

	return &Match{
		Route:     &t.routes[best.route],
		Params:    best.params,
		Remainder: joinRemainder(segs[best.depth:]),
	}, true
}

// splitPath splits a URL path into its non-empty segments.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// paramName reports whether seg is a named-parameter segment.
func paramName(seg string) (string, bool) {
	if strings.HasPrefix(seg, ":") && len(seg) > 1 {
		return seg[1:], true
	}
	return "", false
}

// joinRemainder rebuilds the unmatched path suffix.
func joinRemainder(segs []string) string {
	if len(segs) == 0 {
		return ""
	}
	return "/" + strings.Join(segs, "/")
}
