package gateway

import (
	"fmt"
	"net/http"
	"strings"
)

type Class int

const (
	ClassProtected Class = iota
	ClassPublic
	ClassRefresh
)

func (c Class) String() string {
	switch c {
	case ClassPublic:
		return "public"
	case ClassRefresh:
		return "refresh"
	default:
		return "protected"
	}
}

const anyMethod = "*"

// routeNode is one path segment. A rule stored at a node matches that path
// and everything below it; an exact rule matches only the node itself.
type routeNode struct {
	children map[string]*routeNode
	prefix   map[string]Class
	exact    map[string]Class
}

func newRouteNode() *routeNode {
	return &routeNode{children: map[string]*routeNode{}}
}

type routeTable struct {
	root *routeNode
}

// compileRoutes builds the classifier once. Public rules look like
// "GET /api/products" or "/api/auth/login" (any method).
func compileRoutes(refreshPath string, public []string) (*routeTable, error) {
	t := &routeTable{root: newRouteNode()}
	if refreshPath == "" {
		return nil, fmt.Errorf("gateway: refresh path is required")
	}
	t.insert(anyMethod, refreshPath, ClassRefresh, true)

	for _, rule := range public {
		method, path, err := parseRule(rule)
		if err != nil {
			return nil, err
		}
		t.insert(method, path, ClassPublic, false)
	}
	return t, nil
}

func parseRule(rule string) (method, path string, err error) {
	fields := strings.Fields(rule)
	switch len(fields) {
	case 1:
		method, path = anyMethod, fields[0]
	case 2:
		method, path = strings.ToUpper(fields[0]), fields[1]
	default:
		return "", "", fmt.Errorf("gateway: bad route rule %q", rule)
	}
	if !strings.HasPrefix(path, "/") {
		return "", "", fmt.Errorf("gateway: route %q must start with /", rule)
	}
	return method, path, nil
}

func segments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func (t *routeTable) insert(method, path string, class Class, exact bool) {
	n := t.root
	for _, seg := range segments(path) {
		child, ok := n.children[seg]
		if !ok {
			child = newRouteNode()
			n.children[seg] = child
		}
		n = child
	}
	if exact {
		if n.exact == nil {
			n.exact = map[string]Class{}
		}
		n.exact[method] = class
		return
	}
	if n.prefix == nil {
		n.prefix = map[string]Class{}
	}
	n.prefix[method] = class
}

func lookup(m map[string]Class, method string) (Class, bool) {
	if c, ok := m[method]; ok {
		return c, true
	}
	c, ok := m[anyMethod]
	return c, ok
}

// Classify returns the class of the longest matching rule. Anything
// unmatched is protected.
func (t *routeTable) Classify(method, path string) Class {
	if method == "" {
		method = http.MethodGet
	}
	class := ClassProtected

	n := t.root
	if c, ok := lookup(n.prefix, method); ok {
		class = c
	}
	for _, seg := range segments(path) {
		child, ok := n.children[seg]
		if !ok {
			return class
		}
		n = child
		if c, ok := lookup(n.prefix, method); ok {
			class = c
		}
	}
	if c, ok := lookup(n.exact, method); ok {
		return c
	}
	return class
}
