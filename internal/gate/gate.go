// Package gate decides which screen tree the app mounts for a session state.
package gate

import (
	"sync"

	"little-stars/internal/domain"
	"little-stars/internal/session"
)

// Tree is a top-level screen tree.
type Tree string

const (
	TreeAuth    Tree = "auth"
	TreeLoading Tree = "loading"
	TreeMain    Tree = "main"
)

// Screen names of each tree, in navigation order.
var (
	AuthScreens = []string{"Login"}
	MainScreens = []string{
		"Main",
		"Homework",
		"NoticeBoard",
		"Progress",
		"Learning",
		"Fees",
		"Notifications",
		"Profile",
		"Timetable",
		"Leaves",
		"Library",
	}
)

// Route selects the tree for a snapshot.
func Route(s session.Snapshot) Tree {
	switch s.Status {
	case domain.SessionAuthenticated:
		return TreeMain
	case domain.SessionAuthenticating:
		return TreeLoading
	default:
		return TreeAuth
	}
}

// Screens returns the screen names mounted for tree.
func Screens(tree Tree) []string {
	switch tree {
	case TreeMain:
		return append([]string(nil), MainScreens...)
	case TreeAuth:
		return append([]string(nil), AuthScreens...)
	}
	return nil
}

// Mounted is what the app currently renders. User is only set for TreeMain.
type Mounted struct {
	Tree    Tree
	User    *domain.User
	Screens []string
}

// Source is anything that publishes session snapshots.
type Source interface {
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
}

// Gate follows a session source and keeps the mounted tree in step with it.
type Gate struct {
	mu          sync.Mutex
	mounted     Mounted
	listeners   []func(Mounted)
	unsubscribe func()
}

func New(src Source) *Gate {
	g := &Gate{}
	g.unsubscribe = src.Subscribe(g.apply)
	return g
}

// Current returns the mounted tree.
func (g *Gate) Current() Mounted {
	g.mu.Lock()
	defer g.mu.Unlock()
	return copyMounted(g.mounted)
}

// OnChange registers fn for every change of the mounted tree or user.
func (g *Gate) OnChange(fn func(Mounted)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

// Close stops following the source.
func (g *Gate) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}

func (g *Gate) apply(s session.Snapshot) {
	next := Mounted{Tree: Route(s), Screens: Screens(Route(s))}
	if next.Tree == TreeMain {
		next.User = s.User.Clone()
	}

	g.mu.Lock()
	if g.mounted.Tree != "" && sameMount(g.mounted, next) {
		g.mu.Unlock()
		return
	}
	// replacing the struct drops every reference to the previous user
	g.mounted = next
	listeners := append([]func(Mounted){}, g.listeners...)
	g.mu.Unlock()

	for _, fn := range listeners {
		fn(copyMounted(next))
	}
}

func sameMount(a, b Mounted) bool {
	if a.Tree != b.Tree {
		return false
	}
	if (a.User == nil) != (b.User == nil) {
		return false
	}
	return a.User == nil || *a.User == *b.User
}

func copyMounted(m Mounted) Mounted {
	return Mounted{
		Tree:    m.Tree,
		User:    m.User.Clone(),
		Screens: append([]string(nil), m.Screens...),
	}
}
