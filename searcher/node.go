package searcher

import (
	"gomoku/game"
	"gomoku/utils"
)

// node is owned by its parent; the root is owned by the MCTS. value is
// accumulated from the perspective of the player who moved into the node,
// so a parent picks the child that is best for itself.
type node struct {
	parent   *node
	prior    float64
	visits   int
	value    float64
	noised   bool
	moves    []game.Move
	children []*node
}

func newNode(parent *node, prior float64) *node {
	return &node{parent: parent, prior: prior}
}

func (n *node) isLeaf() bool {
	return len(n.children) == 0
}

// q is the mean backed-up value, 0 before the first visit.
func (n *node) q() float64 {
	if n.visits == 0 {
		return 0
	}
	return n.value / float64(n.visits)
}

func (n *node) stats() Stats {
	return Stats{Visits: n.visits, Value: n.value, Prior: n.prior}
}

// expand creates one child per move. A node is expanded at most once.
func (n *node) expand(moves []game.Move, priors []float64) {
	if !n.isLeaf() {
		panic("node is already expanded")
	}
	if len(moves) != len(priors) {
		panic("moves and priors differ in length")
	}
	n.moves = moves
	n.children = make([]*node, len(moves))
	for i, prior := range priors {
		n.children[i] = newNode(n, prior)
	}
}

// pickChild returns the child with the highest score; ties go to the
// earliest move in enumeration order.
func (n *node) pickChild(policy SelectionPolicy) (game.Move, *node) {
	if n.isLeaf() {
		panic("node has no children")
	}
	parent := n.stats()
	best := 0
	bestScore := policy.Score(parent, n.children[0].stats())
	for i := 1; i < len(n.children); i++ {
		score := policy.Score(parent, n.children[i].stats())
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return n.moves[best], n.children[best]
}

func (n *node) update(value float64) {
	n.visits++
	n.value += value
}

// backup propagates a leaf value, given for the player to move at the leaf,
// up to the root. The sign flips at every ply.
func (n *node) backup(value float64) {
	for node := n; node != nil; node = node.parent {
		value = -value
		node.update(value)
	}
}

func (n *node) child(move game.Move) *node {
	i := utils.FindIndex(n.moves, move)
	if i < 0 {
		return nil
	}
	return n.children[i]
}

// mostVisited is the robust child rule: max visits, first on ties.
func (n *node) mostVisited() game.Move {
	if n.isLeaf() {
		panic("node has no children")
	}
	best := 0
	for i, child := range n.children {
		if child.visits > n.children[best].visits {
			best = i
		}
	}
	return n.moves[best]
}
