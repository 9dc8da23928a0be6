package searcher

import "math"

// DefaultUCB1C is sqrt(2), the classic UCB1 exploration constant.
const DefaultUCB1C = math.Sqrt2

// Stats is the view of a node a selection policy scores.
type Stats struct {
	Visits int
	Value  float64
	Prior  float64
}

func (s Stats) Q() float64 {
	if s.Visits == 0 {
		return 0
	}
	return s.Value / float64(s.Visits)
}

type SelectionPolicy interface {
	Score(parent, child Stats) float64
}

// UCB1 scores Q + C*sqrt(ln N / n). Unvisited children score +Inf.
type UCB1 struct {
	C float64
}

func (u UCB1) Score(parent, child Stats) float64 {
	// Prioritize unexplored nodes
	if child.Visits == 0 {
		return math.Inf(1)
	}
	return child.Q() + u.C*math.Sqrt(math.Log(float64(parent.Visits))/float64(child.Visits))
}

// PUCT scores Q + C*P*sqrt(N)/(1+n).
type PUCT struct {
	C float64
}

func (p PUCT) Score(parent, child Stats) float64 {
	return child.Q() + p.C*child.Prior*math.Sqrt(float64(parent.Visits))/float64(1+child.Visits)
}
