package metrics

import (
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Playouts    int
	Terminals   int // playouts whose selection ended on a finished game
	Duration    time.Duration
	IsTreeReset bool
}

type MoveMetric struct {
	Step   int
	Player int // game.Player of the side that moved
	SearchMetric
}

type GameMetric struct {
	StartingPlayer int // Index of the agent that moved first
	Winner         int // game.Player, 0 on a draw
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

type Collector interface {
	Start()
	SetTreeReset(value bool)
	AddPlayout()
	AddTerminal()
	Complete() SearchMetric
}

type collector struct {
	startTime   time.Time
	playouts    atomic.Int32
	terminals   atomic.Int32
	isTreeReset atomic.Bool
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) SetTreeReset(value bool) {
	m.isTreeReset.Store(value)
}

func (m *collector) Start() {
	m.startTime = time.Now()
	m.playouts.Store(0)
	m.terminals.Store(0)
}

func (m *collector) AddPlayout() {
	m.playouts.Add(1)
}

func (m *collector) AddTerminal() {
	m.terminals.Add(1)
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		Duration:    time.Since(m.startTime),
		Playouts:    int(m.playouts.Load()),
		Terminals:   int(m.terminals.Load()),
		IsTreeReset: m.isTreeReset.Load(),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start()                  {}
func (m *dummyCollector) SetTreeReset(value bool) {}
func (m *dummyCollector) AddPlayout()             {}
func (m *dummyCollector) AddTerminal()            {}
func (m *dummyCollector) Complete() SearchMetric  { return SearchMetric{} }
