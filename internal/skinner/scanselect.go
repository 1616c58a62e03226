package skinner

import (
	"time"

	"github.com/google/uuid"

	"kushql/internal/catalog"
	"kushql/internal/rowio"
)

// Predicate is one independently reorderable conjunctive clause; Call
// evaluates it against a row, returning false as soon as any clause in
// the chosen order fails (short-circuiting exactly like the original's
// generated selection loop).
type Predicate func(row rowio.Row) (bool, error)

// ScanSelect adaptively reorders a conjunction of predicates across
// episodes of rows, following
// original_source/execution/skinner_scan_select.cc's "permutable"
// variant: the IR for each predicate never changes (this port evaluates
// predicates as plain Go closures rather than recompiling per
// permutation — see DESIGN.md), only the order they're tried in varies,
// chosen by a UCB1 bandit over orderings and scored by rows rejected per
// microsecond spent.
type ScanSelect struct {
	child      rowio.Operator
	predicates []Predicate
	episodeLen int

	// RunID tags this adaptive execution for tracing/debugging,
	// following the original's per-query execution-trace identifier.
	RunID uuid.UUID
}

const defaultEpisodeLength = 256

func NewScanSelect(child rowio.Operator, predicates []Predicate) *ScanSelect {
	return &ScanSelect{child: child, predicates: predicates, episodeLen: defaultEpisodeLength, RunID: uuid.New()}
}

func (s *ScanSelect) Schema() []catalog.Type { return s.child.Schema() }

func (s *ScanSelect) Execute(out rowio.Sink) error {
	if len(s.predicates) == 0 {
		return s.child.Execute(out)
	}

	orders := candidateOrders(len(s.predicates))
	bandit := NewUCB1(len(orders))

	rows, err := rowio.MaterializeRows(s.child)
	if err != nil {
		return err
	}

	for start := 0; start < len(rows); start += s.episodeLen {
		end := start + s.episodeLen
		if end > len(rows) {
			end = len(rows)
		}
		episode := rows[start:end]

		arm := bandit.Select()
		order := orders[arm]

		begin := time.Now()
		rejected := 0
		for _, row := range episode {
			ok, err := s.evalOrder(order, row)
			if err != nil {
				return err
			}
			if !ok {
				rejected++
				continue
			}
			if err := out.Consume(row); err != nil {
				return err
			}
		}
		elapsed := time.Since(begin).Seconds() * 1e6
		if elapsed <= 0 {
			elapsed = 1
		}
		bandit.Update(arm, float64(rejected)/elapsed)
	}
	return nil
}

func (s *ScanSelect) evalOrder(order []int, row rowio.Row) (bool, error) {
	for _, idx := range order {
		ok, err := s.predicates[idx](row)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
