package history

import (
	"time"

	"github.com/oleiade/lane/v2"
	"github.com/pkg/errors"

	"github.com/pescuma/pushguard/lib/model"
)

// CommitInfo is what Walk needs to know about a commit.
type CommitInfo struct {
	Parents []model.ObjectID
	// Time orders the walk: newer commits are visited first.
	Time time.Time
}

// LookupFunc returns a commit, or ErrCommitNotFound.
type LookupFunc func(id model.ObjectID) (CommitInfo, error)

// walkSlop is how many uninteresting commits older than every new commit are still walked
// before giving up, to survive a few commits with skewed clocks.
const walkSlop = 5

type walkNode struct {
	id            model.ObjectID
	info          CommitInfo
	uninteresting bool
	processed     bool
}

type walker struct {
	lookup LookupFunc
	nodes  map[model.ObjectID]*walkNode
	queue  *lane.PriorityQueue[model.ObjectID, int64]

	// interesting nodes waiting in the queue
	pending int
}

// Walk computes the commits reachable from req.Includes and not reachable from req.Excludes,
// newest first.
//
// Includes and excludes are walked together, newest commit first. Commits reached from an
// exclude are uninteresting and so are all their parents. The walk stops once only
// uninteresting commits older than every new commit remain, so only the history near the new
// commits is read. Excludes unknown to lookup are ignored.
func Walk(lookup LookupFunc, req *RangeRequest) ([]model.Commit, error) {
	if req.Empty() {
		return nil, nil
	}

	w := &walker{
		lookup: lookup,
		nodes:  make(map[model.ObjectID]*walkNode),
		queue:  lane.NewMaxPriorityQueue[model.ObjectID, int64](),
	}

	for _, id := range req.Excludes {
		err := w.add(id, true)
		if err != nil {
			return nil, err
		}
	}
	for _, id := range req.Includes {
		err := w.add(id, false)
		if err != nil {
			return nil, err
		}
	}

	var output []*walkNode
	var oldest int64
	slop := walkSlop

	for {
		id, when, ok := w.queue.Pop()
		if !ok {
			break
		}

		n := w.nodes[id]

		if w.pending == 0 {
			if len(output) == 0 {
				break
			}

			if when < oldest {
				slop--
				if slop <= 0 {
					break
				}
			} else {
				slop = walkSlop
			}
		} else {
			slop = walkSlop
		}

		n.processed = true
		if !n.uninteresting {
			w.pending--
		}

		for _, p := range n.info.Parents {
			err := w.add(p, n.uninteresting)
			if err != nil {
				return nil, err
			}
		}

		if !n.uninteresting {
			output = append(output, n)
			if len(output) == 1 || when < oldest {
				oldest = when
			}
		}
	}

	result := make([]model.Commit, 0, len(output))
	for _, n := range output {
		if !n.uninteresting {
			result = append(result, model.NewCommit(n.id, n.info.Parents...))
		}
	}

	return result, nil
}

func (w *walker) add(id model.ObjectID, uninteresting bool) error {
	if n, ok := w.nodes[id]; ok {
		if uninteresting {
			w.markUninteresting(n)
		}
		return nil
	}

	info, err := w.lookup(id)
	if uninteresting && errors.Is(err, ErrCommitNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "error walking %v", id)
	}

	w.nodes[id] = &walkNode{
		id:            id,
		info:          info,
		uninteresting: uninteresting,
	}
	w.queue.Push(id, info.Time.UnixNano())
	if !uninteresting {
		w.pending++
	}

	return nil
}

// markUninteresting flags n and every known ancestor of it.
func (w *walker) markUninteresting(n *walkNode) {
	stack := []*walkNode{n}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.uninteresting {
			continue
		}
		n.uninteresting = true

		if !n.processed {
			// Its parents get the flag when it leaves the queue
			w.pending--
			continue
		}

		for _, p := range n.info.Parents {
			if pn, ok := w.nodes[p]; ok {
				stack = append(stack, pn)
			}
		}
	}
}
