package historytest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/pescuma/pushguard/lib/history"
	"github.com/pescuma/pushguard/lib/model"
)

// ID returns a stable object id for a readable name.
func ID(name string) model.ObjectID {
	sum := sha1.Sum([]byte(name))
	return model.ObjectID(hex.EncodeToString(sum[:]))
}

// Calls counts the requests a MemoryProvider received.
type Calls struct {
	ListRefs       int
	CommitsBetween int
	Changes        int
	BlobSizes      int
}

// MemoryProvider is an in-memory repository for tests.
type MemoryProvider struct {
	mutex   sync.Mutex
	parents map[model.ObjectID][]model.ObjectID
	times   map[model.ObjectID]time.Time
	changes map[model.ObjectID][]model.Change
	sizes   map[model.ObjectID]int64
	refs    []model.Ref

	calls          Calls
	sizeRequests   [][]model.ObjectID
	changeRequests [][]model.ObjectID

	// Fail makes every request return this error.
	Fail error
}

var _ history.Provider = (*MemoryProvider)(nil)
var _ history.RevisionProvider = (*MemoryProvider)(nil)

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		parents: make(map[model.ObjectID][]model.ObjectID),
		times:   make(map[model.ObjectID]time.Time),
		changes: make(map[model.ObjectID][]model.Change),
		sizes:   make(map[model.ObjectID]int64),
	}
}

// AddCommit adds a commit dated after every commit added before it.
func (p *MemoryProvider) AddCommit(id model.ObjectID, parents ...model.ObjectID) *MemoryProvider {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.parents[id] = parents
	p.times[id] = time.Unix(int64(len(p.times)+1), 0)
	return p
}

func (p *MemoryProvider) AddChanges(commit model.ObjectID, changes ...model.Change) *MemoryProvider {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.changes[commit] = append(p.changes[commit], changes...)
	return p
}

func (p *MemoryProvider) AddBlob(id model.ObjectID, size int64) *MemoryProvider {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.sizes[id] = size
	return p
}

func (p *MemoryProvider) SetRef(name string, target model.ObjectID) *MemoryProvider {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.refs = lo.Reject(p.refs, func(r model.Ref, _ int) bool { return r.Name == name })
	p.refs = append(p.refs, model.Ref{Name: name, Target: target})
	return p
}

func (p *MemoryProvider) Calls() Calls {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.calls
}

// BlobSizeRequests returns the ids of each BlobSizes call, in order.
func (p *MemoryProvider) BlobSizeRequests() [][]model.ObjectID {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.sizeRequests
}

// ChangeRequests returns the commits of each Changes call, in order.
func (p *MemoryProvider) ChangeRequests() [][]model.ObjectID {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.changeRequests
}

func (p *MemoryProvider) ListRefs(context.Context) ([]model.Ref, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.calls.ListRefs++
	if p.Fail != nil {
		return nil, p.Fail
	}

	return append([]model.Ref(nil), p.refs...), nil
}

func (p *MemoryProvider) CommitsBetween(_ context.Context, req *history.RangeRequest) ([]model.Commit, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.calls.CommitsBetween++
	if p.Fail != nil {
		return nil, p.Fail
	}

	return history.Walk(p.lookup, req)
}

func (p *MemoryProvider) lookup(id model.ObjectID) (history.CommitInfo, error) {
	ps, ok := p.parents[id]
	if !ok {
		return history.CommitInfo{}, errors.Wrapf(history.ErrCommitNotFound, "%v", id)
	}
	return history.CommitInfo{Parents: ps, Time: p.times[id]}, nil
}

func (p *MemoryProvider) Changes(_ context.Context, commits []model.Commit, maxPerCommit int) (map[model.ObjectID][]model.Change, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.calls.Changes++
	p.changeRequests = append(p.changeRequests, lo.Map(commits, func(c model.Commit, _ int) model.ObjectID { return c.ID }))
	if p.Fail != nil {
		return nil, p.Fail
	}

	result := make(map[model.ObjectID][]model.Change, len(commits))
	for _, c := range commits {
		changes := p.changes[c.ID]
		if maxPerCommit > 0 && len(changes) > maxPerCommit {
			changes = changes[:maxPerCommit]
		}
		result[c.ID] = append([]model.Change(nil), changes...)
	}
	return result, nil
}

func (p *MemoryProvider) BlobSizes(_ context.Context, ids []model.ObjectID) (map[model.ObjectID]int64, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.calls.BlobSizes++
	p.sizeRequests = append(p.sizeRequests, append([]model.ObjectID(nil), ids...))
	if p.Fail != nil {
		return nil, p.Fail
	}

	result := make(map[model.ObjectID]int64, len(ids))
	for _, id := range ids {
		if size, ok := p.sizes[id]; ok {
			result[id] = size
		}
	}
	return result, nil
}

// ResolveRevision accepts full ref names, branch or tag names and commit ids.
func (p *MemoryProvider) ResolveRevision(_ context.Context, rev string) (model.ObjectID, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, name := range []string{rev, model.BranchPrefix + rev, model.TagPrefix + rev} {
		ref, ok := lo.Find(p.refs, func(r model.Ref) bool { return r.Name == name })
		if ok {
			return ref.Target, nil
		}
	}

	if _, ok := p.parents[model.ObjectID(rev)]; ok {
		return model.ObjectID(rev), nil
	}

	return "", errors.Errorf("unknown revision: %v", rev)
}

// MergeBase returns the closest ancestor of b that is also an ancestor of a.
func (p *MemoryProvider) MergeBase(_ context.Context, a, b model.ObjectID) (model.ObjectID, bool, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	fromA := p.ancestors(a)
	for _, id := range p.ancestorsInOrder(b) {
		if fromA[id] {
			return id, true, nil
		}
	}
	return "", false, nil
}

func (p *MemoryProvider) ancestors(id model.ObjectID) map[model.ObjectID]bool {
	return lo.Associate(p.ancestorsInOrder(id), func(id model.ObjectID) (model.ObjectID, bool) {
		return id, true
	})
}

func (p *MemoryProvider) ancestorsInOrder(id model.ObjectID) []model.ObjectID {
	var result []model.ObjectID
	seen := map[model.ObjectID]bool{id: true}
	queue := []model.ObjectID{id}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		result = append(result, id)

		for _, parent := range p.parents[id] {
			if !seen[parent] {
				seen[parent] = true
				queue = append(queue, parent)
			}
		}
	}

	return result
}
