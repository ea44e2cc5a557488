package model

type Commit struct {
	ID      ObjectID
	Parents []ObjectID
}

func NewCommit(id ObjectID, parents ...ObjectID) Commit {
	return Commit{
		ID:      id,
		Parents: parents,
	}
}

func (c Commit) FirstParent() (ObjectID, bool) {
	if len(c.Parents) == 0 {
		return "", false
	}
	return c.Parents[0], true
}

func (c Commit) IsMerge() bool {
	return len(c.Parents) > 1
}
