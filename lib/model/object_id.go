package model

import (
	"strings"
)

// ObjectID is a git object name: 40 hex chars for SHA-1 repositories, 64 for SHA-256 ones.
type ObjectID string

const ZeroID ObjectID = "0000000000000000000000000000000000000000"

func (id ObjectID) String() string {
	return string(id)
}

func (id ObjectID) IsZero() bool {
	return id == "" || strings.Trim(string(id), "0") == ""
}

func (id ObjectID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

func IsObjectID(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}

	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}

	return true
}
