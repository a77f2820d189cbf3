package report

import (
	"strings"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
)

// StateKind is the section the scanner is currently in.
type StateKind int

const (
	NoSection StateKind = iota
	InRank
	InPickup
)

func (k StateKind) String() string {
	switch k {
	case InRank:
		return "rank"
	case InPickup:
		return "pickup"
	default:
		return "none"
	}
}

// State is the scanner position. Rank is only meaningful for InRank, where
// RankNone marks the unranked section.
type State struct {
	Kind StateKind
	Rank models.Rank
}

// Section headings recognised by the scanner.
const (
	rankHeadingPrefix = "## "
	PickupHeading     = "## 本日のピックアップ"
	TrendHeading      = "## トレンド分析"
	UnrankedHeading   = "## ランク外"
)

// Transition returns the state after line and whether line was a section heading.
// Non-heading lines never change the state.
func Transition(s State, line string) (State, bool) {
	if strings.HasPrefix(line, PickupHeading) {
		return State{Kind: InPickup}, true
	}
	if strings.HasPrefix(line, TrendHeading) {
		return State{Kind: NoSection}, true
	}
	if rank, ok := rankHeading(line); ok {
		return State{Kind: InRank, Rank: rank}, true
	}
	return s, false
}

func rankHeading(line string) (models.Rank, bool) {
	if !strings.HasPrefix(line, rankHeadingPrefix) {
		return models.RankNone, false
	}
	if strings.HasPrefix(line, UnrankedHeading) {
		return models.RankNone, true
	}
	rest := line[len(rankHeadingPrefix):]
	for _, r := range models.Ranks {
		if strings.HasPrefix(rest, string(r)+" ") {
			return r, true
		}
	}
	return models.RankNone, false
}

func isHeading(line string) bool {
	_, ok := Transition(State{}, line)
	return ok
}
