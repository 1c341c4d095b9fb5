package lootbox

import (
	"errors"
	"fmt"
	"math/rand"
)

// GridSize is the fixed reveal grid. Cells without a reward are bombs.
const GridSize = 24

var (
	// ErrSessionOver means the session already ended (save, bomb or abandon).
	ErrSessionOver = errors.New("reveal session is over")
	// ErrNothingClaimed means save was called with an empty pot.
	ErrNothingClaimed = errors.New("nothing claimed yet")
	// ErrBoosterSpent means a single-use booster was already used this session.
	ErrBoosterSpent = errors.New("booster already spent this session")
)

// Cell is one grid position. Disabled marks a bomb defused by a bomb
// detector; it is flagged, never revealed.
type Cell struct {
	Reward   *Reward
	Revealed bool
	Disabled bool
}

// RevealResult reports one reveal.
type RevealResult struct {
	Bomb   bool
	Reward *Reward
}

// Session is one interactive reveal over a shuffled 24-cell grid. Revealing
// a bomb clears the claimed pot and ends the session; that is the designed
// negative outcome, not an error. An abandoned session discards the pot
// without side effects.
type Session struct {
	UserID string
	BoxID  string

	cells   [GridSize]Cell
	claimed []Reward
	ended   bool
	saved   bool

	usedDoubler  bool
	usedDetector bool
	rng          *rand.Rand
}

// NewSession shuffles the rewards into the grid.
func NewSession(userID, boxID string, rewards []Reward, rng *rand.Rand) (*Session, error) {
	if len(rewards) > GridSize {
		return nil, fmt.Errorf("%d rewards do not fit a %d-cell grid", len(rewards), GridSize)
	}

	s := &Session{UserID: userID, BoxID: boxID, rng: rng}

	positions := rng.Perm(GridSize)
	for i := range rewards {
		reward := rewards[i]
		s.cells[positions[i]].Reward = &reward
	}
	return s, nil
}

// Reveal opens one cell. A reward joins the claimed pot; a bomb empties the
// pot and ends the session.
func (s *Session) Reveal(index int) (*RevealResult, error) {
	if s.ended {
		return nil, ErrSessionOver
	}
	if index < 0 || index >= GridSize {
		return nil, fmt.Errorf("cell %d out of range", index)
	}
	cell := &s.cells[index]
	if cell.Revealed || cell.Disabled {
		return nil, fmt.Errorf("cell %d is already open", index)
	}

	cell.Revealed = true
	if cell.Reward == nil {
		s.claimed = nil
		s.ended = true
		return &RevealResult{Bomb: true}, nil
	}

	s.claimed = append(s.claimed, *cell.Reward)
	return &RevealResult{Reward: cell.Reward}, nil
}

// Save banks the claimed pot and ends the session. Requires at least one
// claimed reward.
func (s *Session) Save() ([]Reward, error) {
	if s.ended {
		return nil, ErrSessionOver
	}
	if len(s.claimed) == 0 {
		return nil, ErrNothingClaimed
	}
	s.ended = true
	s.saved = true
	return s.claimed, nil
}

// Abandon ends the session, discarding any unsaved rewards.
func (s *Session) Abandon() {
	if s.ended {
		return
	}
	s.ended = true
	s.claimed = nil
}

// UseTreasureMap returns the cell index of the highest-value still-hidden
// reward without revealing it. Stackable.
func (s *Session) UseTreasureMap() (int, error) {
	if s.ended {
		return -1, ErrSessionOver
	}

	best := -1
	var bestValue int64 = -1
	for i := range s.cells {
		cell := &s.cells[i]
		if cell.Revealed || cell.Disabled || cell.Reward == nil {
			continue
		}
		if value := cell.Reward.Value(); value > bestValue {
			best, bestValue = i, value
		}
	}
	if best < 0 {
		return -1, errors.New("no hidden rewards left")
	}
	return best, nil
}

// UseDoubler doubles every still-hidden jenny cell. Single use.
func (s *Session) UseDoubler() error {
	if s.ended {
		return ErrSessionOver
	}
	if s.usedDoubler {
		return ErrBoosterSpent
	}
	s.usedDoubler = true

	for i := range s.cells {
		cell := &s.cells[i]
		if cell.Revealed || cell.Disabled || cell.Reward == nil {
			continue
		}
		if cell.Reward.Kind == RewardJenny {
			cell.Reward.Jenny *= 2
		}
	}
	return nil
}

// UseBombDetector flags half of the remaining bomb cells, rounding down, so
// they can no longer be revealed. Single use.
func (s *Session) UseBombDetector() ([]int, error) {
	if s.ended {
		return nil, ErrSessionOver
	}
	if s.usedDetector {
		return nil, ErrBoosterSpent
	}
	s.usedDetector = true

	var bombs []int
	for i := range s.cells {
		cell := &s.cells[i]
		if !cell.Revealed && !cell.Disabled && cell.Reward == nil {
			bombs = append(bombs, i)
		}
	}

	s.rng.Shuffle(len(bombs), func(i, j int) { bombs[i], bombs[j] = bombs[j], bombs[i] })
	defused := bombs[:len(bombs)/2]
	for _, i := range defused {
		s.cells[i].Disabled = true
	}
	return defused, nil
}

// Claimed returns the current pot.
func (s *Session) Claimed() []Reward {
	out := make([]Reward, len(s.claimed))
	copy(out, s.claimed)
	return out
}

// Ended reports whether the session is over.
func (s *Session) Ended() bool { return s.ended }

// Saved reports whether the session ended with a save.
func (s *Session) Saved() bool { return s.saved }

// Cells returns a copy of the grid for rendering.
func (s *Session) Cells() [GridSize]Cell { return s.cells }

// BombCount returns the number of cells without a reward.
func (s *Session) BombCount() int {
	count := 0
	for i := range s.cells {
		if s.cells[i].Reward == nil {
			count++
		}
	}
	return count
}
