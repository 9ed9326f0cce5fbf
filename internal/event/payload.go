package event

import "fmt"

// Kind names a payload variant.
type Kind int

const (
	KindNone Kind = iota
	KindTimer
	KindGame
	KindTrack
	KindScore
	KindChannel
	KindSun
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTimer:
		return "timer"
	case KindGame:
		return "game"
	case KindTrack:
		return "track"
	case KindScore:
		return "score"
	case KindChannel:
		return "channel"
	case KindSun:
		return "sun"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Payload is the tagged parameter of an Event. The set of variants is
// closed: the unexported marker keeps other packages from adding one.
type Payload interface {
	// Kind reports which variant this is.
	Kind() Kind
	// Int flattens the payload to the integer used in traces.
	Int() int

	payload()
}

// TimerID indexes a slot in a timer table.
type TimerID uint8

// SunMove selects what a MoveSun request does with the actuator.
type SunMove int

const (
	// SunAdvance moves the sun one step (1/12 of a day).
	SunAdvance SunMove = 0
	// SunHome returns the sun to its initial position.
	SunHome SunMove = 1
)

func (m SunMove) String() string {
	if m == SunHome {
		return "home"
	}
	return "advance"
}

// Empty carries nothing.
type Empty struct{}

// Timer identifies the slot that expired.
type Timer struct{ ID TimerID }

// Game is the 1-based index of a mini-game in the start cascade.
type Game struct{ Index int }

// Track is an audio track number.
type Track struct{ Num int }

// Score is a score delta signal: 1 raises the aggregate counter, 0 lowers it.
type Score struct{ Value int }

// Channel indexes a raw input line inside one debouncer.
type Channel struct{ Index int }

// Sun is a sun actuator request.
type Sun struct{ Move SunMove }

func (Empty) Kind() Kind   { return KindNone }
func (Timer) Kind() Kind   { return KindTimer }
func (Game) Kind() Kind    { return KindGame }
func (Track) Kind() Kind   { return KindTrack }
func (Score) Kind() Kind   { return KindScore }
func (Channel) Kind() Kind { return KindChannel }
func (Sun) Kind() Kind     { return KindSun }

func (Empty) payload()   {}
func (Timer) payload()   {}
func (Game) payload()    {}
func (Track) payload()   {}
func (Score) payload()   {}
func (Channel) payload() {}
func (Sun) payload()     {}

func (Empty) Int() int     { return 0 }
func (p Timer) Int() int   { return int(p.ID) }
func (p Game) Int() int    { return p.Index }
func (p Track) Int() int   { return p.Num }
func (p Score) Int() int   { return p.Value }
func (p Channel) Int() int { return p.Index }
func (p Sun) Int() int     { return int(p.Move) }

// payloadFor builds the variant of kind k holding v.
func payloadFor(k Kind, v int) (Payload, error) {
	switch k {
	case KindNone:
		if v != 0 {
			return nil, fmt.Errorf("payload %s takes no value, got %d", k, v)
		}
		return Empty{}, nil
	case KindTimer:
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("timer id %d out of range", v)
		}
		return Timer{ID: TimerID(v)}, nil
	case KindGame:
		if v < 1 {
			return nil, fmt.Errorf("game index must be >= 1, got %d", v)
		}
		return Game{Index: v}, nil
	case KindTrack:
		if v < 0 {
			return nil, fmt.Errorf("track must be >= 0, got %d", v)
		}
		return Track{Num: v}, nil
	case KindScore:
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("score delta must be 0 or 1, got %d", v)
		}
		return Score{Value: v}, nil
	case KindChannel:
		if v < 0 {
			return nil, fmt.Errorf("channel must be >= 0, got %d", v)
		}
		return Channel{Index: v}, nil
	case KindSun:
		if v != int(SunAdvance) && v != int(SunHome) {
			return nil, fmt.Errorf("sun move must be 0 or 1, got %d", v)
		}
		return Sun{Move: SunMove(v)}, nil
	default:
		return nil, fmt.Errorf("unknown payload kind %d", int(k))
	}
}
