package event

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Type tags an Event.
type Type uint8

// Reserved tags. Only the scheduler and the timer tables produce these.
const (
	NoEvent Type = iota
	Error
	Init
	Timeout
	ShortTimeout
)

// FirstUserType is the first application-defined tag.
const FirstUserType = ShortTimeout + 1

// Application tags.
const (
	LeafRemoved Type = FirstUserType + iota
	LeafInCorrect
	LeafInIncorrect
	PlayAudio
	AudioDone
	StopAudio
	PlayLoop
	StopLoop
	StartGame
	UserMovement
	ChangeTemp
	ResetAllGames
	VotedYes
	VotedNo
	SwitchHit
	ButtonDown
	ButtonUp
	TowerPlugged
	TowerUnplugged
	SolarPosChange
	MoveSun

	numTypes
)

type typeInfo struct {
	name    string
	payload Kind
}

var typeTable = [numTypes]typeInfo{
	NoEvent:         {"NoEvent", KindNone},
	Error:           {"Error", KindNone},
	Init:            {"Init", KindNone},
	Timeout:         {"Timeout", KindTimer},
	ShortTimeout:    {"ShortTimeout", KindTimer},
	LeafRemoved:     {"LeafRemoved", KindNone},
	LeafInCorrect:   {"LeafInCorrect", KindNone},
	LeafInIncorrect: {"LeafInIncorrect", KindNone},
	PlayAudio:       {"PlayAudio", KindTrack},
	AudioDone:       {"AudioDone", KindTrack},
	StopAudio:       {"StopAudio", KindNone},
	PlayLoop:        {"PlayLoop", KindNone},
	StopLoop:        {"StopLoop", KindNone},
	StartGame:       {"StartGame", KindGame},
	UserMovement:    {"UserMovement", KindNone},
	ChangeTemp:      {"ChangeTemp", KindScore},
	ResetAllGames:   {"ResetAllGames", KindNone},
	VotedYes:        {"VotedYes", KindNone},
	VotedNo:         {"VotedNo", KindNone},
	SwitchHit:       {"SwitchHit", KindNone},
	ButtonDown:      {"ButtonDown", KindChannel},
	ButtonUp:        {"ButtonUp", KindChannel},
	TowerPlugged:    {"TowerPlugged", KindNone},
	TowerUnplugged:  {"TowerUnplugged", KindNone},
	SolarPosChange:  {"SolarPosChange", KindNone},
	MoveSun:         {"MoveSun", KindSun},
}

// byFoldedName maps case-folded, separator-free names to tags.
var byFoldedName = func() map[string]Type {
	m := make(map[string]Type, numTypes)
	for t := Type(0); t < numTypes; t++ {
		m[foldName(typeTable[t].name)] = t
	}
	return m
}()

func foldName(s string) string {
	s = strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
	return cases.Fold().String(s)
}

// String returns the tag's name.
func (t Type) String() string {
	if t < numTypes {
		return typeTable[t].name
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Reserved reports whether t is produced only by the framework.
func (t Type) Reserved() bool {
	return t < FirstUserType
}

// Valid reports whether t is a declared tag.
func (t Type) Valid() bool {
	return t < numTypes
}

// PayloadKind returns the payload variant events of this type carry.
func (t Type) PayloadKind() Kind {
	if t < numTypes {
		return typeTable[t].payload
	}
	return KindNone
}

// Parse resolves a tag by name. Matching ignores case, underscores and
// dashes, so "PLAY_AUDIO", "play-audio" and "PlayAudio" are the same tag.
func Parse(name string) (Type, error) {
	t, ok := byFoldedName[foldName(name)]
	if !ok {
		return NoEvent, fmt.Errorf("unknown event type %q", name)
	}
	return t, nil
}

// Types lists every declared tag in declaration order.
func Types() []Type {
	out := make([]Type, 0, numTypes)
	for t := Type(0); t < numTypes; t++ {
		out = append(out, t)
	}
	return out
}

// Event is the unit of communication between services.
type Event struct {
	Type  Type
	Param Payload
}

// New builds a payload-free event.
func New(t Type) Event {
	return Event{Type: t, Param: Empty{}}
}

// Make builds an event of type t from a raw integer, choosing the payload
// variant the type declares. Used by configuration and scenario files.
func Make(t Type, v int) (Event, error) {
	if !t.Valid() {
		return Event{}, fmt.Errorf("unknown event type %d", uint8(t))
	}
	p, err := payloadFor(t.PayloadKind(), v)
	if err != nil {
		return Event{}, fmt.Errorf("%s: %w", t, err)
	}
	return Event{Type: t, Param: p}, nil
}

// Payload returns the event's payload, treating a nil Param as Empty.
func (e Event) Payload() Payload {
	if e.Param == nil {
		return Empty{}
	}
	return e.Param
}

// Int flattens the payload to an integer.
func (e Event) Int() int {
	return e.Payload().Int()
}

// Validate checks the payload variant against the tag.
func (e Event) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("unknown event type %d", uint8(e.Type))
	}
	if want, got := e.Type.PayloadKind(), e.Payload().Kind(); want != got {
		return fmt.Errorf("%s carries %s payload, got %s", e.Type, want, got)
	}
	return nil
}

// Is reports whether e has type t.
func (e Event) Is(t Type) bool {
	return e.Type == t
}

// TimerID returns the expired slot for Timeout and ShortTimeout events.
func (e Event) TimerID() (TimerID, bool) {
	p, ok := e.Param.(Timer)
	return p.ID, ok
}

// IsTimeout reports whether e is a main-table expiry of slot id.
func (e Event) IsTimeout(id TimerID) bool {
	got, ok := e.TimerID()
	return ok && e.Type == Timeout && got == id
}

// IsShortTimeout reports whether e is a short-table expiry of slot id.
func (e Event) IsShortTimeout(id TimerID) bool {
	got, ok := e.TimerID()
	return ok && e.Type == ShortTimeout && got == id
}

func (e Event) String() string {
	if e.Type.PayloadKind() == KindNone {
		return e.Type.String()
	}
	return fmt.Sprintf("%s(%d)", e.Type, e.Int())
}

// Constructors for the payload-carrying tags.

func TimeoutOf(id TimerID) Event      { return Event{Type: Timeout, Param: Timer{ID: id}} }
func ShortTimeoutOf(id TimerID) Event { return Event{Type: ShortTimeout, Param: Timer{ID: id}} }
func StartGameN(index int) Event      { return Event{Type: StartGame, Param: Game{Index: index}} }
func PlayTrack(track int) Event       { return Event{Type: PlayAudio, Param: Track{Num: track}} }
func TrackDone(track int) Event       { return Event{Type: AudioDone, Param: Track{Num: track}} }
func ScoreDelta(v int) Event          { return Event{Type: ChangeTemp, Param: Score{Value: v}} }
func Down(ch int) Event               { return Event{Type: ButtonDown, Param: Channel{Index: ch}} }
func Up(ch int) Event                 { return Event{Type: ButtonUp, Param: Channel{Index: ch}} }
func MoveSunTo(m SunMove) Event       { return Event{Type: MoveSun, Param: Sun{Move: m}} }
