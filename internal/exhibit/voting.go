package exhibit

import (
	"fmt"
	"log/slog"

	"github.com/roach88/exhibit/internal/config"
	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

// VotingState is the voting game's state.
type VotingState int

const (
	VotingIdle VotingState = iota
	VotingStandby
	VotingPresenting
	VotingAwaitingResponse
)

func (s VotingState) String() string {
	switch s {
	case VotingIdle:
		return "Idle"
	case VotingStandby:
		return "Standby"
	case VotingPresenting:
		return "Presenting"
	case VotingAwaitingResponse:
		return "AwaitingResponse"
	default:
		return fmt.Sprintf("VotingState(%d)", int(s))
	}
}

// Voting is the question wheel. The motor turns the wheel to the next
// question until the limit switch trips; then the visitor has the vote
// window to answer yes or no. Each vote sends ChangeTemp{1} to the game
// manager when it matches the answer key and ChangeTemp{0} when it does
// not. After the last question the wheel wraps to the first.
//
// A reset that arrives while the wheel is turning is deferred until the
// limit switch confirms the wheel stopped, then recalled.
type Voting struct {
	cfg   config.Voting
	voteT uint32
	motor hw.Motor

	logger   *slog.Logger
	manager  engine.Handle
	vote     engine.TimerRef
	deferred *engine.DeferralQueue

	state VotingState
	item  int
}

// NewVoting creates the voting game driving motor.
func NewVoting(cfg *config.Config, motor hw.Motor) *Voting {
	return &Voting{
		cfg:   cfg.Voting,
		voteT: cfg.Ticks(cfg.Voting.VoteWindowMS),
		motor: motor,
	}
}

// Init implements engine.Service.
func (v *Voting) Init(fw engine.Framework) error {
	v.logger = fw.Logger()

	var err error
	if v.manager, err = fw.Lookup(v.cfg.Orchestrator); err != nil {
		return err
	}
	if v.vote, err = fw.Timer(TimerVote); err != nil {
		return err
	}
	v.deferred = fw.NewDeferralQueue(v.cfg.Deferral)
	v.setMotor(false)
	v.state = VotingIdle
	return nil
}

// State implements engine.StateReporter.
func (v *Voting) State() string {
	return v.state.String()
}

// Item returns the 0-based index of the current question.
func (v *Voting) Item() int {
	return v.item
}

// Deferred returns the number of events waiting for the wheel to stop.
func (v *Voting) Deferred() int {
	return v.deferred.Len()
}

// Run implements engine.Service.
func (v *Voting) Run(ev event.Event) event.Event {
	switch v.state {
	case VotingIdle:
		if ev.Is(event.Init) {
			v.state = VotingStandby
			return event.New(event.NoEvent)
		}

	case VotingStandby:
		if ev.Is(event.StartGame) {
			v.logger.Info("voting game started", "index", ev.Int())
			v.item = 0
			v.present()
			return event.New(event.NoEvent)
		}

	case VotingPresenting:
		switch ev.Type {
		case event.SwitchHit:
			v.setMotor(false)
			v.state = VotingAwaitingResponse
			v.logger.Debug("question shown", "item", v.item)
			n, err := v.deferred.Recall()
			if n > 0 {
				v.logger.Debug("recalled deferred events", "count", n)
			}
			return v.result(ev, v.vote.Arm(v.voteT), err)
		case event.ResetAllGames:
			v.logger.Debug("wheel turning, reset deferred")
			return v.result(ev, v.deferred.Defer(ev))
		}

	case VotingAwaitingResponse:
		switch {
		case ev.Is(event.VotedYes):
			return v.answer(ev, true)
		case ev.Is(event.VotedNo):
			return v.answer(ev, false)
		case v.vote.Fired(ev):
			v.logger.Debug("no vote, next question", "item", v.item)
			v.advance()
			return event.New(event.NoEvent)
		case ev.Is(event.ResetAllGames):
			v.logger.Info("voting game reset")
			v.state = VotingStandby
			v.item = 0
			return v.result(ev, v.vote.Disarm())
		}
	}
	return engine.Ignore(v.logger, v.state, ev)
}

// answer scores a vote against the key and turns to the next question.
func (v *Voting) answer(ev event.Event, yes bool) event.Event {
	correct := yes == v.cfg.Answers[v.item]
	delta := 0
	if correct {
		delta = 1
	}
	v.logger.Info("vote", "item", v.item, "yes", yes, "correct", correct)
	err := v.vote.Disarm()
	perr := v.manager.Post(event.ScoreDelta(delta))
	v.advance()
	return v.result(ev, err, perr)
}

// advance moves to the next question, wrapping after the last.
func (v *Voting) advance() {
	v.item = (v.item + 1) % len(v.cfg.Answers)
	v.present()
}

// present starts the wheel toward the current question.
func (v *Voting) present() {
	v.setMotor(true)
	v.state = VotingPresenting
}

func (v *Voting) setMotor(on bool) {
	if v.motor != nil {
		v.motor.SetMotor(on)
	}
}

func (v *Voting) result(ev event.Event, errs ...error) event.Event {
	return status(v.logger, v.state, ev, errs...)
}
