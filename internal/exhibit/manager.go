package exhibit

import (
	"fmt"
	"log/slog"

	"github.com/roach88/exhibit/internal/config"
	"github.com/roach88/exhibit/internal/engine"
	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

// ManagerState is the game manager's state.
type ManagerState int

const (
	ManagerIdle ManagerState = iota
	ManagerWaitingForTrigger
	ManagerWelcomeSequence
	ManagerActiveMultiGame
	ManagerFinished
)

func (s ManagerState) String() string {
	switch s {
	case ManagerIdle:
		return "Idle"
	case ManagerWaitingForTrigger:
		return "WaitingForTrigger"
	case ManagerWelcomeSequence:
		return "WelcomeSequence"
	case ManagerActiveMultiGame:
		return "ActiveMultiGame"
	case ManagerFinished:
		return "Finished"
	default:
		return fmt.Sprintf("ManagerState(%d)", int(s))
	}
}

// GameManager orchestrates a visit: a correctly inserted leaf starts the
// welcome track, the end of the track starts the first game, and a
// repeating timer starts the rest in order. The temperature score shown on
// the indicator bank is clamped to [0, max].
//
// Inactivity, a removed leaf or an external ResetAllGames sends
// ResetAllGames to every game and returns to WaitingForTrigger.
type GameManager struct {
	cfg        config.Orchestrator
	nextGameT  uint32
	inactiveT  uint32
	gameEndT   uint32
	indicators *hw.Register

	logger     *slog.Logger
	audio      engine.Handle
	games      []engine.Handle
	list       *engine.DistributionList
	nextGame   engine.TimerRef
	inactivity engine.TimerRef
	gameEnd    engine.TimerRef

	state       ManagerState
	temperature int
	started     int
}

// NewGameManager creates the orchestrator from cfg. indicators may be nil.
func NewGameManager(cfg *config.Config, indicators *hw.Register) *GameManager {
	return &GameManager{
		cfg:        cfg.Orchestrator,
		nextGameT:  cfg.Ticks(cfg.Orchestrator.NextGameMS),
		inactiveT:  cfg.Ticks(cfg.Orchestrator.InactivityMS),
		gameEndT:   cfg.Ticks(cfg.Orchestrator.GameEndMS),
		indicators: indicators,
	}
}

// Init resolves the audio service, the games, the games list and the
// three timers.
func (m *GameManager) Init(fw engine.Framework) error {
	m.logger = fw.Logger()

	var err error
	if m.audio, err = fw.Lookup(m.cfg.Audio); err != nil {
		return err
	}
	m.games = m.games[:0]
	for _, name := range m.cfg.Games {
		h, err := fw.Lookup(name)
		if err != nil {
			return err
		}
		m.games = append(m.games, h)
	}
	if m.list, err = fw.List(ListGames); err != nil {
		return err
	}
	if m.nextGame, err = fw.Timer(TimerNextGame); err != nil {
		return err
	}
	if m.inactivity, err = fw.Timer(TimerInactivity); err != nil {
		return err
	}
	if m.gameEnd, err = fw.Timer(TimerGameEnd); err != nil {
		return err
	}
	m.state = ManagerIdle
	return nil
}

// State implements engine.StateReporter.
func (m *GameManager) State() string {
	return m.state.String()
}

// Temperature returns the current score.
func (m *GameManager) Temperature() int {
	return m.temperature
}

// Started returns how many games the current visit has started.
func (m *GameManager) Started() int {
	return m.started
}

// Run implements engine.Service.
func (m *GameManager) Run(ev event.Event) event.Event {
	switch m.state {
	case ManagerIdle:
		if ev.Is(event.Init) {
			m.state = ManagerWaitingForTrigger
			return m.result(ev, m.showTemperature(0))
		}

	case ManagerWaitingForTrigger:
		switch ev.Type {
		case event.LeafInIncorrect:
			m.logger.Info("leaf inserted upside down")
			return m.result(ev, m.audio.Post(event.PlayTrack(m.cfg.Tracks.LeafError)))
		case event.LeafInCorrect:
			m.logger.Info("leaf inserted, welcoming visitor")
			m.state = ManagerWelcomeSequence
			m.temperature = m.cfg.Temperature.Initial
			return m.result(ev,
				m.audio.Post(event.PlayTrack(m.cfg.Tracks.Welcome)),
				m.showTemperature(m.temperature),
			)
		}

	case ManagerWelcomeSequence:
		switch {
		case ev.Is(event.AudioDone) && ev.Int() == m.cfg.Tracks.Welcome:
			return m.startVisit(ev)
		case ev.Is(event.LeafRemoved):
			m.logger.Info("leaf removed during welcome")
			m.state = ManagerWaitingForTrigger
			return m.result(ev,
				m.audio.Post(event.New(event.StopAudio)),
				m.showTemperature(0),
			)
		case ev.Is(event.ResetAllGames):
			return m.reset(ev, "reset requested")
		}

	case ManagerActiveMultiGame:
		switch {
		case m.nextGame.Fired(ev):
			return m.startNextGame(ev)
		case m.inactivity.Fired(ev):
			return m.reset(ev, "visitor inactive")
		case m.gameEnd.Fired(ev):
			return m.finish(ev)
		case ev.Is(event.ChangeTemp):
			return m.changeTemperature(ev)
		case ev.Is(event.UserMovement):
			return m.result(ev, m.inactivity.Arm(m.inactiveT))
		case ev.Is(event.LeafRemoved):
			return m.reset(ev, "leaf removed")
		case ev.Is(event.ResetAllGames):
			return m.reset(ev, "reset requested")
		}

	case ManagerFinished:
		switch ev.Type {
		case event.LeafRemoved:
			m.logger.Info("visit over, leaf removed")
			m.state = ManagerWaitingForTrigger
			return m.result(ev, m.showTemperature(0))
		case event.ResetAllGames:
			m.state = ManagerWaitingForTrigger
			return m.result(ev, m.showTemperature(0))
		}
	}
	return engine.Ignore(m.logger, m.state, ev)
}

// startVisit starts the first game and arms the visit timers.
func (m *GameManager) startVisit(ev event.Event) event.Event {
	m.state = ManagerActiveMultiGame
	m.started = 0
	m.logger.Info("welcome finished, starting games", "games", len(m.games))
	return m.result(ev,
		m.startGame(),
		m.nextGame.Arm(m.nextGameT),
		m.inactivity.Arm(m.inactiveT),
		m.gameEnd.Arm(m.gameEndT),
	)
}

func (m *GameManager) startNextGame(ev event.Event) event.Event {
	if m.started >= len(m.games) {
		return engine.Ignore(m.logger, m.state, ev)
	}
	errs := []error{m.startGame()}
	if m.started < len(m.games) {
		errs = append(errs, m.nextGame.Arm(m.nextGameT))
	}
	return m.result(ev, errs...)
}

// startGame posts StartGame{n} to the n-th game, counting from 1.
func (m *GameManager) startGame() error {
	if m.started >= len(m.games) {
		return nil
	}
	m.started++
	g := m.games[m.started-1]
	m.logger.Info("starting game", "game", g.Name(), "index", m.started)
	return g.Post(event.StartGameN(m.started))
}

func (m *GameManager) changeTemperature(ev event.Event) event.Event {
	if ev.Int() == 1 {
		m.temperature++
	} else {
		m.temperature--
	}
	m.temperature = max(0, min(m.temperature, m.cfg.Temperature.Max))
	return m.result(ev, m.showTemperature(m.temperature))
}

// reset stops the visit: every game is told to reset and the manager waits
// for the next leaf.
func (m *GameManager) reset(ev event.Event, reason string) event.Event {
	m.logger.Info("resetting games", "reason", reason)
	m.state = ManagerWaitingForTrigger
	m.started = 0
	return m.result(ev,
		m.nextGame.Disarm(),
		m.inactivity.Disarm(),
		m.gameEnd.Disarm(),
		m.list.Post(event.New(event.ResetAllGames)),
		m.showTemperature(0),
	)
}

// finish ends the visit when the game clock runs out. The final score stays
// on display until the leaf is removed.
func (m *GameManager) finish(ev event.Event) event.Event {
	m.logger.Info("visit finished", "temperature", m.temperature)
	m.state = ManagerFinished
	return m.result(ev,
		m.nextGame.Disarm(),
		m.inactivity.Disarm(),
		m.list.Post(event.New(event.ResetAllGames)),
	)
}

func (m *GameManager) showTemperature(n int) error {
	if m.indicators == nil {
		return nil
	}
	return m.indicators.Set(hw.BankTemperature, n)
}

// result turns the errors of a transition into its status event.
func (m *GameManager) result(ev event.Event, errs ...error) event.Event {
	return status(m.logger, m.state, ev, errs...)
}
