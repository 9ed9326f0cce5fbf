// Package exhibit holds the climate exhibit's services and event checkers
// and wires them onto an engine.Scheduler from a config.Config.
//
// Services:
//
//   - GameManager waits for a leaf, plays the welcome track, starts the
//     mini-games one after another and keeps the temperature score.
//   - Energy is the coal/solar mini-game driven by the smoke tower and the
//     solar panel.
//   - Voting is the question wheel mini-game.
//   - Debouncer filters raw button and switch edges into logical events.
//   - Audio drives the sound board.
//   - Sun positions the sun servo.
//
// Checkers poll the board once per cycle and post raw events: the leaf
// detector, the debouncer input lines, the smoke tower, the solar panel,
// the audio activity line and the operator console.
package exhibit

// Timer names the services resolve through the scheduler.
const (
	TimerNextGame    = "next_game"
	TimerInactivity  = "inactivity"
	TimerGameEnd     = "game_end"
	TimerVote        = "vote"
	TimerSunPosition = "sun_position"
	TimerCoalActive  = "coal_active"
	TimerSolarActive = "solar_active"
	TimerAudioPulse  = "audio_pulse"
)

// Distribution lists.
const (
	// ListGames receives ResetAllGames from the game manager.
	ListGames = "games"
	// ListAudioDone receives AudioDone from the audio activity checker.
	ListAudioDone = "audio_done"
)
