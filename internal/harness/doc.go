// Package harness runs exhibit scenarios against the simulated board.
//
// A scenario builds the exhibit from a configuration, drives the board and
// the scheduler step by step, and asserts on the resulting trace, service
// states, indicator banks and timers.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: welcome_visit
//	description: "A correctly inserted leaf starts the welcome track"
//	config: ../configs/site.cue   # optional, default is the stock exhibit
//	tick: 10ms                    # optional overrides
//	short_tick: 10ms
//	steps:
//	  - set: { line: leaf1, level: false }
//	  - analog: { channel: solar_panel, value: 1500 }
//	  - post: { service: voting, event: StartGame, param: 2 }
//	  - advance: 500
//	  - cycle: 3
//	assertions:
//	  - type: trace_contains
//	    service: audio
//	    event: PlayAudio
//	    param: 0
//	  - type: final_state
//	    service: game_manager
//	    state: WelcomeSequence
//
// Every set, analog and post step is followed by cycles until the
// scheduler is idle. advance runs main ticks; cycle runs an exact number of
// cycles.
//
// # Assertion Types
//
//   - trace_contains: an event was posted to a service
//   - trace_order: events were posted in the given order
//   - trace_count: an event was posted to a service exactly N times
//   - final_state: a service ended in the given state
//   - indicator: an indicator bank shows the given level
//   - timer: a timer is active with the given ticks remaining, or inactive
//
// # Deterministic Testing
//
// Each scenario records its trace into a fresh in-memory SQLite store
// under a fixed run id (scenario.run_id, or "test-run-default"), with a
// fake wall clock. The trace is read back from the store, so identical
// scenarios produce identical traces for golden comparison.
package harness
