package config

import (
	"errors"
	"fmt"

	"github.com/roach88/exhibit/internal/event"
	"github.com/roach88/exhibit/internal/hw"
)

// MaxServices bounds the service table.
const MaxServices = 16

// Validate checks the cross-references CUE cannot express: unique names,
// timer slots within their tables, responders and list members that name
// real services, and debouncer channels that name real lines, events and
// timers. Every problem found is reported.
func (c *Config) Validate() error {
	v := &validator{cfg: c, services: make(map[string]Kind)}
	v.serviceTable()
	if c.ShortTick > c.Tick {
		v.add("short_tick", "short tick %s longer than tick %s", c.ShortTick, c.Tick)
	}
	v.timers("timers", c.Timers, c.TimerSlots)
	v.timers("short_timers", c.ShortTimers, c.ShortTimerSlots)
	v.lists()
	v.debouncers()
	v.sections()
	return errors.Join(v.errs...)
}

type validator struct {
	cfg      *Config
	services map[string]Kind
	errs     []error
}

func (v *validator) add(field, format string, args ...any) {
	v.errs = append(v.errs, errorf(field, format, args...))
}

func (v *validator) hasService(name string) bool {
	_, ok := v.services[name]
	return ok
}

func (v *validator) serviceTable() {
	c := v.cfg
	if len(c.Services) == 0 {
		v.add("services", "at least one service is required")
	}
	if len(c.Services) > MaxServices {
		v.add("services", "%d services exceed the limit of %d", len(c.Services), MaxServices)
	}
	counts := make(map[Kind]int)
	for i, s := range c.Services {
		field := fmt.Sprintf("services[%d]", i)
		if _, dup := v.services[s.Name]; dup {
			v.add(field, "service %q defined twice", s.Name)
			continue
		}
		v.services[s.Name] = s.Kind
		counts[s.Kind]++
	}
	for _, k := range []Kind{KindOrchestrator, KindEnergy, KindVoting, KindSun, KindAudio} {
		if counts[k] > 1 {
			v.add("services", "at most one %s service allowed, found %d", k, counts[k])
		}
	}
	if counts[KindOrchestrator] == 0 {
		v.add("services", "an orchestrator service is required")
	}
}

func (v *validator) timers(field string, timers []Timer, slots int) {
	names := make(map[string]bool)
	ids := make(map[int]string)
	for i, t := range timers {
		f := fmt.Sprintf("%s[%d]", field, i)
		if t.ID >= slots {
			v.add(f, "timer %q id %d out of range [0, %d)", t.Name, t.ID, slots)
		}
		if prev, dup := ids[t.ID]; dup {
			v.add(f, "timer %q reuses slot %d of %q", t.Name, t.ID, prev)
		}
		ids[t.ID] = t.Name
		if names[t.Name] {
			v.add(f, "timer %q defined twice", t.Name)
		}
		names[t.Name] = true
		if !v.hasService(t.Responder) {
			v.add(f, "timer %q: unknown responder %q", t.Name, t.Responder)
		}
	}
}

func (v *validator) lists() {
	names := make(map[string]bool)
	for i, l := range v.cfg.Lists {
		f := fmt.Sprintf("lists[%d]", i)
		if names[l.Name] {
			v.add(f, "list %q defined twice", l.Name)
		}
		names[l.Name] = true
		if len(l.Members) == 0 {
			v.add(f, "list %q has no members", l.Name)
		}
		for _, m := range l.Members {
			if !v.hasService(m) {
				v.add(f, "list %q: unknown member %q", l.Name, m)
			}
		}
	}
}

func (v *validator) debouncers() {
	c := v.cfg
	main := timerNames(c.Timers)
	short := timerNames(c.ShortTimers)

	seen := make(map[string]bool)
	for i := range c.Debouncers {
		d := &c.Debouncers[i]
		f := fmt.Sprintf("debouncers[%d]", i)
		if kind, ok := v.services[d.Service]; !ok || kind != KindDebouncer {
			v.add(f, "%q is not a debouncer service", d.Service)
		}
		if seen[d.Service] {
			v.add(f, "debouncer %q configured twice", d.Service)
		}
		seen[d.Service] = true
		if len(d.Channels) == 0 {
			v.add(f, "debouncer %q has no channels", d.Service)
		}

		table := main
		if d.Short {
			table = short
		}
		for j := range d.Channels {
			ch := &d.Channels[j]
			cf := fmt.Sprintf("%s.channels[%d]", f, j)
			if _, err := hw.ParseLine(ch.Line); err != nil {
				v.add(cf, "%v", err)
			}
			if !v.hasService(ch.Target) {
				v.add(cf, "unknown target %q", ch.Target)
			}
			if responder, ok := table[ch.Timer]; !ok {
				v.add(cf, "unknown timer %q", ch.Timer)
			} else if responder != d.Service {
				v.add(cf, "timer %q responds to %q, not %q", ch.Timer, responder, d.Service)
			}
			ch.PressEvent = v.userEvent(cf+".press", ch.Press)
			ch.ReleaseEvent = event.NoEvent
			if ch.Release != "" {
				ch.ReleaseEvent = v.userEvent(cf+".release", ch.Release)
			}
		}
	}

	for name, kind := range v.services {
		if kind == KindDebouncer && !seen[name] {
			v.add("debouncers", "debouncer service %q has no configuration", name)
		}
	}
}

func (v *validator) userEvent(field, name string) event.Type {
	t, err := event.Parse(name)
	if err != nil {
		v.add(field, "%v", err)
		return event.NoEvent
	}
	if t.Reserved() {
		v.add(field, "reserved event %s cannot be forwarded", t)
		return event.NoEvent
	}
	if t.PayloadKind() != event.KindNone {
		v.add(field, "event %s carries a payload and cannot be forwarded", t)
		return event.NoEvent
	}
	return t
}

func (v *validator) sections() {
	c := v.cfg
	if len(c.ServicesOfKind(KindOrchestrator)) > 0 {
		for _, g := range c.Orchestrator.Games {
			if !v.hasService(g) {
				v.add("orchestrator.games", "unknown game %q", g)
			}
		}
		if !v.hasService(c.Orchestrator.Audio) {
			v.add("orchestrator.audio", "unknown service %q", c.Orchestrator.Audio)
		}
		if c.Orchestrator.Temperature.Initial > c.Orchestrator.Temperature.Max {
			v.add("orchestrator.temperature", "initial %d above max %d",
				c.Orchestrator.Temperature.Initial, c.Orchestrator.Temperature.Max)
		}
	}
	if len(c.ServicesOfKind(KindEnergy)) > 0 {
		for field, name := range map[string]string{
			"energy.orchestrator": c.Energy.Orchestrator,
			"energy.audio":        c.Energy.Audio,
			"energy.sun":          c.Energy.Sun,
		} {
			if !v.hasService(name) {
				v.add(field, "unknown service %q", name)
			}
		}
		if c.Energy.WellAligned > c.Energy.MediumAligned {
			v.add("energy.well_aligned", "well_aligned %d above medium_aligned %d",
				c.Energy.WellAligned, c.Energy.MediumAligned)
		}
	}
	if len(c.ServicesOfKind(KindVoting)) > 0 {
		if !v.hasService(c.Voting.Orchestrator) {
			v.add("voting.orchestrator", "unknown service %q", c.Voting.Orchestrator)
		}
		if len(c.Voting.Answers) != c.Voting.Items {
			v.add("voting.answers", "%d answers for %d items", len(c.Voting.Answers), c.Voting.Items)
		}
	}
}

func timerNames(timers []Timer) map[string]string {
	m := make(map[string]string, len(timers))
	for _, t := range timers {
		m[t.Name] = t.Responder
	}
	return m
}
