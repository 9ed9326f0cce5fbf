package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/exhibit/internal/event"
)

const (
	// DefaultMaxServices bounds the service table.
	DefaultMaxServices = 16

	// maxServiceSlots is the number of distinct ServiceID values.
	maxServiceSlots = 256

	// DefaultTimerSlots is the main timer table size.
	DefaultTimerSlots = 16

	// DefaultShortTimerSlots is the short timer table size.
	DefaultShortTimerSlots = 8

	// DefaultTickRate is the main-table tick period (one tick per millisecond).
	DefaultTickRate = time.Millisecond

	// DefaultShortTickRate is the short-table tick period.
	DefaultShortTickRate = 100 * time.Microsecond
)

// Trace sources for posts not made by a running service.
const (
	SourceExternal   = "external"
	SourceInit       = "init"
	SourceTimer      = "timer"
	SourceShortTimer = "short-timer"
)

// Checker polls one input and posts events when it sees a change.
// Check reports whether it posted anything.
type Checker interface {
	Check() bool
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func() bool

// Check calls f().
func (f CheckerFunc) Check() bool {
	return f()
}

// Scheduler hosts a fixed set of prioritized services, their queues, two
// timer tables, the distribution lists and the event checkers.
//
// Configuration (Register, BindTimer, BindShortTimer, DefineList,
// AddChecker) happens before Initialize. After Initialize the tables are
// frozen.
//
// Each cycle polls every checker, then walks the services from highest to
// lowest priority and hands each one at most one event from its queue.
// A run function always completes before the next one starts.
//
// CRITICAL: The scheduler is single-threaded. Every method, including
// Handle.Post, must be called from the goroutine that drives the loop.
type Scheduler struct {
	logger    *slog.Logger
	clock     *Clock
	observers []Observer

	maxServices int
	timerSlots  int
	shortSlots  int
	tickRate    time.Duration
	shortRate   time.Duration

	services []*serviceSlot
	byName   map[string]ServiceID
	checkers []checkerSlot

	timerDecls []timerDecl
	shortDecls []timerDecl
	listDecls  []listDecl

	timers *TimerTable
	short  *TimerTable
	lists  map[string]*DistributionList

	initialized bool
	dispatching bool
	internal    bool   // reserved tags may be posted
	source      string // who is posting right now

	stats Stats
}

type serviceSlot struct {
	id     ServiceID
	name   string
	svc    Service
	queue  *ring
	logger *slog.Logger
}

type checkerSlot struct {
	name string
	fn   Checker
}

type timerDecl struct {
	name      string
	id        event.TimerID
	responder string
}

type listDecl struct {
	name    string
	members []string
}

// Stats counts scheduler activity since Initialize.
type Stats struct {
	Cycles     uint64
	Dispatched uint64
	Posted     uint64
	Dropped    uint64
	Errors     uint64
	Expiries   uint64
}

// CycleStats summarizes one RunCycle.
type CycleStats struct {
	// Checks is the number of checkers that reported posting.
	Checks int
	// Dispatched is the number of events delivered to run functions.
	Dispatched int
}

// Idle reports whether the cycle did nothing.
func (c CycleStats) Idle() bool {
	return c.Checks == 0 && c.Dispatched == 0
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used to stamp trace records.
func WithClock(c *Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithObserver adds a trace observer.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithMaxServices bounds the number of services that may be registered.
// Values outside [1, 256] make Register fail.
func WithMaxServices(n int) Option {
	return func(s *Scheduler) {
		s.maxServices = n
	}
}

// WithTimerSlots sets the main timer table size.
func WithTimerSlots(n int) Option {
	return func(s *Scheduler) {
		s.timerSlots = n
	}
}

// WithShortTimerSlots sets the short timer table size.
func WithShortTimerSlots(n int) Option {
	return func(s *Scheduler) {
		s.shortSlots = n
	}
}

// WithTickRate sets the real-time period of the main and short tables.
// Only Run uses these; RunCycle, Tick and TickShort are driven by the caller.
func WithTickRate(main, short time.Duration) Option {
	return func(s *Scheduler) {
		if main > 0 {
			s.tickRate = main
		}
		if short > 0 {
			s.shortRate = short
		}
	}
}

// New creates an empty, unconfigured scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:      slog.Default(),
		clock:       NewClock(),
		maxServices: DefaultMaxServices,
		timerSlots:  DefaultTimerSlots,
		shortSlots:  DefaultShortTimerSlots,
		tickRate:    DefaultTickRate,
		shortRate:   DefaultShortTickRate,
		byName:      make(map[string]ServiceID),
		lists:       make(map[string]*DistributionList),
		source:      SourceExternal,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a service with a queue of queueSize events. Services are
// prioritized in registration order: the first one registered has the
// lowest priority.
func (s *Scheduler) Register(name string, svc Service, queueSize int) (Handle, error) {
	if s.initialized {
		return Handle{}, NewConfigError("register %q after initialize", name)
	}
	if svc == nil {
		return Handle{}, &RuntimeError{Code: ErrCodeNullConfig, Message: "nil service", Service: name}
	}
	if name == "" {
		return Handle{}, NewConfigError("service %d: empty name", len(s.services))
	}
	if _, dup := s.byName[name]; dup {
		return Handle{}, NewConfigError("service %q registered twice", name)
	}
	if s.maxServices < 1 || s.maxServices > maxServiceSlots {
		return Handle{}, NewConfigError("max services %d out of range [1, %d]", s.maxServices, maxServiceSlots)
	}
	if len(s.services) >= s.maxServices {
		return Handle{}, NewConfigError("service %q: table full (%d services)", name, s.maxServices)
	}
	if queueSize < 1 || queueSize > 255 {
		return Handle{}, NewConfigError("service %q: queue size %d out of range [1, 255]", name, queueSize)
	}

	id := ServiceID(len(s.services))
	s.services = append(s.services, &serviceSlot{
		id:     id,
		name:   name,
		svc:    svc,
		queue:  newRing(queueSize),
		logger: s.logger.With("service", name),
	})
	s.byName[name] = id
	return Handle{id: id, sched: s}, nil
}

// BindTimer binds main-table slot id to the named responder service.
// Resolution happens in Initialize.
func (s *Scheduler) BindTimer(name string, id event.TimerID, responder string) {
	s.timerDecls = append(s.timerDecls, timerDecl{name: name, id: id, responder: responder})
}

// BindShortTimer binds short-table slot id to the named responder service.
func (s *Scheduler) BindShortTimer(name string, id event.TimerID, responder string) {
	s.shortDecls = append(s.shortDecls, timerDecl{name: name, id: id, responder: responder})
}

// DefineList declares a distribution list over the named services.
func (s *Scheduler) DefineList(name string, members ...string) {
	s.listDecls = append(s.listDecls, listDecl{name: name, members: members})
}

// AddChecker appends an event checker. Checkers are polled in the order
// they were added.
func (s *Scheduler) AddChecker(name string, c Checker) {
	s.checkers = append(s.checkers, checkerSlot{name: name, fn: c})
}

// Initialize resolves the timer and list tables, calls every service's
// Init in ascending priority order, then posts Init to every service.
//
// Any error returned here is fatal: the loop must not start.
func (s *Scheduler) Initialize() error {
	if s.initialized {
		return nil
	}
	if len(s.services) == 0 {
		return &RuntimeError{Code: ErrCodeNullConfig, Message: "no services registered"}
	}
	if err := s.buildTables(); err != nil {
		return err
	}

	for _, slot := range s.services {
		if err := slot.svc.Init(&serviceContext{s: s, id: slot.id}); err != nil {
			return newFatalError(ErrCodeFailedInit, slot.name, err)
		}
	}

	s.initialized = true
	if err := s.postInit(); err != nil {
		s.initialized = false
		return err
	}

	s.logger.Info("scheduler initialized",
		"services", len(s.services),
		"timers", len(s.timers.Bindings()),
		"short_timers", len(s.short.Bindings()),
		"lists", len(s.lists),
		"checkers", len(s.checkers),
	)
	return nil
}

func (s *Scheduler) postInit() error {
	prev := s.enter(SourceInit, true)
	defer s.leave(prev)
	for _, slot := range s.services {
		if err := s.post(slot.id, event.New(event.Init)); err != nil {
			return newFatalError(ErrCodeFailedPost, slot.name, err)
		}
	}
	return nil
}

func (s *Scheduler) buildTables() error {
	var errs []error

	timers, err := NewTimerTable(event.Timeout, s.timerSlots)
	if err != nil {
		return err
	}
	short, err := NewTimerTable(event.ShortTimeout, s.shortSlots)
	if err != nil {
		return err
	}
	for _, d := range s.timerDecls {
		errs = append(errs, s.bindDecl(timers, d))
	}
	for _, d := range s.shortDecls {
		errs = append(errs, s.bindDecl(short, d))
	}
	timers.Freeze()
	short.Freeze()

	lists := make(map[string]*DistributionList, len(s.listDecls))
	for _, d := range s.listDecls {
		if _, dup := lists[d.name]; dup {
			errs = append(errs, NewConfigError("list %q defined twice", d.name))
			continue
		}
		if len(d.members) == 0 {
			errs = append(errs, NewConfigError("list %q has no members", d.name))
			continue
		}
		members := make([]Poster, 0, len(d.members))
		for _, m := range d.members {
			h, ok := s.handle(m)
			if !ok {
				errs = append(errs, NewConfigError("list %q: unknown member %q", d.name, m))
				continue
			}
			members = append(members, h)
		}
		lists[d.name] = NewDistributionList(d.name, members...)
	}

	for _, c := range s.checkers {
		if c.fn == nil {
			errs = append(errs, &RuntimeError{Code: ErrCodeNullConfig, Message: fmt.Sprintf("checker %q is nil", c.name)})
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.timers, s.short, s.lists = timers, short, lists
	return nil
}

func (s *Scheduler) bindDecl(t *TimerTable, d timerDecl) error {
	h, ok := s.handle(d.responder)
	if !ok {
		return NewConfigError("%s %q: unknown responder %q", t.Kind(), d.name, d.responder)
	}
	return t.Bind(d.name, d.id, h)
}

func (s *Scheduler) handle(name string) (Handle, bool) {
	id, ok := s.byName[name]
	if !ok {
		return Handle{}, false
	}
	return Handle{id: id, sched: s}, true
}

// origin is who is posting and whether reserved tags are allowed.
type origin struct {
	source   string
	internal bool
}

// enter switches the posting origin and returns the previous one.
func (s *Scheduler) enter(source string, internal bool) origin {
	prev := origin{source: s.source, internal: s.internal}
	s.source, s.internal = source, internal
	return prev
}

func (s *Scheduler) leave(prev origin) {
	s.source, s.internal = prev.source, prev.internal
}

// post is the single enqueue path for every event in the system.
func (s *Scheduler) post(id ServiceID, ev event.Event) error {
	slot := s.services[id]
	if err := ev.Validate(); err != nil {
		return NewInvalidEventError(slot.name, err)
	}
	if ev.Type.Reserved() && !s.internal {
		return NewInvalidEventError(slot.name, fmt.Errorf("reserved event %s posted by %s", ev.Type, s.source))
	}
	if ev.Param == nil {
		ev.Param = event.Empty{}
	}
	if !slot.queue.Push(ev) {
		s.stats.Dropped++
		s.emit(RecordDrop, slot, ev)
		return NewQueueFullError(slot.name, "service", slot.queue.Cap())
	}
	s.stats.Posted++
	s.emit(RecordPost, slot, ev)
	return nil
}

func (s *Scheduler) emit(kind RecordKind, slot *serviceSlot, ev event.Event) {
	if len(s.observers) == 0 {
		return
	}
	rec := Record{
		Seq:     s.clock.Next(),
		Tick:    s.clock.Ticks(),
		Kind:    kind,
		Service: slot.name,
		Event:   ev,
	}
	switch kind {
	case RecordPost, RecordDrop:
		rec.Source = s.source
	default:
		if sr, ok := slot.svc.(StateReporter); ok {
			rec.State = sr.State()
		}
	}
	for _, o := range s.observers {
		o.Observe(rec)
	}
}

// Post enqueues ev for the named service from outside the loop's run
// functions (a harness step, a keystroke, a test).
func (s *Scheduler) Post(name string, ev event.Event) error {
	h, ok := s.handle(name)
	if !ok {
		return NewConfigError("post to unknown service %q", name)
	}
	return h.Post(ev)
}

// PostList posts ev to every member of the named list.
func (s *Scheduler) PostList(name string, ev event.Event) error {
	l, ok := s.lists[name]
	if !ok {
		return NewConfigError("post to unknown list %q", name)
	}
	return l.Post(ev)
}

// RunCycle executes one pass of the loop: poll every checker, then deliver
// at most one event to each service, highest priority first.
func (s *Scheduler) RunCycle() (CycleStats, error) {
	var cs CycleStats
	if !s.initialized {
		return cs, ErrNotInitialized
	}
	if s.dispatching {
		return cs, ErrReentrantCycle
	}
	s.stats.Cycles++

	for _, c := range s.checkers {
		prev := s.enter("checker:"+c.name, false)
		if c.fn.Check() {
			cs.Checks++
		}
		s.leave(prev)
	}

	for i := len(s.services) - 1; i >= 0; i-- {
		slot := s.services[i]
		ev, ok := slot.queue.Pop()
		if !ok {
			continue
		}
		s.dispatch(slot, ev)
		cs.Dispatched++
	}
	return cs, nil
}

func (s *Scheduler) dispatch(slot *serviceSlot, ev event.Event) {
	prev := s.enter(slot.name, false)
	s.dispatching = true
	defer func() {
		s.dispatching = false
		s.leave(prev)
	}()

	s.stats.Dispatched++
	result := s.runService(slot, ev)
	s.emit(RecordDispatch, slot, ev)

	if result.Type == event.Error {
		s.stats.Errors++
		s.emit(RecordError, slot, ev)
		slot.logger.Error("run function reported error",
			"event", ev.String(),
			"result", result.String(),
		)
	}
}

// runService calls the run function, turning a panic into an Error status
// so one faulty service cannot stop the loop.
func (s *Scheduler) runService(slot *serviceSlot, ev event.Event) (result event.Event) {
	defer func() {
		if r := recover(); r != nil {
			slot.logger.Error("run function panicked",
				"event", ev.String(),
				"panic", fmt.Sprint(r),
			)
			result = event.New(event.Error)
		}
	}()
	return slot.svc.Run(ev)
}

// Tick advances the main timer table by one tick and posts any expiries.
// Post failures are logged and returned; they never stop the loop.
func (s *Scheduler) Tick() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	s.clock.Advance()
	return s.tickTable(s.timers, SourceTimer)
}

// TickShort advances the short timer table by one tick.
func (s *Scheduler) TickShort() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	return s.tickTable(s.short, SourceShortTimer)
}

func (s *Scheduler) tickTable(t *TimerTable, source string) error {
	prev := s.enter(source, true)
	defer s.leave(prev)
	fired, err := t.Tick()
	s.stats.Expiries += uint64(fired)
	if err != nil {
		s.logger.Warn("timer expiry dropped", "table", t.Kind().String(), "error", err)
	}
	return err
}

// Advance runs n main ticks. Each main tick is preceded by the short ticks
// that fit in one main period, and every tick is followed by cycles until
// idle. Used by tests and the scenario harness.
func (s *Scheduler) Advance(n int) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	per := s.shortPerTick()
	for i := 0; i < n; i++ {
		for j := 0; j < per; j++ {
			_ = s.TickShort()
			if _, err := s.RunUntilIdle(0); err != nil {
				return err
			}
		}
		_ = s.Tick()
		if _, err := s.RunUntilIdle(0); err != nil {
			return err
		}
	}
	return nil
}

// shortPerTick is the number of short ticks in one main tick, or zero when
// no short timer is bound.
func (s *Scheduler) shortPerTick() int {
	if len(s.short.Bindings()) == 0 || s.shortRate <= 0 {
		return 0
	}
	return int(s.tickRate / s.shortRate)
}

// RunUntilIdle runs cycles until one does nothing, or until maxCycles
// cycles have run when maxCycles > 0. Returns the number of cycles run.
func (s *Scheduler) RunUntilIdle(maxCycles int) (int, error) {
	n := 0
	for maxCycles <= 0 || n < maxCycles {
		cs, err := s.RunCycle()
		if err != nil {
			return n, err
		}
		n++
		if cs.Idle() {
			break
		}
	}
	return n, nil
}

// Run drives the loop in real time until ctx is cancelled. The main table
// ticks every tick period and the short table every short period. Between
// ticks, cycles run back to back while there is work; an idle loop waits
// for the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	s.logger.Info("scheduler starting", "tick", s.tickRate, "short_tick", s.shortRate)

	main := time.NewTicker(s.tickRate)
	defer main.Stop()
	var shortC <-chan time.Time
	if len(s.short.Bindings()) > 0 {
		short := time.NewTicker(s.shortRate)
		defer short.Stop()
		shortC = short.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-main.C:
			_ = s.Tick()
		case <-shortC:
			_ = s.TickShort()
		default:
		}

		cs, err := s.RunCycle()
		if err != nil {
			return err
		}
		if !cs.Idle() {
			continue
		}

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-main.C:
			_ = s.Tick()
		case <-shortC:
			_ = s.TickShort()
		}
	}
}

// Initialized reports whether Initialize succeeded.
func (s *Scheduler) Initialized() bool {
	return s.initialized
}

// Clock returns the trace clock.
func (s *Scheduler) Clock() *Clock {
	return s.clock
}

// Stats returns activity counters since Initialize.
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// Timers returns the main timer table, or nil before Initialize.
func (s *Scheduler) Timers() *TimerTable {
	return s.timers
}

// ShortTimers returns the short timer table, or nil before Initialize.
func (s *Scheduler) ShortTimers() *TimerTable {
	return s.short
}

// Handle resolves a registered service by name.
func (s *Scheduler) Handle(name string) (Handle, bool) {
	return s.handle(name)
}

// Service returns the registered service by name.
func (s *Scheduler) Service(name string) (Service, bool) {
	id, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.services[id].svc, true
}

// List returns a defined distribution list, or nil before Initialize.
func (s *Scheduler) List(name string) (*DistributionList, bool) {
	l, ok := s.lists[name]
	return l, ok
}

// ServiceInfo describes one registered service.
type ServiceInfo struct {
	ID       ServiceID
	Name     string
	QueueCap int
	Pending  int
	State    string
}

// Services lists the registered services in priority order, lowest first.
func (s *Scheduler) Services() []ServiceInfo {
	out := make([]ServiceInfo, 0, len(s.services))
	for _, slot := range s.services {
		info := ServiceInfo{
			ID:       slot.id,
			Name:     slot.name,
			QueueCap: slot.queue.Cap(),
			Pending:  slot.queue.Len(),
		}
		if sr, ok := slot.svc.(StateReporter); ok {
			info.State = sr.State()
		}
		out = append(out, info)
	}
	return out
}

// Pending copies the named service's queued events in FIFO order.
func (s *Scheduler) Pending(name string) []event.Event {
	id, ok := s.byName[name]
	if !ok {
		return nil
	}
	return s.services[id].queue.Snapshot()
}

// Idle reports whether every service queue is empty.
func (s *Scheduler) Idle() bool {
	for _, slot := range s.services {
		if slot.queue.Len() > 0 {
			return false
		}
	}
	return true
}

// serviceContext is the Framework handed to one service's Init.
type serviceContext struct {
	s  *Scheduler
	id ServiceID
}

func (c *serviceContext) Self() Handle {
	return Handle{id: c.id, sched: c.s}
}

func (c *serviceContext) Lookup(name string) (Handle, error) {
	h, ok := c.s.handle(name)
	if !ok {
		return Handle{}, NewConfigError("service %q: unknown peer %q", c.s.services[c.id].name, name)
	}
	return h, nil
}

func (c *serviceContext) List(name string) (*DistributionList, error) {
	l, ok := c.s.lists[name]
	if !ok {
		return nil, NewConfigError("service %q: unknown list %q", c.s.services[c.id].name, name)
	}
	return l, nil
}

func (c *serviceContext) Timer(name string) (TimerRef, error) {
	return c.timerRef(c.s.timers, name)
}

func (c *serviceContext) ShortTimer(name string) (TimerRef, error) {
	return c.timerRef(c.s.short, name)
}

func (c *serviceContext) timerRef(t *TimerTable, name string) (TimerRef, error) {
	id, ok := t.Lookup(name)
	if !ok {
		return TimerRef{}, NewConfigError("service %q: unknown %s timer %q", c.s.services[c.id].name, t.Kind(), name)
	}
	return TimerRef{table: t, id: id, name: name}, nil
}

// NewDeferralQueue recalls through the internal post path: a parked event
// was already accepted once, so reserved tags such as Timeout are replayed.
func (c *serviceContext) NewDeferralQueue(capacity int) *DeferralQueue {
	slot := c.s.services[c.id]
	replay := PosterFunc(func(ev event.Event) error {
		prev := c.s.enter(c.s.source, true)
		defer c.s.leave(prev)
		return c.s.post(c.id, ev)
	})
	d := NewDeferralQueue(replay, capacity)
	d.name = slot.name
	d.observe = func(kind RecordKind, ev event.Event) {
		c.s.emit(kind, slot, ev)
	}
	return d
}

func (c *serviceContext) Logger() *slog.Logger {
	return c.s.services[c.id].logger
}
