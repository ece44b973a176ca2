package game

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"crashd/internal/wire"
)

const (
	BETTING_SECONDS    = 10
	COUNTDOWN_INTERVAL = 1 * time.Second
	TICK_INTERVAL      = 100 * time.Millisecond
	PAUSE_TIME         = 5 * time.Second
	MULTIPLIER_STEP    = 0.01
	MIN_MULTIPLIER     = 1.00
	INTENT_BUFFER      = 256
	RECORD_TIMEOUT     = 5 * time.Second
)

// Engine drives the round state machine: BETTING -> FLIGHT -> PAUSE and
// around again, for the life of the process. It is a single goroutine
// that owns every piece of round and ledger state; client actions arrive
// as intents on a channel and outbound events leave through the hub, so
// there is no shared-state locking between sessions and the round loop.
type Engine struct {
	registry *Registry
	hub      *Hub

	// Formula computes the explosion ceiling when betting closes.
	Formula ExplosionFunc
	// Events receives the structured round log.
	Events *EventLogger

	// Timing knobs, defaulted to the canonical schedule. Tests shrink
	// them; production code leaves them alone.
	BettingSeconds    int
	CountdownInterval time.Duration
	TickInterval      time.Duration
	PauseTime         time.Duration

	recorders []RoundRecorder

	intents  chan intent
	stopChan chan struct{}
	stopOnce sync.Once

	// Owned by the run goroutine.
	roundID             int
	phase               Phase
	currentMultiplier   float64
	explosionMultiplier float64
	lastExplosion       float64
	houseProfit         float64
	settlements         []Settlement

	snapMu sync.RWMutex
	snap   RoundSnapshot
}

func NewEngine(registry *Registry, hub *Hub) *Engine {
	return &Engine{
		registry:          registry,
		hub:               hub,
		Formula:           ExplosionStakeWeighted,
		Events:            NewEventLogger(os.Stdout),
		BettingSeconds:    BETTING_SECONDS,
		CountdownInterval: COUNTDOWN_INTERVAL,
		TickInterval:      TICK_INTERVAL,
		PauseTime:         PAUSE_TIME,
		intents:           make(chan intent, INTENT_BUFFER),
		stopChan:          make(chan struct{}),
		phase:             PhasePause,
	}
}

// AddRecorder attaches a round persistence sink. Must be called before
// Run.
func (e *Engine) AddRecorder(r RoundRecorder) {
	if r != nil {
		e.recorders = append(e.recorders, r)
	}
}

// Run executes rounds until Stop. It is the only goroutine allowed to
// touch round state, ledger fields and player round flags.
func (e *Engine) Run() {
	log.Println("[GAME] Round engine started")
	for {
		select {
		case <-e.stopChan:
			log.Println("[GAME] Round engine stopped")
			return
		default:
			e.runRound()
		}
	}
}

// Stop terminates the round loop. Idempotent.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopChan) })
}

// Join primes a freshly connected player with the current phase.
func (e *Engine) Join(p *Player) { e.submit(intent{kind: intentJoin, player: p}) }

// Bet proposes a stake for the current round.
func (e *Engine) Bet(p *Player, amount float64) {
	e.submit(intent{kind: intentBet, player: p, amount: amount})
}

// Cashout proposes converting the player's stake at the live multiplier.
func (e *Engine) Cashout(p *Player) { e.submit(intent{kind: intentCashout, player: p}) }

// Leave settles any open stake as a house win and releases the slot.
// Safe to call after Stop; the slot is then released directly.
func (e *Engine) Leave(p *Player) {
	select {
	case e.intents <- intent{kind: intentLeave, player: p}:
	case <-e.stopChan:
		e.registry.Release(p)
	}
}

func (e *Engine) submit(it intent) {
	select {
	case e.intents <- it:
	case <-e.stopChan:
	}
}

// Snapshot returns the public view of the live round.
func (e *Engine) Snapshot() RoundSnapshot {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.snap
}

func (e *Engine) runRound() {
	e.enterBetting()
	if !e.runBetting() {
		return
	}
	e.enterFlight()
	if !e.runFlight() {
		return
	}
	e.pause()
}

// enterBetting resets per-player round flags and opens the wager window.
// Profits persist across rounds; stakes and cashout marks do not.
func (e *Engine) enterBetting() {
	e.roundID++
	e.phase = PhaseBetting
	e.currentMultiplier = MIN_MULTIPLIER
	e.explosionMultiplier = 0
	e.settlements = nil

	for _, p := range e.registry.Snapshot() {
		p.betValue = 0
		p.hasBet = false
		p.hasCashedOut = false
	}
	e.registry.SetTimeRemaining(e.BettingSeconds)
	e.publishSnapshot()

	e.Events.Log(wire.TagStart, wire.BroadcastID,
		Count("N", e.registry.Live()), Num("house_profit", e.houseProfit))

	e.hub.Broadcast(wire.Message{
		PlayerID:     wire.BroadcastID,
		Value:        float32(e.BettingSeconds),
		Type:         wire.TagStart,
		PlayerProfit: wire.Unused,
		HouseProfit:  float32(e.houseProfit),
	})
}

func (e *Engine) runBetting() bool {
	remaining := e.BettingSeconds
	ticker := time.NewTicker(e.CountdownInterval)
	defer ticker.Stop()

	for remaining > 0 {
		select {
		case <-ticker.C:
			remaining--
			e.registry.SetTimeRemaining(remaining)
			e.publishSnapshot()
		case it := <-e.intents:
			e.handle(it)
		case <-e.stopChan:
			return false
		}
	}
	return true
}

// enterFlight closes the betting window and fixes the explosion ceiling
// from whoever actually staked.
func (e *Engine) enterFlight() {
	bettors, staked := e.countBets()
	e.explosionMultiplier = e.Formula(bettors, staked)
	e.phase = PhaseFlight
	e.publishSnapshot()

	e.Events.Log(wire.TagClosed, wire.BroadcastID,
		Num("me", e.explosionMultiplier), Count("N", bettors), Num("V", staked),
		Num("house_profit", e.houseProfit))

	e.hub.Broadcast(wire.Message{
		PlayerID:     wire.BroadcastID,
		Value:        wire.Unused,
		Type:         wire.TagClosed,
		PlayerProfit: wire.Unused,
		HouseProfit:  float32(e.houseProfit),
	})
}

func (e *Engine) runFlight() bool {
	ticker := time.NewTicker(e.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.currentMultiplier += MULTIPLIER_STEP
			clamped := e.currentMultiplier >= e.explosionMultiplier
			if clamped {
				e.currentMultiplier = e.explosionMultiplier
			}
			e.publishSnapshot()

			e.Events.Log(wire.TagMultiplier, wire.BroadcastID,
				Num("m", e.currentMultiplier), Num("house_profit", e.houseProfit))

			// Only live bettors ride the flight; spectators and
			// cashed-out players wait for the explosion.
			e.hub.Tick(wire.Message{
				PlayerID:     wire.BroadcastID,
				Value:        float32(e.currentMultiplier),
				Type:         wire.TagMultiplier,
				PlayerProfit: wire.Unused,
				HouseProfit:  float32(e.houseProfit),
			}, func(p *Player) bool { return p.hasBet && !p.hasCashedOut })

			if clamped {
				// Final tick interval: cashouts that raced the clamp
				// still settle at the ceiling before the explosion.
				if !e.graceWindow() {
					return false
				}
				e.explode()
				return true
			}

		case it := <-e.intents:
			e.handle(it)
		case <-e.stopChan:
			return false
		}
	}
}

func (e *Engine) graceWindow() bool {
	grace := time.NewTimer(e.TickInterval)
	defer grace.Stop()
	for {
		select {
		case <-grace.C:
			return true
		case it := <-e.intents:
			e.handle(it)
		case <-e.stopChan:
			return false
		}
	}
}

// explode ends the flight: broadcast the crash, then move every
// unclaimed stake to the house exactly once.
func (e *Engine) explode() {
	e.lastExplosion = e.explosionMultiplier
	bettors, staked := e.countBets()

	e.Events.Log(wire.TagExplode, wire.BroadcastID,
		Num("m", e.explosionMultiplier), Num("house_profit", e.houseProfit))

	e.hub.Broadcast(wire.Message{
		PlayerID:     wire.BroadcastID,
		Value:        float32(e.explosionMultiplier),
		Type:         wire.TagExplode,
		PlayerProfit: wire.Unused,
		HouseProfit:  float32(e.houseProfit),
	})

	houseBefore := e.houseProfit
	for _, p := range e.registry.Snapshot() {
		if !p.hasBet || p.hasCashedOut {
			continue
		}
		p.currentProfit -= p.betValue
		e.houseProfit += p.betValue

		e.Events.Log(wire.TagExplode, p.ID, Num("m", e.explosionMultiplier))
		e.Events.Log(wire.TagProfit, p.ID, Num("player_profit", p.currentProfit))

		e.settlements = append(e.settlements, Settlement{
			RoundID:    e.roundID,
			PlayerID:   p.ID,
			Nickname:   p.Name,
			Stake:      p.betValue,
			Multiplier: e.explosionMultiplier,
			Delta:      -p.betValue,
			Won:        false,
		})

		e.hub.Send(p, wire.Message{
			PlayerID:     p.ID,
			Value:        wire.Unused,
			Type:         wire.TagProfit,
			PlayerProfit: float32(p.currentProfit),
			HouseProfit:  float32(e.houseProfit),
		})
	}

	e.Events.Log(wire.TagProfit, wire.BroadcastID, Num("house_profit", e.houseProfit))
	e.publishSnapshot()

	e.record(RoundResult{
		RoundID:     e.roundID,
		Explosion:   e.explosionMultiplier,
		Bettors:     bettors,
		Staked:      staked,
		HouseDelta:  e.houseProfit - houseBefore,
		HouseProfit: e.houseProfit,
		CrashedAt:   time.Now(),
		Settlements: e.settlements,
	})
}

func (e *Engine) pause() {
	e.phase = PhasePause
	e.registry.SetTimeRemaining(0)
	e.publishSnapshot()

	timer := time.NewTimer(e.PauseTime)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return
		case it := <-e.intents:
			e.handle(it)
		case <-e.stopChan:
			return
		}
	}
}

func (e *Engine) handle(it intent) {
	p := it.player
	if p == nil {
		return
	}

	switch it.kind {
	case intentJoin:
		e.prime(p)

	case intentBet:
		if e.phase != PhaseBetting || p.hasBet || it.amount <= 0 || p.Released() {
			return // off-phase or duplicate bets are silently dropped
		}
		p.betValue = it.amount
		p.hasBet = true
		e.Events.Log(wire.TagBet, p.ID, Num("bet", p.betValue))

	case intentCashout:
		if e.phase != PhaseFlight || !p.hasBet || p.hasCashedOut || p.Released() {
			return
		}
		winnings := p.betValue * e.currentMultiplier
		delta := winnings - p.betValue
		p.currentProfit += delta
		e.houseProfit -= delta
		p.hasCashedOut = true

		e.Events.Log(wire.TagCashout, p.ID, Num("m", e.currentMultiplier))
		e.Events.Log(wire.TagPayout, p.ID, Num("payout", winnings))
		e.Events.Log(wire.TagProfit, p.ID, Num("player_profit", p.currentProfit))

		e.settlements = append(e.settlements, Settlement{
			RoundID:    e.roundID,
			PlayerID:   p.ID,
			Nickname:   p.Name,
			Stake:      p.betValue,
			Multiplier: e.currentMultiplier,
			Delta:      delta,
			Won:        true,
		})
		e.publishSnapshot()

		e.hub.Send(p, wire.Message{
			PlayerID:     p.ID,
			Value:        float32(e.currentMultiplier),
			Type:         wire.TagPayout,
			PlayerProfit: float32(p.currentProfit),
			HouseProfit:  float32(e.houseProfit),
		})

	case intentLeave:
		if p.Released() {
			return
		}
		// Settle-then-release: an open stake abandoned mid-flight is a
		// house win now, and the freed slot is skipped at explosion.
		if e.phase == PhaseFlight && p.hasBet && !p.hasCashedOut {
			p.currentProfit -= p.betValue
			e.houseProfit += p.betValue
			e.settlements = append(e.settlements, Settlement{
				RoundID:    e.roundID,
				PlayerID:   p.ID,
				Nickname:   p.Name,
				Stake:      p.betValue,
				Multiplier: e.currentMultiplier,
				Delta:      -p.betValue,
				Won:        false,
			})
			e.Events.Log(wire.TagProfit, p.ID,
				Num("player_profit", p.currentProfit), Num("house_profit", e.houseProfit))
		}
		e.Events.Log(wire.TagBye, p.ID)
		e.registry.Release(p)
		e.publishSnapshot()
	}
}

// prime sends the single phase-appropriate snapshot to a new player:
// the remaining betting window, or a closed notice outside of it.
func (e *Engine) prime(p *Player) {
	if p.Released() {
		return
	}
	m := wire.Message{
		PlayerID:     wire.BroadcastID,
		PlayerProfit: float32(p.currentProfit),
		HouseProfit:  float32(e.houseProfit),
	}
	if e.phase == PhaseBetting {
		m.Type = wire.TagStart
		m.Value = float32(e.registry.TimeRemaining())
	} else {
		m.Type = wire.TagClosed
		m.Value = wire.Unused
	}
	e.hub.Send(p, m)
	e.publishSnapshot()
}

func (e *Engine) countBets() (bettors int, staked float64) {
	for _, p := range e.registry.Snapshot() {
		if p.hasBet {
			bettors++
			staked += p.betValue
		}
	}
	return bettors, staked
}

// HouseProfit reports the running house ledger. Read-only outside the
// engine; exposed for the status server via the snapshot as well.
func (e *Engine) HouseProfit() float64 {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.snap.HouseProfit
}

func (e *Engine) publishSnapshot() {
	snap := RoundSnapshot{
		RoundID:           e.roundID,
		Phase:             e.phase,
		TimeRemaining:     e.registry.TimeRemaining(),
		CurrentMultiplier: e.currentMultiplier,
		LastExplosion:     e.lastExplosion,
		HouseProfit:       e.houseProfit,
		Players:           e.registry.Live(),
	}
	e.snapMu.Lock()
	e.snap = snap
	e.snapMu.Unlock()
}

// record hands the finished round to every recorder off the round loop.
func (e *Engine) record(result RoundResult) {
	if len(e.recorders) == 0 {
		return
	}
	recorders := e.recorders
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), RECORD_TIMEOUT)
		defer cancel()
		for _, r := range recorders {
			if err := r.RecordRound(ctx, result); err != nil {
				log.Printf("[GAME] Record round %d: %v", result.RoundID, err)
			}
		}
	}()
}
