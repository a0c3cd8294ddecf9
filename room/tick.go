// room/tick.go
package room

import "time"

// Tick advances the countdown of a running round. Remaining time is always
// recomputed from startedAt and the wall clock, never decremented, so a
// missed or delayed tick is absorbed by the next one. Ticking a room that
// is not RUNNING is a no-op.
func (r *Room) Tick() {
	r.mu.Lock()
	outs := r.tickLocked(r.now())
	r.mu.Unlock()
	r.publish(outs)
}

func (r *Room) tickLocked(now time.Time) []outbound {
	if r.state != StateRunning || r.startedAt.IsZero() {
		return nil
	}

	left := r.remainingLocked(now)
	var outs []outbound

	// One-shot warnings. The latches compare <= so a delayed tick that
	// jumps past the exact threshold still fires the warning once.
	if !r.warned60 && r.roundDurationSec >= 60 && left > 0 && left <= 60 {
		r.warned60 = true
		outs = append(outs, broadcastEvent(Warn60Event{Code: r.code, TimeLeft: left}))
	}
	if !r.warned30 && r.roundDurationSec > 30 && left > 0 && left <= 30 {
		r.warned30 = true
		outs = append(outs, broadcastEvent(Warn30Event{Code: r.code, TimeLeft: left}))
	}

	if left <= 0 {
		r.timeLeft = 0
		r.cancelTimerLocked()
		r.state = StateEnded
		outs = append(outs, broadcastEvent(TimeUpEvent{Code: r.code}), r.updatedLocked())
	}
	return outs
}

func (r *Room) remainingLocked(now time.Time) int {
	elapsed := int(now.Sub(r.startedAt) / time.Second)
	left := r.roundDurationSec - elapsed
	if left < 0 {
		return 0
	}
	return left
}
