package scheduler

import (
	"time"

	"github.com/sandeepkv93/taskngo/internal/model"
)

const (
	DefaultTick  = time.Second
	DefaultWidth = 3 * DefaultTick
	DefaultDecay = 10 * time.Second
)

// Windows tunes threshold detection. A threshold at offset o fires on the
// first tick where the remaining time falls in (o-Width, o]; Width must be at
// least the tick interval or a late tick skips the threshold. Shaking stops
// once the remaining time drops below the latest fired offset minus Decay.
type Windows struct {
	Width time.Duration
	Decay time.Duration
}

func DefaultWindows() Windows {
	return Windows{Width: DefaultWidth, Decay: DefaultDecay}
}

func (w Windows) normalized() Windows {
	if w.Width <= 0 {
		w.Width = DefaultWidth
	}
	if w.Decay <= 0 {
		w.Decay = DefaultDecay
	}
	return w
}

type EffectKind int

const (
	EffectSound EffectKind = iota
	EffectShake
	EffectDispatch
	EffectConfirm
)

func (k EffectKind) String() string {
	switch k {
	case EffectSound:
		return "sound"
	case EffectShake:
		return "shake"
	case EffectDispatch:
		return "dispatch"
	case EffectConfirm:
		return "confirm"
	default:
		return "unknown"
	}
}

// Effect is a side effect requested by EvaluateTask. The tick loop runs them
// after the task state has been stored.
type Effect struct {
	Kind      EffectKind
	TaskID    string
	Threshold model.Threshold
}

// EvaluateTask computes one tick of the reminder state machine for a task.
// It is pure: the returned task carries the new alert flags, shake state and
// pending confirmation, and the effects describe what the caller must do.
// At most one threshold fires per call.
func EvaluateTask(t model.Task, now time.Time, w Windows) (model.Task, []Effect) {
	if !t.Active() {
		return t, nil
	}
	w = w.normalized()
	remaining := t.DueAt.Sub(now)

	var effects []Effect
	for _, th := range model.Thresholds {
		if t.Alerts.Has(th) || !crossed(remaining, th.Offset(), w.Width) {
			continue
		}
		t.Alerts = t.Alerts.Set(th)
		t.IsShaking = true
		effects = append(effects,
			Effect{Kind: EffectSound, TaskID: t.ID, Threshold: th},
			Effect{Kind: EffectShake, TaskID: t.ID, Threshold: th},
			Effect{Kind: EffectDispatch, TaskID: t.ID, Threshold: th},
		)
		if th == model.ThresholdDue {
			t.PendingConfirmation = true
			effects = append(effects, Effect{Kind: EffectConfirm, TaskID: t.ID, Threshold: th})
		}
		break
	}

	if latest, ok := t.Alerts.Latest(); ok && t.IsShaking && remaining < latest.Offset()-w.Decay {
		t.IsShaking = false
	}
	return t, effects
}

func crossed(remaining, offset, window time.Duration) bool {
	return remaining <= offset && remaining > offset-window
}
