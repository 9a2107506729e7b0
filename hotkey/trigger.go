package hotkey

import (
	"context"
	"time"
)

// Trigger turns hotkey presses into primary actions. Every press fires once.
// A press that started a recording and was held for at least longPress fires
// again on release, so holding the key works as push-to-talk while a short
// tap toggles. longPress <= 0 disables the hold behavior.
func Trigger(ctx context.Context, hk Hotkey, longPress time.Duration, recording func() bool, fire func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hk.Keydown():
		}

		starting := !recording()
		fire()
		pressed := time.Now()

		select {
		case <-ctx.Done():
			return
		case <-hk.Keyup():
		}
		if starting && longPress > 0 && time.Since(pressed) >= longPress && recording() {
			fire()
		}
	}
}
