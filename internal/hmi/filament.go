package hmi

// FilamentMonitor watches the runout sensor during a print.
//
// The monitor never pauses or disables anything itself. Evaluate reports the
// triggering edge and the controller routes it through the session's pause
// path with heaters kept hot.
type FilamentMonitor struct {
	enabled   bool
	armed     bool
	triggered bool
	awaiting  bool
	replay    bool
	faulted   bool
}

func (f *FilamentMonitor) Enabled() bool   { return f.enabled }
func (f *FilamentMonitor) Armed() bool     { return f.armed }
func (f *FilamentMonitor) Triggered() bool { return f.triggered }
func (f *FilamentMonitor) Awaiting() bool  { return f.awaiting }
func (f *FilamentMonitor) Replaying() bool { return f.replay }

// SetEnabled switches the feature. Turning it off disarms.
func (f *FilamentMonitor) SetEnabled(on bool) {
	f.enabled = on
	if !on {
		f.Disarm()
	}
}

// Arm resets the monitor for a fresh print. It stays disarmed when the
// feature is off.
func (f *FilamentMonitor) Arm() {
	f.Disarm()
	f.armed = f.enabled
}

// Disarm clears every flag except enabled and replay.
func (f *FilamentMonitor) Disarm() {
	f.armed = false
	f.triggered = false
	f.awaiting = false
	f.faulted = false
}

// SetReplay marks recovery replay in progress. Evaluate is inert meanwhile.
func (f *FilamentMonitor) SetReplay(on bool) { f.replay = on }

// Evaluate folds one sensor reading and reports the triggering edge.
// runout is true when the sensor reports no filament.
func (f *FilamentMonitor) Evaluate(runout bool) bool {
	if !f.armed || f.replay {
		return false
	}
	if !runout {
		f.triggered = false
		return false
	}
	if f.triggered || f.awaiting {
		return false
	}
	f.triggered = true
	f.awaiting = true
	return true
}

// Resolve closes the confirmation opened by a trigger.
func (f *FilamentMonitor) Resolve() { f.awaiting = false }

// Fault disarms after a sensor read error. It returns true the first time so
// the caller can log once.
func (f *FilamentMonitor) Fault() bool {
	first := !f.faulted
	f.armed = false
	f.faulted = true
	return first
}
