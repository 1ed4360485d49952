package hmi

// Notification is a subsystem callback folded into the next Tick.
type Notification int

const (
	NotifyHomingComplete Notification = iota
	NotifyLevelingComplete
	NotifyFilamentCleared
	NotifyHeatingComplete
	NotifyPrintFinished
	NotifyFilamentHeated
	NotifyFilamentChangeDone
	// NotifyCommandFailed reports a machine script that was rejected or
	// dropped by the backend.
	NotifyCommandFailed
)

var notificationNames = [...]string{
	NotifyHomingComplete:     "homing_complete",
	NotifyLevelingComplete:   "leveling_complete",
	NotifyFilamentCleared:    "filament_cleared",
	NotifyHeatingComplete:    "heating_complete",
	NotifyPrintFinished:      "print_finished",
	NotifyFilamentHeated:     "filament_heated",
	NotifyFilamentChangeDone: "filament_change_done",
	NotifyCommandFailed:      "command_failed",
}

func (n Notification) String() string {
	if n < 0 || int(n) >= len(notificationNames) {
		return "unknown"
	}
	return notificationNames[n]
}

// ParseNotification maps a wire name back to a Notification.
func ParseNotification(s string) (Notification, bool) {
	for i, name := range notificationNames {
		if name == s {
			return Notification(i), true
		}
	}
	return 0, false
}
