package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_REL = 0x02

	KEY_ENTER  = 28
	KEY_UP     = 103
	KEY_DOWN   = 108
	KEY_OK     = 0x160
	KEY_SELECT = 0x161
	BTN_0      = 0x100

	// Rotary encoder relative axis codes
	REL_X     = 0x00
	REL_Y     = 0x01
	REL_DIAL  = 0x07
	REL_WHEEL = 0x08
	REL_MISC  = 0x09
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Daemon defaults
const (
	defaultUpdateHz            = 50     // Controller tick frequency (Hz)
	defaultDebounceMS          = 20     // Menu debounce (ms)
	defaultBaud                = 115200 // DWIN T5UID1 default
	defaultMoonrakerTimeoutMS  = 5000
	defaultMoonrakerPollMS     = 250
	defaultBroadcastCoalesceMS = 100 // Latest-wins window for state broadcasts

	handshakeAttempts = 5
	handshakeWaitMS   = 200

	// maxDetentsPerEvent caps one relative event so a glitching encoder cannot
	// flood the input queue.
	maxDetentsPerEvent = 16
)
