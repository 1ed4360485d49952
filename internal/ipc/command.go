package ipc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ParseCommand turns a short command line into an event. It backs dwin-ctl
// and the simulator's command prompt.
//
//	cw|ccw|press [n]
//	notify <name>
//	card insert|remove
//	runout on|off
func ParseCommand(args []string) (Event, error) {
	if len(args) == 0 {
		return nil, errors.New("missing command")
	}

	switch args[0] {
	case "cw", "up", "increase", "ccw", "down", "decrease", "press", "confirm", "enter":
		count := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid count %q", args[1])
			}
			count = n
		}
		ev := Input{Input: args[0], Count: count}
		if _, err := ev.Inputs(); err != nil {
			return nil, err
		}
		return ev, nil

	case "notify":
		if len(args) < 2 {
			return nil, errors.New("notify requires a notification name")
		}
		ev := Notify{Name: args[1]}
		if _, err := ev.Notification(); err != nil {
			return nil, err
		}
		return ev, nil

	case "card":
		if len(args) < 2 {
			return nil, errors.New("card requires insert or remove")
		}
		switch args[1] {
		case "insert", "in":
			return SimMedia{Mounted: true}, nil
		case "remove", "out":
			return SimMedia{Mounted: false}, nil
		}
		return nil, fmt.Errorf("card: unknown action %q", args[1])

	case "runout":
		if len(args) < 2 {
			return nil, errors.New("runout requires on or off")
		}
		switch args[1] {
		case "on":
			return SimRunout{Runout: true}, nil
		case "off":
			return SimRunout{Runout: false}, nil
		}
		return nil, fmt.Errorf("runout: unknown state %q", args[1])
	}

	return nil, fmt.Errorf("unknown command: %s", args[0])
}

// ParseCommandLine splits line on whitespace and calls ParseCommand.
func ParseCommandLine(line string) (Event, error) {
	return ParseCommand(strings.Fields(line))
}
