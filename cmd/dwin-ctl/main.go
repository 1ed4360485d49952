package main

import (
	"fmt"
	"os"

	"dwinhmi/internal/ipc"
)

// ============================================================================
// dwin-ctl - Command-line IPC Client
// ============================================================================
// Sends encoder input, subsystem notifications and simulator controls to the
// dwinhmi daemon.
//
// Usage:
//   dwin-ctl cw 3
//   dwin-ctl press
//   dwin-ctl notify homing_complete
//   dwin-ctl card remove
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/dwinhmi.sock)
// ============================================================================

const defaultSocketPath = "/tmp/dwinhmi.sock"

func main() {
	socketPath := defaultSocketPath
	if env := os.Getenv("DWINHMI_SOCKET"); env != "" {
		socketPath = env
	}

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)
	}

	ev, err := ipc.ParseCommand(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	if err := ipc.Send(socketPath, ev); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `dwin-ctl - Control the dwinhmi daemon via IPC

Usage:
  dwin-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: %s, or $DWINHMI_SOCKET)

Commands:
  cw, up [n]              Turn the encoder clockwise n detents
  ccw, down [n]           Turn the encoder counter-clockwise n detents
  press, enter [n]        Press the encoder button
  notify <name>           Deliver a printer notification:
                            homing_complete, leveling_complete,
                            filament_cleared, heating_complete,
                            print_finished, filament_heated,
                            filament_change_done, command_failed
  card insert|remove      Insert or remove the simulated card
  runout on|off           Set the simulated filament sensor
  help, -h, --help        Show this help message

Examples:
  dwin-ctl cw 4
  dwin-ctl notify homing_complete
  dwin-ctl -socket /run/dwinhmi.sock press
`, defaultSocketPath)
}
