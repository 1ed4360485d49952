package ipc

import "testing"

// TestParseCommand tests argument parsing into events
func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Event
	}{
		{"cw default count", []string{"cw"}, Input{Input: "cw", Count: 1}},
		{"ccw with count", []string{"ccw", "5"}, Input{Input: "ccw", Count: 5}},
		{"press", []string{"press"}, Input{Input: "press", Count: 1}},
		{"notify", []string{"notify", "print_finished"}, Notify{Name: "print_finished"}},
		{"card insert", []string{"card", "insert"}, SimMedia{Mounted: true}},
		{"card remove", []string{"card", "out"}, SimMedia{Mounted: false}},
		{"runout on", []string{"runout", "on"}, SimRunout{Runout: true}},
		{"runout off", []string{"runout", "off"}, SimRunout{Runout: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.args)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

// TestParseCommand_Errors tests rejected arguments
func TestParseCommand_Errors(t *testing.T) {
	tests := [][]string{
		{},
		{"spin"},
		{"cw", "zero"},
		{"cw", "-2"},
		{"cw", "1000"},
		{"notify"},
		{"notify", "coffee_ready"},
		{"card"},
		{"card", "eject"},
		{"runout", "maybe"},
	}

	for _, args := range tests {
		if _, err := ParseCommand(args); err == nil {
			t.Errorf("ParseCommand(%q): expected error, got nil", args)
		}
	}
}

// TestParseCommandLine tests whitespace splitting
func TestParseCommandLine(t *testing.T) {
	got, err := ParseCommandLine("  notify   heating_complete ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != (Notify{Name: "heating_complete"}) {
		t.Errorf("expected heating_complete notify, got %#v", got)
	}
}
