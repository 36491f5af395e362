package server

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fxpool/shiftsocket"
)

type stubFacts struct {
	err error
}

func (f stubFacts) Fact(cmd Command) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "fact:" + cmd.String(), nil
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  Command
	}{
		{"TIME", CommandTime},
		{"time", CommandTime},
		{" Date\n", CommandDate},
		{"\tTEMP\r\n", CommandTemp},
		{"TIMES", CommandUnknown},
		{"TI ME", CommandUnknown},
		{"", CommandUnknown},
		{"FOO", CommandUnknown},
		{"\xff\xfe", CommandUnknown},
	}
	for _, tt := range tests {
		if got := ParseCommand([]byte(tt.input)); got != tt.want {
			t.Errorf("ParseCommand(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestRespond(t *testing.T) {
	cmd, answer, err := Respond(stubFacts{}, []byte("temp"))
	if err != nil {
		t.Fatalf("Respond() error: %v", err)
	}
	if cmd != CommandTemp || answer != "fact:TEMP" {
		t.Errorf("Respond() = %v, %q", cmd, answer)
	}
}

func TestRespondUnknown(t *testing.T) {
	cmd, answer, err := Respond(stubFacts{}, []byte("FOO"))
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("Respond(FOO) error = %v, want ErrUnknownCommand", err)
	}
	if cmd != CommandUnknown {
		t.Errorf("command = %v, want UNKNOWN", cmd)
	}
	if answer != shiftsocket.UnknownCommandReply {
		t.Errorf("answer = %q, want %q", answer, shiftsocket.UnknownCommandReply)
	}
}

func TestRespondProviderError(t *testing.T) {
	boom := errors.New("clock unavailable")
	_, _, err := Respond(stubFacts{err: boom}, []byte("TIME"))
	if !errors.Is(err, boom) {
		t.Errorf("Respond() error = %v, want %v", err, boom)
	}
}

func TestCommandString(t *testing.T) {
	for cmd, want := range map[Command]string{
		CommandTime:    "TIME",
		CommandDate:    "DATE",
		CommandTemp:    "TEMP",
		CommandUnknown: "UNKNOWN",
	} {
		if got := cmd.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(cmd), got, want)
		}
	}
}

func TestSystemFacts(t *testing.T) {
	now := time.Date(2024, time.March, 9, 14, 5, 7, 123456789, time.UTC)
	var asked int
	facts := SystemFacts{
		Now: func() time.Time { return now },
		IntN: func(n int) int {
			asked = n
			return 0
		},
	}

	tests := []struct {
		cmd  Command
		want string
	}{
		{CommandTime, "14:05:07.123456"},
		{CommandDate, "2024-03-09"},
		{CommandTemp, "-50°C"},
	}
	for _, tt := range tests {
		got, err := facts.Fact(tt.cmd)
		if err != nil {
			t.Fatalf("Fact(%v) error: %v", tt.cmd, err)
		}
		if got != tt.want {
			t.Errorf("Fact(%v) = %q, want %q", tt.cmd, got, tt.want)
		}
	}
	if asked != MaxTemperature-MinTemperature+1 {
		t.Errorf("IntN called with %d, want %d", asked, MaxTemperature-MinTemperature+1)
	}

	if _, err := facts.Fact(CommandUnknown); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Fact(UNKNOWN) error = %v", err)
	}
}

func TestSystemFactsTemperatureRange(t *testing.T) {
	high := SystemFacts{IntN: func(n int) int { return n - 1 }}
	if got, _ := high.Fact(CommandTemp); got != "50°C" {
		t.Errorf("top of range = %q, want 50°C", got)
	}

	var facts SystemFacts
	for i := 0; i < 200; i++ {
		got, err := facts.Fact(CommandTemp)
		if err != nil {
			t.Fatalf("Fact(TEMP) error: %v", err)
		}
		var c int
		if _, err := fmt.Sscanf(got, "%d°C", &c); err != nil {
			t.Fatalf("unparseable temperature %q: %v", got, err)
		}
		if c < MinTemperature || c > MaxTemperature {
			t.Fatalf("temperature %d out of range", c)
		}
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Date(2024, 1, 1, 9, 3, 2, 0, time.UTC), "09:03:02"},
		{time.Date(2024, 1, 1, 9, 3, 2, 999, time.UTC), "09:03:02"},
		{time.Date(2024, 1, 1, 23, 59, 59, 1000, time.UTC), "23:59:59.000001"},
		{time.Date(2024, 1, 1, 0, 0, 0, 500000000, time.UTC), "00:00:00.500000"},
	}
	for _, tt := range tests {
		if got := FormatTime(tt.t); got != tt.want {
			t.Errorf("FormatTime(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestFormatTemperature(t *testing.T) {
	if got := FormatTemperature(-7); got != "-7°C" {
		t.Errorf("FormatTemperature(-7) = %q", got)
	}
	if got := FormatTemperature(0); got != "0°C" {
		t.Errorf("FormatTemperature(0) = %q", got)
	}
}
