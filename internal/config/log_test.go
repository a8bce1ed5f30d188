package config

import (
	"testing"

	"github.com/charmbracelet/log"
)

func TestLog_Validate(t *testing.T) {
	tests := []struct {
		name    string
		log     Log
		wantErr bool
	}{
		{"defaults", Log{Level: "info", Format: "text"}, false},
		{"logfmt", Log{Level: "debug", Format: "logfmt"}, false},
		{"bad level", Log{Level: "loud", Format: "text"}, true},
		{"bad format", Log{Level: "info", Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.log.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLog_ConfigureWithLevelString(t *testing.T) {
	defer log.SetLevel(log.GetLevel())

	l := Log{Level: "info", Format: "text"}
	if err := l.Validate(); err != nil {
		t.Fatal(err)
	}

	l.ConfigureWithLevelString("debug", true)
	if l.ParsedLevel != log.DebugLevel || log.GetLevel() != log.DebugLevel {
		t.Errorf("expected flag level to win, got %s", l.ParsedLevel)
	}

	l.ConfigureWithLevelString("loud", false)
	if l.Level != "debug" {
		t.Errorf("invalid flag level should be ignored, got %q", l.Level)
	}
}
