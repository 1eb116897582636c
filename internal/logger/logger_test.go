package logger

import "testing"

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		t.Run(env, func(t *testing.T) {
			log, err := New(env)
			if err != nil {
				t.Fatalf("New(%q) failed: %v", env, err)
			}
			debug := log.Core().Enabled(-1)
			if env == "production" && debug {
				t.Error("Expected debug to be disabled in production")
			}
			if env != "production" && !debug {
				t.Error("Expected debug to be enabled outside production")
			}
		})
	}
}
