package testutil

import "testing"

// Given, When and Then name subtests after a scenario's phases.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	phase(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	phase(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	phase(t, "Then", desc, fn)
}

func phase(t *testing.T, keyword, desc string, fn func(t *testing.T)) {
	t.Helper()
	if !t.Run(keyword+" "+desc, fn) {
		t.FailNow()
	}
}
