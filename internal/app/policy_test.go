package app

import "testing"

func TestPolicies(t *testing.T) {
	if got := (SimplePolicy{}).OnBackPressure("c1"); got != KickMember {
		t.Errorf("SimplePolicy = %v, want KickMember", got)
	}
	if got := (LenientPolicy{}).OnBackPressure("c1"); got != NoAction {
		t.Errorf("LenientPolicy = %v, want NoAction", got)
	}
}
