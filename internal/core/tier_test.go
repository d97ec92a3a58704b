package core

import "testing"

func TestTierFromFlags(t *testing.T) {
	cases := []struct {
		prem, vip, admin bool
		want             Tier
	}{
		{false, false, false, Free},
		{true, false, false, Pro},
		{true, true, false, VIP},
		{false, true, false, VIP},
		{true, true, true, Admin},
		{false, false, true, Admin},
	}
	for _, tc := range cases {
		if got := TierFromFlags(tc.prem, tc.vip, tc.admin); got != tc.want {
			t.Errorf("TierFromFlags(%v, %v, %v) = %q, want %q", tc.prem, tc.vip, tc.admin, got, tc.want)
		}
	}
}

func TestCapabilitiesSecondaryControls(t *testing.T) {
	cases := []struct {
		tier                    Tier
		admin, feedback, extend bool
	}{
		{Admin, true, false, false},
		{VIP, false, false, false},
		{Pro, false, true, true},
		{Free, false, true, false},
	}
	for _, tc := range cases {
		c := CapabilitiesFor(tc.tier)
		if c.ShowAdminPanel != tc.admin || c.ShowFeedback != tc.feedback || c.ShowExtend != tc.extend {
			t.Errorf("%s: got admin=%v feedback=%v extend=%v", tc.tier, c.ShowAdminPanel, c.ShowFeedback, c.ShowExtend)
		}
	}
}

func TestCapabilitiesFreeGating(t *testing.T) {
	c := Free.Capabilities()
	for _, f := range []string{FeatureVoice, FeatureImage, FeatureBudget, FeatureExport} {
		if c.Allows(f) {
			t.Errorf("free tier should not allow %s", f)
		}
	}
	for _, tier := range []Tier{Pro, VIP, Admin} {
		if !tier.Capabilities().Allows(FeatureVoice) || !tier.Capabilities().Allows(FeatureImage) {
			t.Errorf("%s should allow media entry", tier)
		}
	}
	if CapabilitiesFor("unknown").Badge != "Free" {
		t.Error("unknown tier should fall back to Free")
	}
}

func TestPlanLabel(t *testing.T) {
	if PlanLabel(Admin, "") != "God Mode" || PlanLabel(VIP, "") != "Lifetime" || PlanLabel(Free, "x") != "Basic" {
		t.Fatal("unexpected fixed plan labels")
	}
	if got := PlanLabel(Pro, "31 Dec 2026"); got != "Exp: 31 Dec 2026" {
		t.Fatalf("PlanLabel(Pro) = %q", got)
	}
	if got := PlanLabel(Pro, ""); got != "Exp: Unknown" {
		t.Fatalf("PlanLabel(Pro, empty) = %q", got)
	}
}
