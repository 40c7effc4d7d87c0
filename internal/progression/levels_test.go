package progression

import "testing"

func TestDeriveLevel(t *testing.T) {
	tests := []struct {
		totalXP  int64
		name     string
		progress int
	}{
		{0, "Code Newbie", 0},
		{50, "Code Newbie", 50},
		{99, "Code Newbie", 99},
		{100, "Code Apprentice", 0},
		{490, "Code Apprentice", 97},
		{500, "Bug Hunter", 0},
		{590, "Bug Hunter", 9},
		{1500, "Code Warrior", 0},
		{14999, "Tech Master", 99},
		{15000, "Code Legend", 100},
		{999999, "Code Legend", 100},
	}

	for _, tt := range tests {
		got := DeriveLevel(DefaultLevels, tt.totalXP)
		if got.Name != tt.name {
			t.Errorf("DeriveLevel(%d).Name = %q, want %q", tt.totalXP, got.Name, tt.name)
		}
		if got.Progress != tt.progress {
			t.Errorf("DeriveLevel(%d).Progress = %d, want %d", tt.totalXP, got.Progress, tt.progress)
		}
	}
}

func TestDeriveLevelNegativeXP(t *testing.T) {
	got := DeriveLevel(DefaultLevels, -10)
	if got.Name != "Code Newbie" || got.Progress != 0 {
		t.Errorf("DeriveLevel(-10) = %+v, want Code Newbie at 0%%", got)
	}
}

func TestLevelMonotonicity(t *testing.T) {
	rank := make(map[string]int, len(DefaultLevels))
	for i, l := range DefaultLevels {
		rank[l.Name] = i
	}

	prev := -1
	for xp := int64(0); xp <= 20000; xp += 25 {
		got := DeriveLevel(DefaultLevels, xp)
		r, ok := rank[got.Name]
		if !ok {
			t.Fatalf("DeriveLevel(%d) returned unknown level %q", xp, got.Name)
		}
		if r < prev {
			t.Fatalf("level rank decreased at xp=%d: %q", xp, got.Name)
		}
		prev = r
	}
}

func TestNextLevel(t *testing.T) {
	next, ok := NextLevel(DefaultLevels, 0)
	if !ok || next.Name != "Code Apprentice" || next.MinXP != 100 {
		t.Errorf("NextLevel(0) = %+v, %v; want Code Apprentice at 100", next, ok)
	}

	next, ok = NextLevel(DefaultLevels, 540)
	if !ok || next.Name != "Code Warrior" {
		t.Errorf("NextLevel(540) = %+v, %v; want Code Warrior", next, ok)
	}

	if _, ok := NextLevel(DefaultLevels, 15000); ok {
		t.Error("NextLevel(15000) should report no next level at the top")
	}
}
