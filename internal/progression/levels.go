package progression

// LevelThreshold maps a minimum XP total to a named level.
type LevelThreshold struct {
	Name  string
	MinXP int64
}

// DefaultLevels is ordered ascending by MinXP; the first entry starts at 0.
var DefaultLevels = []LevelThreshold{
	{"Code Newbie", 0},
	{"Code Apprentice", 100},
	{"Bug Hunter", 500},
	{"Code Warrior", 1500},
	{"Syntax Samurai", 3000},
	{"Algorithm Ace", 5000},
	{"Code Wizard", 7500},
	{"Tech Master", 10500},
	{"Code Legend", 15000},
}

// LevelInfo is the result of deriving a level from a total XP value.
type LevelInfo struct {
	Name     string
	MinXP    int64
	Progress int // 0-100 toward the next level; 100 at the top level
}

// DeriveLevel returns the highest level whose MinXP <= totalXP, and the
// percentage progress toward the next level. Total over all non-negative
// inputs: every XP value maps to exactly one level.
func DeriveLevel(levels []LevelThreshold, totalXP int64) LevelInfo {
	if totalXP < 0 {
		totalXP = 0
	}

	idx := 0
	for i, l := range levels {
		if totalXP >= l.MinXP {
			idx = i
		} else {
			break
		}
	}

	info := LevelInfo{Name: levels[idx].Name, MinXP: levels[idx].MinXP}
	if idx == len(levels)-1 {
		info.Progress = 100
		return info
	}

	span := levels[idx+1].MinXP - levels[idx].MinXP
	progress := int(100 * (totalXP - levels[idx].MinXP) / span)
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	info.Progress = progress
	return info
}

// NextLevel returns the threshold following the level that totalXP falls
// in, or ok=false at the top level.
func NextLevel(levels []LevelThreshold, totalXP int64) (LevelThreshold, bool) {
	for _, l := range levels {
		if totalXP < l.MinXP {
			return l, true
		}
	}
	return LevelThreshold{}, false
}
