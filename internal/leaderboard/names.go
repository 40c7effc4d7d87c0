package leaderboard

import (
	"fmt"
	"math/rand"
)

var namePrefixes = []string{
	"Swift", "Clever", "Bold", "Quiet", "Rapid", "Brave", "Sharp",
	"Lucky", "Mighty", "Nimble", "Stellar", "Cosmic", "Turbo", "Zen",
}

var nameSuffixes = []string{
	"Falcon", "Otter", "Panda", "Tiger", "Raven", "Fox", "Lynx",
	"Badger", "Dolphin", "Wolf", "Hawk", "Koala", "Puma", "Owl",
}

// generateAnonymousName builds a pseudonym like "SwiftFalcon482". The
// name is persisted per (user, skill_category) on first use, so collisions
// across users are acceptable.
func generateAnonymousName() string {
	prefix := namePrefixes[rand.Intn(len(namePrefixes))]
	suffix := nameSuffixes[rand.Intn(len(nameSuffixes))]
	return fmt.Sprintf("%s%s%d", prefix, suffix, 100+rand.Intn(900))
}
