// Package progression derives a user's level from cumulative points.
package progression

// PointsPerLevel is the point span of each level.
const PointsPerLevel = 1000

// Level derives the level for a cumulative point total: every 1000 points is
// one level, starting at level 1 for 0-999. This formula is the single source
// of truth; a persisted level is only a cache of it.
func Level(points int) int {
	if points < 0 {
		return 1
	}
	return points/PointsPerLevel + 1
}

// LeveledUp reports whether adding earned points crosses a level boundary.
func LeveledUp(pointsBefore, pointsAfter int) bool {
	return Level(pointsAfter) > Level(pointsBefore)
}
