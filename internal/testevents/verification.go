package testevents

import (
	"fmt"
	"log"
	"sort"
)

// verifyResults verifies the consistency of ranks and the leaderboard.
func verifyResults(config *Config, ranks, leaderboard []Entry, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if len(ranks) == 0 {
		return fmt.Errorf("no ranks to verify")
	}

	// Sort ranks by XP (descending) to get top performers
	sortedRanks := make([]Entry, len(ranks))
	copy(sortedRanks, ranks)
	sort.Slice(sortedRanks, func(i, j int) bool {
		return sortedRanks[i].XP > sortedRanks[j].XP
	})

	// Verify leaderboard consistency if we have leaderboard data
	if len(leaderboard) > 0 {
		if err := verifyLeaderboardConsistency(sortedRanks, leaderboard); err != nil {
			log.Printf("⚠️  Leaderboard consistency warning: %v", err)
		} else {
			log.Println("✅ Leaderboard consistency verified")
		}
	}

	// Display top performers
	displayTopPerformers(sortedRanks, leaderboard, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// verifyLeaderboardConsistency checks that the leaderboard is ordered by
// XP descending, carries gapless sequential ranks, and agrees with the
// top per-user rank.
func verifyLeaderboardConsistency(sortedRanks, leaderboard []Entry) error {
	if len(leaderboard) == 0 {
		return fmt.Errorf("empty leaderboard")
	}

	// Check if top entry in leaderboard matches highest ranked user
	topRank := sortedRanks[0]
	topLeaderboard := leaderboard[0]

	if topRank.XP != topLeaderboard.XP {
		return fmt.Errorf("top leaderboard XP (%d) does not match top ranked XP (%d)",
			topLeaderboard.XP, topRank.XP)
	}

	// Check if leaderboard is properly sorted with sequential ranks.
	// Ties are fully broken (first to reach, then user id), so ranks
	// are strictly positional.
	for i := 1; i < len(leaderboard); i++ {
		if leaderboard[i].XP > leaderboard[i-1].XP {
			return fmt.Errorf("leaderboard not properly sorted: entry %d has higher XP than entry %d",
				i, i-1)
		}
		if leaderboard[i].Rank != leaderboard[i-1].Rank+1 {
			return fmt.Errorf("rank gap between entries %d and %d (%d to %d)",
				i-1, i, leaderboard[i-1].Rank, leaderboard[i].Rank)
		}
	}

	return nil
}

// displayTopPerformers shows the top performers from ranks and leaderboard.
func displayTopPerformers(sortedRanks, leaderboard []Entry, verbose bool) {
	topN := 10
	if len(sortedRanks) < topN {
		topN = len(sortedRanks)
	}

	log.Printf("🏆 Top %d performers from ranks:", topN)
	for i := 0; i < topN; i++ {
		entry := sortedRanks[i]
		log.Printf("   %d. %s - XP: %d", i+1, entry.UserID, entry.XP)
	}

	if len(leaderboard) > 0 {
		leaderboardTopN := topN
		if len(leaderboard) < leaderboardTopN {
			leaderboardTopN = len(leaderboard)
		}

		log.Printf("🥇 Top %d performers from leaderboard:", leaderboardTopN)
		for i := 0; i < leaderboardTopN; i++ {
			entry := leaderboard[i]
			log.Printf("   %d. %s - XP: %d", entry.Rank, entry.UserID, entry.XP)
		}
	}

	if verbose {
		// Show some statistics
		if len(sortedRanks) > 0 {
			avgXP := calculateAverageXP(sortedRanks)
			maxXP := sortedRanks[0].XP
			minXP := sortedRanks[len(sortedRanks)-1].XP

			log.Printf(`📊 XP statistics:
   Average: %.1f
   Maximum: %d
   Minimum: %d
`, avgXP, maxXP, minXP)
		}
	}
}

// calculateAverageXP calculates the average XP from ranks.
func calculateAverageXP(ranks []Entry) float64 {
	if len(ranks) == 0 {
		return 0
	}

	var sum int64
	for _, entry := range ranks {
		sum += entry.XP
	}

	return float64(sum) / float64(len(ranks))
}
