package testevents

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// retrieveRanks retrieves all-time ranks for every distinct user concurrently.
func retrieveRanks(ctx context.Context, config *Config, awards []Award, stats *Stats) ([]Entry, error) {
	// Extract unique user IDs; awards deliberately repeat users.
	seen := make(map[string]struct{}, len(awards))
	userIDs := make([]string, 0, len(awards))
	for _, award := range awards {
		if _, ok := seen[award.UserID]; ok {
			continue
		}
		seen[award.UserID] = struct{}{}
		userIDs = append(userIDs, award.UserID)
	}

	log.Printf("🏆 Retrieving ranks for %d users with %d workers...", len(userIDs), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Results storage
	ranks := make([]Entry, len(userIDs))
	var (
		retrieved int64
		failed    int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	userChan := make(chan int, config.Workers*WorkerChannelMultiplier) // Send indices instead of IDs
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for index := range userChan {
				select {
				case <-ctx.Done():
					return
				default:
					userID := userIDs[index]
					entry, err := retrieveSingleRank(ctx, client, config.BaseURL, userID)

					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to get rank for %s: %v", userID, err)
						}
					} else {
						ranks[index] = entry
						atomic.AddInt64(&retrieved, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&retrieved) + atomic.LoadInt64(&failed)
						ret := atomic.LoadInt64(&retrieved)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Rank progress: %d/%d retrieved (success: %d, failed: %d)",
								total, len(userIDs), ret, fail)
						} else {
							log.Printf("\r🏆 Ranks: %d/%d retrieved (success: %d, failed: %d)",
								total, len(userIDs), ret, fail)
						}
					}
				}
			}
		}(i)
	}

	// Send user indices to workers
	go func() {
		defer close(userChan)
		for i := range userIDs {
			select {
			case <-ctx.Done():
				return
			case userChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		log.Println() // New line after progress indicator
	}

	// Filter out empty entries (failed retrievals)
	validRanks := make([]Entry, 0, len(ranks))
	for _, entry := range ranks {
		if entry.UserID != "" { // Empty UserID indicates failed retrieval
			validRanks = append(validRanks, entry)
		}
	}

	// Update stats
	stats.RanksRetrieved = len(validRanks)

	log.Printf(`✅ Rank retrieval completed:
   Retrieved: %d
   Failed: %d
`, len(validRanks), int(atomic.LoadInt64(&failed)))

	return validRanks, nil
}

// retrieveSingleRank retrieves the all-time rank for a single user.
func retrieveSingleRank(ctx context.Context, client *HTTPClient, baseURL, userID string) (Entry, error) {
	url := fmt.Sprintf("%s/rank/%s?window=all_time", baseURL, userID)

	resp, err := client.Get(url)
	if err != nil {
		return Entry{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return Entry{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var entry Entry
	if err := unmarshalJSON(body, &entry); err != nil {
		return Entry{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return entry, nil
}

// getLeaderboard retrieves the top N all-time leaderboard entries.
func getLeaderboard(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	log.Printf("🥇 Getting top %d leaderboard entries...", config.TopN)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/leaderboard?window=all_time&page=1&per_page=%d", config.BaseURL, config.TopN)

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var leaderboard []Entry
	if err := unmarshalJSON(body, &leaderboard); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.LeaderboardEntries = len(leaderboard)
	log.Printf("✅ Retrieved %d leaderboard entries", len(leaderboard))

	return leaderboard, nil
}
