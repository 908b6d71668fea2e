package testevents

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/ladle/pkg/logger"
)

// Constants for random number generation.
const (
	awardKeyDivisor   = 10000
	actionRollDivisor = 100
)

// Constants for the weighted action distribution. Rolls below each
// threshold select that action, mirroring how a recipe app skews toward
// cheap actions (scans, ratings) over rare ones (publishing).
const (
	thresholdScan     = 35 // 35% scan_ingredient
	thresholdRate     = 60 // 25% rate_recipe
	thresholdComplete = 85 // 25% complete_recipe
	thresholdLogin    = 95 // 10% daily_login
	// remaining 5% publish_recipe
)

// actionForRoll maps a 0-99 roll onto an action name.
func actionForRoll(roll int64) string {
	switch {
	case roll < thresholdScan:
		return "scan_ingredient"
	case roll < thresholdRate:
		return "rate_recipe"
	case roll < thresholdComplete:
		return "complete_recipe"
	case roll < thresholdLogin:
		return "daily_login"
	default:
		return "publish_recipe"
	}
}

// generateAwards creates the specified number of awards spread over a
// fixed pool of user IDs so per-user progression accumulates.
func generateAwards(ctx context.Context, config *Config, stats *Stats) ([]Award, error) {
	logger.Get().Info(ctx, "generating awards",
		logger.Int("numAwards", config.NumAwards),
		logger.Int("numUsers", config.NumUsers))

	awards := make([]Award, config.NumAwards)

	// Pre-allocate the user pool; each user also gets a stable session ID
	// so repeated awards exercise session decay.
	userIDs := make([]string, config.NumUsers)
	sessionIDs := make([]string, config.NumUsers)
	for i := 0; i < config.NumUsers; i++ {
		userIDs[i] = uuid.New().String()
		sessionIDs[i] = uuid.New().String()
	}

	// Generate awards concurrently
	type awardResult struct {
		index int
		award Award
		err   error
	}

	resultChan := make(chan awardResult, config.NumAwards)

	// Use worker pool for award generation
	workerCount := minInt(config.Workers, config.NumAwards)
	awardsPerWorker := config.NumAwards / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * awardsPerWorker
		end := start + awardsPerWorker
		if worker == workerCount-1 {
			end = config.NumAwards // Last worker gets remaining awards
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- awardResult{index: i, err: ctx.Err()}
					return
				default:
					user := i % config.NumUsers
					award := generateSingleAward(i, userIDs[user], sessionIDs[user])
					resultChan <- awardResult{index: i, award: award, err: nil}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumAwards; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during award generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate award %d: %w", result.index, result.err)
			}
			awards[result.index] = result.award
		}
	}

	stats.AwardsGenerated = len(awards)
	logger.Get().Info(ctx, "generated awards successfully", logger.Int("count", len(awards)))

	return awards, nil
}

// generateSingleAward creates a single award with the given index and user.
func generateSingleAward(index int, userID, sessionID string) Award {
	roll, _ := rand.Int(rand.Reader, big.NewInt(actionRollDivisor))
	action := actionForRoll(roll.Int64())

	// Current timestamp in RFC3339 format
	timestamp := time.Now().UTC().Format(time.RFC3339)

	// Generate unique idempotency key
	randNum, _ := rand.Int(rand.Reader, big.NewInt(awardKeyDivisor))
	key := "award_" + strconv.FormatInt(int64(index), 10) + "_" + strconv.FormatInt(time.Now().Unix(), 10) + "_" + strconv.FormatInt(randNum.Int64(), 10)

	return Award{
		UserID:         userID,
		Action:         action,
		IdempotencyKey: key,
		SessionID:      sessionID,
		Timezone:       "UTC",
		OccurredAt:     timestamp,
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
