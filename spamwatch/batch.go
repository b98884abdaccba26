package spamwatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// CheckResult holds the outcome of CheckUsers
type CheckResult struct {
	// Banned maps banned user IDs to their ban
	Banned map[int64]*Ban
	// Clean lists the IDs that are not on the ban list, sorted
	Clean []int64
	// Failed holds lookups that failed for other reasons
	Failed map[int64]error
}

// CheckUsers looks up the ban status of many users concurrently.
// A NotFoundError marks a user as clean. Rate limiting stops the remaining
// lookups and is returned alongside the partial result.
func (c *Client) CheckUsers(ctx context.Context, userIDs []int64) (CheckResult, error) {
	result := CheckResult{
		Banned: make(map[int64]*Ban),
		Clean:  make([]int64, 0, len(userIDs)),
		Failed: make(map[int64]error),
	}
	if len(userIDs) == 0 {
		return result, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	var mu sync.Mutex
	seen := make(map[int64]struct{}, len(userIDs))

	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		g.Go(func() error {
			ban, err := c.GetBan(gctx, id)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				result.Banned[id] = ban
			case errors.Is(err, ErrNotFound):
				result.Clean = append(result.Clean, id)
			case errors.Is(err, ErrTooManyRequests):
				return err
			case gctx.Err() != nil:
				// aborted because a sibling was rate limited
			default:
				c.logger.Warn().Err(err).Int64("user_id", id).Msg("Failed to check user")
				result.Failed[id] = err
			}
			return nil
		})
	}

	err := g.Wait()
	slices.Sort(result.Clean)
	if err == nil && ctx.Err() != nil {
		// lookups aborted by the caller are not recorded per user
		return result, fmt.Errorf("spamwatch: check users: %w", ctx.Err())
	}
	return result, err
}

// BatchDeleteResult contains the results of a batch delete operation
type BatchDeleteResult struct {
	Requested  int
	Successful []int64
	Failed     []DeleteError
}

// DeleteError contains information about a failed delete operation
type DeleteError struct {
	UserID int64
	Err    error
}

// Error implements the error interface
func (e DeleteError) Error() string {
	return fmt.Sprintf("failed to unban user %d: %v", e.UserID, e.Err)
}

// Unwrap returns the underlying error
func (e DeleteError) Unwrap() error {
	return e.Err
}

// DeleteBans lifts several bans concurrently. Individual failures do not
// stop the other deletions.
func (c *Client) DeleteBans(ctx context.Context, userIDs []int64) BatchDeleteResult {
	result := BatchDeleteResult{
		Requested: len(userIDs),
	}

	if len(userIDs) == 0 {
		return result
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	successChan := make(chan int64, len(userIDs))
	errorChan := make(chan DeleteError, len(userIDs))

	for _, id := range userIDs {
		g.Go(func() error {
			if err := c.DeleteBan(gctx, id); err != nil {
				errorChan <- DeleteError{UserID: id, Err: err}
			} else {
				successChan <- id
			}
			return nil
		})
	}

	//nolint:errcheck
	g.Wait()
	close(successChan)
	close(errorChan)

	for id := range successChan {
		result.Successful = append(result.Successful, id)
	}
	for err := range errorChan {
		result.Failed = append(result.Failed, err)
	}

	slices.Sort(result.Successful)
	slices.SortFunc(result.Failed, func(a, b DeleteError) int {
		switch {
		case a.UserID < b.UserID:
			return -1
		case a.UserID > b.UserID:
			return 1
		}
		return 0
	})

	c.logger.Info().
		Int("requested", result.Requested).
		Int("successful", len(result.Successful)).
		Int("failed", len(result.Failed)).
		Msg("Batch unban finished")

	return result
}
