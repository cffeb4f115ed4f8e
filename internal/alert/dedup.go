package alert

import (
	"fmt"
	"time"

	"fundwatch/internal/models"
)

// DedupKey buckets triggers into cooldown-sized windows. Two triggers in the
// same bucket collapse to one key. Buckets are floor-aligned to the epoch,
// not anchored to the last send, so a trigger just past a bucket boundary
// can fire again sooner than the cooldown; that alignment is intentional
// and relied on by stored keys, so it must not change.
func DedupKey(userID int64, fundCode string, ruleType models.AlertRuleType, cooldownSeconds int64, triggeredAt time.Time) string {
	if cooldownSeconds <= 0 {
		cooldownSeconds = 1
	}
	bucket := triggeredAt.Unix() / cooldownSeconds
	return fmt.Sprintf("%d:%s:%s:%d", userID, fundCode, ruleType, bucket)
}
