package automation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/dukex/ruleforge/pkg/events"
)

const manualKeySuffix = ":manual:"

// IdempotencyKey identifies one (rule, occurrence) pair as
// ruleID:eventType:projectId:taskId:hash. The hash covers the JSON encoding of the payload;
// encoding/json writes map keys in sorted order, so equal payloads hash equally regardless of
// construction order.
func IdempotencyKey(ruleID string, event events.DomainEvent) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s",
		ruleID,
		event.Type,
		event.ProjectID(),
		event.TaskID(),
		payloadHash(event.Payload),
	)
}

// ManualKey derives a key for a manual test run that can never equal a live key.
func ManualKey(key, runID string) string {
	return key + manualKeySuffix + runID
}

func payloadHash(payload map[string]any) string {
	if payload == nil {
		payload = map[string]any{}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", payload))
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])[:16]
}
