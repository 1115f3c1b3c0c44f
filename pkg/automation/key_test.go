package automation

import (
	"strings"
	"testing"

	"github.com/dukex/ruleforge/pkg/events"
	"github.com/stretchr/testify/assert"
)

func TestIdempotencyKey(t *testing.T) {
	event := events.New(events.TaskCreated, map[string]any{"projectId": "p1", "taskId": "t1", "taskTitle": "Ship"})

	key := IdempotencyKey("r1", event)
	parts := strings.Split(key, ":")

	assert.Equal(t, []string{"r1", "task_created", "p1", "t1"}, parts[:4])
	assert.Len(t, parts[4], 16)
}

func TestIdempotencyKey_PayloadOrderDoesNotMatter(t *testing.T) {
	first := events.DomainEvent{Type: events.TaskCreated, Payload: map[string]any{}}
	first.Payload["a"] = 1
	first.Payload["b"] = map[string]any{"y": 2, "x": 1}

	second := events.DomainEvent{Type: events.TaskCreated, Payload: map[string]any{}}
	second.Payload["b"] = map[string]any{"x": 1, "y": 2}
	second.Payload["a"] = 1

	assert.Equal(t, IdempotencyKey("r1", first), IdempotencyKey("r1", second))
}

func TestIdempotencyKey_PayloadChangeIsNewOccurrence(t *testing.T) {
	first := events.New(events.TaskCreated, map[string]any{"projectId": "p1", "taskId": "t1", "taskTitle": "Ship"})
	second := events.New(events.TaskCreated, map[string]any{"projectId": "p1", "taskId": "t1", "taskTitle": "Ship it"})

	assert.NotEqual(t, IdempotencyKey("r1", first), IdempotencyKey("r1", second))
	assert.NotEqual(t, IdempotencyKey("r1", first), IdempotencyKey("r2", first))
}

func TestIdempotencyKey_TimestampIgnored(t *testing.T) {
	first := events.New(events.TaskCreated, map[string]any{"taskId": "t1"})
	second := events.New(events.TaskCreated, map[string]any{"taskId": "t1"})
	second.Timestamp = first.Timestamp.Add(1)

	assert.Equal(t, IdempotencyKey("r1", first), IdempotencyKey("r1", second))
}

func TestManualKey(t *testing.T) {
	key := IdempotencyKey("r1", events.New(events.TaskCreated, nil))

	manual := ManualKey(key, "run-1")

	assert.True(t, strings.HasPrefix(manual, key))
	assert.True(t, strings.HasSuffix(manual, ":manual:run-1"))
	assert.NotEqual(t, key, manual)
}

func TestIdempotencyKey_NumericIDs(t *testing.T) {
	event := events.New(events.TaskCreated, map[string]any{"projectId": 42.0, "taskId": 7.0})

	parts := strings.Split(IdempotencyKey("r1", event), ":")

	assert.Equal(t, []string{"r1", "task_created", "42", "7"}, parts[:4])
}
