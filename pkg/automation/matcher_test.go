package automation

import (
	"testing"

	"github.com/dukex/ruleforge/pkg/events"
	"github.com/dukex/ruleforge/pkg/models"
	"github.com/dukex/ruleforge/pkg/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		trigger models.Trigger
		event   events.DomainEvent
		want    bool
	}{
		{
			name:    "type only",
			trigger: models.Trigger{Type: events.TaskCreated},
			event:   events.New(events.TaskCreated, nil),
			want:    true,
		},
		{
			name:    "type mismatch",
			trigger: models.Trigger{Type: events.TaskCreated},
			event:   events.New(events.TaskStatusChanged, nil),
			want:    false,
		},
		{
			name:    "filter matches",
			trigger: models.Trigger{Type: events.TaskCreated, Filter: map[string]string{"projectId": "p1"}},
			event:   events.New(events.TaskCreated, map[string]any{"projectId": "p1"}),
			want:    true,
		},
		{
			name:    "filter is case sensitive",
			trigger: models.Trigger{Type: events.TaskCreated, Filter: map[string]string{"projectId": "p1"}},
			event:   events.New(events.TaskCreated, map[string]any{"projectId": "P1"}),
			want:    false,
		},
		{
			name:    "filter missing field",
			trigger: models.Trigger{Type: events.TaskCreated, Filter: map[string]string{"projectId": "p1"}},
			event:   events.New(events.TaskCreated, map[string]any{"taskId": "t1"}),
			want:    false,
		},
		{
			name:    "filter stringifies numbers",
			trigger: models.Trigger{Type: events.TaskCreated, Filter: map[string]string{"priority": "3"}},
			event:   events.New(events.TaskCreated, map[string]any{"priority": float64(3)}),
			want:    true,
		},
		{
			name: "and conditions require all",
			trigger: models.Trigger{Type: events.TaskStatusChanged, Conditions: []models.Condition{
				{Field: "status", Operator: models.OpEq, Value: "done"},
				{Field: "priority", Operator: models.OpEq, Value: "high"},
			}},
			event: events.New(events.TaskStatusChanged, map[string]any{"status": "done", "priority": "low"}),
			want:  false,
		},
		{
			name: "or conditions require any",
			trigger: models.Trigger{Type: events.TaskStatusChanged, Mode: models.ModeOr, Conditions: []models.Condition{
				{Field: "status", Operator: models.OpEq, Value: "done"},
				{Field: "priority", Operator: models.OpEq, Value: "high"},
			}},
			event: events.New(events.TaskStatusChanged, map[string]any{"status": "done", "priority": "low"}),
			want:  true,
		},
		{
			name: "or conditions none true",
			trigger: models.Trigger{Type: events.TaskStatusChanged, Mode: models.ModeOr, Conditions: []models.Condition{
				{Field: "status", Operator: models.OpEq, Value: "done"},
			}},
			event: events.New(events.TaskStatusChanged, map[string]any{"status": "open"}),
			want:  false,
		},
		{
			name: "filter and conditions combine",
			trigger: models.Trigger{
				Type:       events.TaskCreated,
				Filter:     map[string]string{"projectId": "p1"},
				Conditions: []models.Condition{{Field: "priority", Operator: models.OpGt, Value: 2}},
			},
			event: events.New(events.TaskCreated, map[string]any{"projectId": "p2", "priority": 5}),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := testutil.CreateTestRule(testutil.WithTrigger(tt.trigger))
			assert.Equal(t, tt.want, Matches(rule, tt.event))
		})
	}
}

func TestMatches_ScheduledTickTargetsRule(t *testing.T) {
	rule := testutil.CreateTestRule(testutil.WithTrigger(models.Trigger{Type: events.ScheduledTick, Cron: "* * * * *"}))

	assert.True(t, Matches(rule, events.New(events.ScheduledTick, map[string]any{"ruleId": rule.ID})))
	assert.True(t, Matches(rule, events.New(events.ScheduledTick, nil)))
	assert.False(t, Matches(rule, events.New(events.ScheduledTick, map[string]any{"ruleId": "other"})))
}

func TestEvaluate(t *testing.T) {
	payload := map[string]any{
		"title":    "Ship release",
		"priority": float64(3),
		"estimate": "2.5",
		"owner":    nil,
	}

	tests := []struct {
		condition models.Condition
		want      bool
	}{
		{models.Condition{Field: "title", Operator: models.OpEq, Value: "Ship release"}, true},
		{models.Condition{Field: "title", Operator: models.OpNeq, Value: "Ship release"}, false},
		{models.Condition{Field: "title", Operator: models.OpContains, Value: "rel"}, true},
		{models.Condition{Field: "title", Operator: models.OpStartsWith, Value: "Ship"}, true},
		{models.Condition{Field: "title", Operator: models.OpEndsWith, Value: "Ship"}, false},
		{models.Condition{Field: "priority", Operator: models.OpEq, Value: "3"}, true},
		{models.Condition{Field: "priority", Operator: models.OpGt, Value: 2}, true},
		{models.Condition{Field: "priority", Operator: models.OpGte, Value: "3"}, true},
		{models.Condition{Field: "priority", Operator: models.OpLt, Value: 3}, false},
		{models.Condition{Field: "estimate", Operator: models.OpLte, Value: 2.5}, true},
		{models.Condition{Field: "title", Operator: models.OpGt, Value: 1}, false},
		{models.Condition{Field: "priority", Operator: models.OpGt, Value: "many"}, false},
		{models.Condition{Field: "missing", Operator: models.OpNeq, Value: "x"}, false},
		{models.Condition{Field: "owner", Operator: models.OpEq, Value: ""}, true},
		{models.Condition{Field: "title", Operator: "regex", Value: ".*"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.condition.Field+"_"+string(tt.condition.Operator), func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.condition, payload))
		})
	}
}
