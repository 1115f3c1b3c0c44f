package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE automation_rules (
				id TEXT PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(100) NOT NULL,
				trigger_filter_json JSONB NOT NULL DEFAULT '{}',
				actions_json JSONB NOT NULL,
				enabled BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_automation_rules_trigger_type ON automation_rules(trigger_type);
			CREATE INDEX idx_automation_rules_enabled ON automation_rules(enabled);

			CREATE TABLE run_logs (
				id TEXT PRIMARY KEY,
				rule_id TEXT NOT NULL REFERENCES automation_rules(id),
				event_key TEXT NOT NULL,
				status VARCHAR(20) NOT NULL CHECK (status IN ('success', 'failed')),
				output TEXT NOT NULL DEFAULT '',
				attempts INT NOT NULL DEFAULT 0,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_run_logs_rule_id ON run_logs(rule_id);
			CREATE INDEX idx_run_logs_status ON run_logs(status);
			CREATE INDEX idx_run_logs_started_at ON run_logs(started_at);

			CREATE TABLE processed_events (
				event_key TEXT PRIMARY KEY,
				processed_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE approvals (
				id TEXT PRIMARY KEY,
				action_type VARCHAR(100) NOT NULL,
				payload_json JSONB NOT NULL DEFAULT '{}',
				status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
				requested_by VARCHAR(255) NOT NULL,
				approved_by VARCHAR(255),
				requested_at TIMESTAMP WITH TIME ZONE NOT NULL,
				approved_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_approvals_status ON approvals(status);
		`,
	}
}
