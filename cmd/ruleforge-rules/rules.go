package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dukex/ruleforge/pkg/actions"
	"github.com/dukex/ruleforge/pkg/approval"
	"github.com/dukex/ruleforge/pkg/automation"
	"github.com/dukex/ruleforge/pkg/models"
	"gopkg.in/yaml.v3"
)

var errInvalidRules = errors.New("rule file contains invalid rules")

// RuleFile is the YAML layout accepted by validate and import.
type RuleFile struct {
	Rules []automation.CreateRuleInput `yaml:"rules"`
}

type ruleProblem struct {
	Index int
	Name  string
	Err   error
}

func (p ruleProblem) String() string {
	return fmt.Sprintf("rules[%d] %q: %v", p.Index, p.Name, p.Err)
}

func loadRuleFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var file RuleFile

	err = decoder.Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule file %s: %w", path, err)
	}

	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("rule file %s defines no rules", path)
	}

	return &file, nil
}

func validateRules(file *RuleFile, registry *actions.Registry) []ruleProblem {
	var problems []ruleProblem

	for i, input := range file.Rules {
		err := automation.ValidateRule(input, registry)
		if err != nil {
			problems = append(problems, ruleProblem{Index: i, Name: input.Name, Err: err})
		}
	}

	return problems
}

// importRules creates every rule or none: the whole file is validated first, and rules with
// sensitive actions need approvalID to name an approved request.
func importRules(
	ctx context.Context,
	engine *automation.Engine,
	gate *approval.Gate,
	file *RuleFile,
	approvalID string,
) ([]*models.AutomationRule, []ruleProblem, error) {
	problems := validateRules(file, engine.Registry())
	if len(problems) > 0 {
		return nil, problems, errInvalidRules
	}

	for i, input := range file.Rules {
		sensitive := models.SensitiveActions(input.Actions)
		if len(sensitive) == 0 {
			continue
		}

		err := gate.EnsureApproved(ctx, approvalID, sensitive)
		if err != nil {
			return nil, []ruleProblem{{Index: i, Name: input.Name, Err: err}}, err
		}
	}

	created := make([]*models.AutomationRule, 0, len(file.Rules))

	for _, input := range file.Rules {
		rule, err := engine.CreateRule(ctx, input)
		if err != nil {
			return created, nil, err
		}

		created = append(created, rule)
	}

	return created, nil, nil
}
