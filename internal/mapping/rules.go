package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/hotelops/recon/internal/model"
	"github.com/hotelops/recon/internal/pipeline"
)

// Rule operators. Contains matches over normalized text; Regex searches the
// raw value case-insensitively.
const (
	OpContains = "contains"
	OpRegex    = "regex"
)

// Fields a rule may inspect.
var validRuleFields = map[string]bool{
	"agency_id":   true,
	"agency_name": true,
	"channel":     true,
}

// Rule is one deterministic fallback mapping rule. Rules are order
// significant: the first match wins, and they are consulted only after both
// CSV lookups fail.
type Rule struct {
	SourceSystem string
	Field        string
	Op           string
	Value        string
	CanonID      string
	CanonName    string
	Reason       string

	// Compiled once at load time; nil for contains rules.
	pattern *regexp.Regexp
}

// RuleMatch is a successful rule application.
type RuleMatch struct {
	CanonID   string
	CanonName string
	Reason    string
}

type rulesPayload struct {
	AgencyRules []ruleRow `json:"agency_rules"`
}

type ruleRow struct {
	SourceSystem string `json:"source_system"`
	Field        string `json:"field"`
	Op           string `json:"op"`
	Value        string `json:"value"`
	CanonID      string `json:"canon_agency_id"`
	CanonName    string `json:"canon_agency_name"`
	Reason       string `json:"reason"`
}

func loadRuleRow(row ruleRow, idx int, path string) (Rule, error) {
	system := strings.ToLower(strings.TrimSpace(row.SourceSystem))
	if system != model.SourceElectra && system != model.SourceHotelRunner {
		return Rule{}, pipeline.Errorf(pipeline.KindMapping,
			"invalid rule source_system at %s:%d: %s", path, idx, system)
	}

	field := strings.ToLower(strings.TrimSpace(row.Field))
	if !validRuleFields[field] {
		return Rule{}, pipeline.Errorf(pipeline.KindMapping,
			"invalid rule field at %s:%d: %s", path, idx, field)
	}

	op := strings.ToLower(strings.TrimSpace(row.Op))
	if op != OpContains && op != OpRegex {
		return Rule{}, pipeline.Errorf(pipeline.KindMapping,
			"invalid rule op at %s:%d: %s", path, idx, op)
	}

	if row.Value == "" {
		return Rule{}, pipeline.Errorf(pipeline.KindMapping, "rule value cannot be empty at %s:%d", path, idx)
	}

	canonID := strings.TrimSpace(row.CanonID)
	canonName := strings.TrimSpace(row.CanonName)
	if canonID == "" && canonName == "" {
		return Rule{}, pipeline.Errorf(pipeline.KindMapping, "rule missing canonical target at %s:%d", path, idx)
	}

	reason := strings.TrimSpace(row.Reason)
	if reason == "" {
		if op == OpContains {
			reason = "rule:contains:" + NormalizeName(row.Value)
		} else {
			reason = "rule:regex:" + row.Value
		}
	}

	rule := Rule{
		SourceSystem: system,
		Field:        field,
		Op:           op,
		Value:        row.Value,
		CanonID:      canonID,
		CanonName:    canonName,
		Reason:       reason,
	}
	if op == OpRegex {
		pattern, err := regexp.Compile("(?i)" + row.Value)
		if err != nil {
			return Rule{}, pipeline.Wrap(pipeline.KindMapping, err,
				"invalid regex rule at %s:%d: %s", path, idx, row.Value)
		}
		rule.pattern = pattern
	}
	return rule, nil
}

// LoadRules reads the fallback rule file. A missing file loads as no rules.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pipeline.Wrap(pipeline.KindMapping, err, "unable to read mapping rules: %s", path)
	}

	var payload rulesPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, pipeline.Wrap(pipeline.KindMapping, err, "mapping rules payload must be an object: %s", path)
	}

	rules := make([]Rule, 0, len(payload.AgencyRules))
	for i, row := range payload.AgencyRules {
		rule, err := loadRuleRow(row, i+1, path)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ApplyRules evaluates rules in file order against one entity and returns
// the first match.
func ApplyRules(rules []Rule, system, agencyID, agencyName, channel string) *RuleMatch {
	system = strings.ToLower(strings.TrimSpace(system))
	raw := map[string]string{
		"agency_id":   strings.TrimSpace(agencyID),
		"agency_name": strings.TrimSpace(agencyName),
		"channel":     strings.TrimSpace(channel),
	}

	for _, rule := range rules {
		if rule.SourceSystem != system {
			continue
		}
		value := raw[rule.Field]
		if value == "" {
			continue
		}

		matched := false
		switch rule.Op {
		case OpContains:
			needle := NormalizeName(rule.Value)
			matched = needle != "" && strings.Contains(NormalizeName(value), needle)
		case OpRegex:
			matched = rule.pattern != nil && rule.pattern.MatchString(value)
		}
		if matched {
			return &RuleMatch{CanonID: rule.CanonID, CanonName: rule.CanonName, Reason: rule.Reason}
		}
	}
	return nil
}

// String renders a rule for diagnostics.
func (r Rule) String() string {
	return fmt.Sprintf("%s %s %s %q -> %s/%s", r.SourceSystem, r.Field, r.Op, r.Value, r.CanonID, r.CanonName)
}
