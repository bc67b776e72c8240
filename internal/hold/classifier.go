package hold

import "time"

// RuleID names the classifier rule that decided a tick.
type RuleID string

const (
	RuleNoUser           RuleID = "no_user"
	RuleBothHands        RuleID = "both_hands"
	RuleSingleHandMemory RuleID = "single_hand_memory"
	RuleNoHandsGrace     RuleID = "no_hands_grace"
	RuleHandsMissing     RuleID = "hands_missing"
	RuleStrictUntracked  RuleID = "strict_untracked"
	RuleStrictChecks     RuleID = "strict_checks"
)

// Strict check names.
const (
	CheckDistance     = "hand_distance"
	CheckHeightLeft   = "left_hand_height"
	CheckHeightRight  = "right_hand_height"
	CheckGrip         = "grip"
	CheckForwardLeft  = "left_hand_forward"
	CheckForwardRight = "right_hand_forward"
)

// Check is the outcome of one strict predicate.
type Check struct {
	Name   string  `json:"name"`
	Passed bool    `json:"passed"`
	Value  float64 `json:"value"`
	Limit  float64 `json:"limit"`
}

// Verdict is the raw per-frame classification.
type Verdict struct {
	Raw    bool    `json:"raw"`
	Rule   RuleID  `json:"rule"`
	Checks []Check `json:"checks,omitempty"`
}

type classifyRule struct {
	id      RuleID
	applies func(s Snapshot, cfg Config, mem Memory) bool
	raw     func(s Snapshot, cfg Config, mem Memory) bool
}

var permissiveWithoutMemory = []classifyRule{
	{
		id:      RuleBothHands,
		applies: func(s Snapshot, _ Config, _ Memory) bool { return s.BothHands() },
		raw:     func(Snapshot, Config, Memory) bool { return true },
	},
	{
		id:      RuleHandsMissing,
		applies: func(Snapshot, Config, Memory) bool { return true },
		raw:     func(Snapshot, Config, Memory) bool { return false },
	},
}

var permissiveWithMemory = []classifyRule{
	{
		id:      RuleBothHands,
		applies: func(s Snapshot, _ Config, _ Memory) bool { return s.BothHands() },
		raw:     func(Snapshot, Config, Memory) bool { return true },
	},
	{
		id: RuleSingleHandMemory,
		applies: func(s Snapshot, cfg Config, _ Memory) bool {
			return cfg.SingleHandFallback && s.OneHand()
		},
		raw: func(s Snapshot, cfg Config, mem Memory) bool {
			return mem.ValidWithin(s.Now, cfg.MemoryRetention)
		},
	},
	{
		id:      RuleNoHandsGrace,
		applies: func(s Snapshot, _ Config, _ Memory) bool { return s.NoHands() },
		raw: func(s Snapshot, cfg Config, mem Memory) bool {
			return mem.ValidWithin(s.Now, noHandsGrace(cfg))
		},
	},
	{
		id:      RuleHandsMissing,
		applies: func(Snapshot, Config, Memory) bool { return true },
		raw:     func(Snapshot, Config, Memory) bool { return false },
	},
}

func noHandsGrace(cfg Config) time.Duration {
	return time.Duration(float64(cfg.MemoryRetention) * NoHandsGraceRatio)
}

// Classify evaluates the configured policy. mem must be the memory as left
// by Resolve for the same tick.
func Classify(s Snapshot, cfg Config, mem Memory) Verdict {
	if cfg.Policy == PolicyStrict {
		return classifyStrict(s, cfg)
	}

	rules := permissiveWithoutMemory
	if cfg.UseMemory {
		rules = permissiveWithMemory
	}
	for _, rule := range rules {
		if rule.applies(s, cfg, mem) {
			return Verdict{Raw: rule.raw(s, cfg, mem), Rule: rule.id}
		}
	}
	return Verdict{Rule: RuleHandsMissing}
}

func classifyStrict(s Snapshot, cfg Config) Verdict {
	if !s.BothHands() {
		return Verdict{Rule: RuleStrictUntracked}
	}

	checks := StrictChecks(s, cfg)
	raw := true
	for _, c := range checks {
		raw = raw && c.Passed
	}
	return Verdict{Raw: raw, Rule: RuleStrictChecks, Checks: checks}
}

// StrictChecks evaluates every strict predicate against s. Hand tracking is
// not considered here.
func StrictChecks(s Snapshot, cfg Config) []Check {
	distance := s.HandDistance()
	leftHeight := s.Left.Y - s.SpineBase.Y
	rightHeight := s.Right.Y - s.SpineBase.Y
	forwardLimit := s.SpineMid.Z + ForwardTolerance

	grasping := 0.0
	if s.LeftState.IsGrasping() {
		grasping++
	}
	if s.RightState.IsGrasping() {
		grasping++
	}

	return []Check{
		{Name: CheckDistance, Passed: distance <= cfg.MaxHandDistance, Value: distance, Limit: cfg.MaxHandDistance},
		{Name: CheckHeightLeft, Passed: leftHeight >= cfg.MinHandHeight, Value: leftHeight, Limit: cfg.MinHandHeight},
		{Name: CheckHeightRight, Passed: rightHeight >= cfg.MinHandHeight, Value: rightHeight, Limit: cfg.MinHandHeight},
		{Name: CheckGrip, Passed: grasping >= 1, Value: grasping, Limit: 1},
		{Name: CheckForwardLeft, Passed: s.Left.Z <= forwardLimit, Value: s.Left.Z, Limit: forwardLimit},
		{Name: CheckForwardRight, Passed: s.Right.Z <= forwardLimit, Value: s.Right.Z, Limit: forwardLimit},
	}
}

// FailedChecks returns the names of checks that did not pass.
func (v Verdict) FailedChecks() []string {
	var failed []string
	for _, c := range v.Checks {
		if !c.Passed {
			failed = append(failed, c.Name)
		}
	}
	return failed
}
