// Package court holds the court register: which court handles a given
// unique reference number, which notice types it accepts, and where its
// completed pleas are sent.
package court

import (
	"fmt"
	"os"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"
)

// Notice type values a court can accept. "both" means the citizen picks.
const (
	NoticeBoth      = "both"
	NoticeCharge    = "charge"
	NoticeSJPNotice = "sjp"
)

// Court is one entry in the register.
type Court struct {
	Code        string   `yaml:"code"`
	Name        string   `yaml:"name"`
	Email       string   `yaml:"email"`
	Regions     []string `yaml:"regions"`
	NoticeTypes string   `yaml:"notice_types"`
	// Match is an optional rule expression for courts whose catchment does
	// not follow the region prefix, evaluated with `urn` and `region` bound.
	Match string `yaml:"match,omitempty"`

	program *vm.Program
}

// FixedNoticeType returns the single notice type the court accepts, or ""
// when the citizen must choose.
func (c *Court) FixedNoticeType() string {
	if c.NoticeTypes == NoticeBoth || c.NoticeTypes == "" {
		return ""
	}
	return c.NoticeTypes
}

// Register resolves URNs to courts.
type Register struct {
	courts []*Court
}

// Load reads a YAML register from disk.
func Load(path string) (*Register, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read court register: %w", err)
	}
	return Parse(raw)
}

// Parse builds a register from YAML bytes, compiling any match rules once.
func Parse(raw []byte) (*Register, error) {
	var doc struct {
		Courts []*Court `yaml:"courts"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse court register: %w", err)
	}

	for _, c := range doc.Courts {
		if c.Code == "" {
			return nil, fmt.Errorf("court entry missing code")
		}
		if c.Match == "" {
			continue
		}
		program, err := expr.Compile(c.Match,
			expr.Env(map[string]any{}),
			expr.AllowUndefinedVariables(),
			expr.AsBool(),
		)
		if err != nil {
			return nil, fmt.Errorf("invalid match rule for court %s: %w", c.Code, err)
		}
		c.program = program
	}

	return &Register{courts: doc.Courts}, nil
}

// NewRegister builds a register from in-memory entries, used by tests and
// single-court deployments.
func NewRegister(courts ...*Court) *Register {
	return &Register{courts: courts}
}

// Match resolves the court for a URN. Courts with a rule expression are
// consulted first; region-prefix lookup is the fallback.
func (r *Register) Match(urn string) (*Court, error) {
	region := RegionCode(urn)

	env := map[string]any{
		"urn":    strings.ToUpper(urn),
		"region": region,
	}

	for _, c := range r.courts {
		if c.program == nil {
			continue
		}
		out, err := expr.Run(c.program, env)
		if err != nil {
			return nil, fmt.Errorf("match rule failed for court %s: %w", c.Code, err)
		}
		if matched, _ := out.(bool); matched {
			return c, nil
		}
	}

	for _, c := range r.courts {
		for _, prefix := range c.Regions {
			if prefix == region {
				return c, nil
			}
		}
	}

	return nil, fmt.Errorf("no court found for region %q", region)
}

// ByCode returns the court with the given code.
func (r *Register) ByCode(code string) (*Court, error) {
	for _, c := range r.courts {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no court with code %q", code)
}

// RegionCode extracts the leading two-digit region code from a URN.
func RegionCode(urn string) string {
	if i := strings.IndexByte(urn, '/'); i > 0 {
		return urn[:i]
	}
	if len(urn) >= 2 {
		return urn[:2]
	}
	return urn
}
