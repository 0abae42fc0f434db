package step

import (
	"sort"
	"strings"
)

// StepContext carries the per-run template variables. It is passed by value
// and never modified after construction.
type StepContext struct {
	ContestName         string `yaml:"contest_name" json:"contest_name"`
	ProblemName         string `yaml:"problem_name" json:"problem_name"`
	Language            string `yaml:"language" json:"language"`
	EnvType             string `yaml:"env_type" json:"env_type"`
	CommandType         string `yaml:"command_type" json:"command_type"`
	WorkspacePath       string `yaml:"workspace_path" json:"workspace_path"`
	ContestCurrentPath  string `yaml:"contest_current_path" json:"contest_current_path"`
	ContestStockPath    string `yaml:"contest_stock_path" json:"contest_stock_path"`
	ContestTemplatePath string `yaml:"contest_template_path" json:"contest_template_path"`
	ContestTempPath     string `yaml:"contest_temp_path" json:"contest_temp_path"`
	SourceFileName      string `yaml:"source_file_name" json:"source_file_name"`
	LanguageID          string `yaml:"language_id" json:"language_id"`
	PreviousContestName string `yaml:"previous_contest_name" json:"previous_contest_name"`
	PreviousProblemName string `yaml:"previous_problem_name" json:"previous_problem_name"`

	// Extra holds additional variables merged into the format dict. Built-in
	// variables win on key collisions.
	Extra map[string]string `yaml:"extra_vars" json:"extra_vars,omitempty"`
}

// FormatDict returns the placeholder map used for {key} substitution. Empty
// values are omitted so their placeholders stay literal.
func (c StepContext) FormatDict() map[string]string {
	dict := make(map[string]string, 16+len(c.Extra))
	for k, v := range c.Extra {
		if v != "" {
			dict[k] = v
		}
	}

	set := func(key, value string) {
		if value != "" {
			dict[key] = value
		}
	}
	set("contest_name", c.ContestName)
	set("problem_name", c.ProblemName)
	set("language", c.Language)
	set("language_name", c.Language)
	set("env_type", c.EnvType)
	set("command_type", c.CommandType)
	set("workspace_path", c.WorkspacePath)
	set("contest_current_path", c.ContestCurrentPath)
	set("contest_stock_path", c.ContestStockPath)
	set("contest_template_path", c.ContestTemplatePath)
	set("contest_temp_path", c.ContestTempPath)
	set("source_file_name", c.SourceFileName)
	set("language_id", c.LanguageID)
	set("previous_contest_name", c.PreviousContestName)
	set("previous_problem_name", c.PreviousProblemName)
	return dict
}

// Workspace returns the directory that command-like steps run against.
func (c StepContext) Workspace() string {
	if c.WorkspacePath != "" {
		return c.WorkspacePath
	}
	return DefaultWorkspace
}

// DefaultWorkspace is used when the context carries no workspace path.
const DefaultWorkspace = "./workspace"

// Formatter substitutes {key} placeholders from a fixed dictionary.
type Formatter struct {
	replacer *strings.Replacer
}

// NewFormatter prepares a formatter for dict. Keys are registered in sorted
// order so the result does not depend on map iteration.
func NewFormatter(dict map[string]string) *Formatter {
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", dict[k])
	}
	return &Formatter{replacer: strings.NewReplacer(pairs...)}
}

// Format replaces every known placeholder in s. Unknown placeholders are left
// untouched.
func (f *Formatter) Format(s string) string {
	if f == nil || f.replacer == nil || !strings.Contains(s, "{") {
		return s
	}
	return f.replacer.Replace(s)
}

// Format is a convenience wrapper around NewFormatter(dict).Format(s).
func Format(s string, dict map[string]string) string {
	return NewFormatter(dict).Format(s)
}
