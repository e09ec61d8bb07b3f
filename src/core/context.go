package core

import "path/filepath"

// Default root directory names, relative to the orchestrator's working
// directory (spec.md §6).
const (
	SourcesRoot = "_sources"
	BuildsRoot  = "_builds"
	OutputsRoot = "_outputs"
	RulesDir    = "rules"
	ScriptsDir  = "scripts"
	PatchesDir  = "patches"
)

// RuleFileSuffix is the extension rule files must carry to be picked up by
// the Rule Loader. Unlike the Python original's bare ".py", rule files here
// are Go source interpreted by yaegi, so they carry a distinctive suffix to
// avoid colliding with any other *.go convention in a group directory.
const RuleFileSuffix = ".rule.go"

// BuildContext threads every path and the Registry through the phases of a
// single invocation, replacing the Python original's module-level globals
// (sources, targets, current_rule_group) with an explicit, test-isolatable
// value (spec.md §9).
type BuildContext struct {
	Registry *Registry
	// WorkDir is the orchestrator's working directory; all root directories
	// below are resolved relative to it.
	WorkDir string
}

// NewBuildContext returns a BuildContext rooted at workDir (made absolute)
// with a fresh, empty Registry.
func NewBuildContext(workDir string) *BuildContext {
	if abs, err := filepath.Abs(workDir); err == nil {
		workDir = abs
	}
	return &BuildContext{Registry: NewRegistry(), WorkDir: workDir}
}

// SourcesDir returns the absolute path to the checked-out source trees.
func (c *BuildContext) SourcesDir() string { return filepath.Join(c.WorkDir, SourcesRoot) }

// SourceDir returns the absolute path to a single named source's tree.
func (c *BuildContext) SourceDir(name string) string { return filepath.Join(c.SourcesDir(), name) }

// BuildDir returns the absolute path to a target's staging directory for the
// given arch label (an Arch value, or "local").
func (c *BuildContext) BuildDir(archLabel, target string) string {
	return filepath.Join(c.WorkDir, BuildsRoot, archLabel, target)
}

// OutputDir returns the absolute path to a target's output directory for the
// given arch label (an Arch value, or "local").
func (c *BuildContext) OutputDir(archLabel, target string) string {
	return filepath.Join(c.WorkDir, OutputsRoot, archLabel, target)
}

// GroupScript returns the absolute path to a target's build script.
func (c *BuildContext) GroupScript(group, target string) string {
	return filepath.Join(group, ScriptsDir, target+".sh")
}

// GroupPatch returns the absolute path to a named patch file within group.
func (c *BuildContext) GroupPatch(group, patch string) string {
	return filepath.Join(group, PatchesDir, patch)
}

// GroupPatchesDir returns the absolute path to a group's patches directory.
func (c *BuildContext) GroupPatchesDir(group string) string {
	return filepath.Join(group, PatchesDir)
}

// GroupRulesDir returns the absolute path to a group's rules directory.
func (c *BuildContext) GroupRulesDir(group string) string {
	return filepath.Join(group, RulesDir)
}

// ArchLabel returns the directory segment used under _builds/_outputs for a
// given architecture and whether the build is local (spec.md §4.G,§4.H).
func ArchLabel(arch Arch, local bool) string {
	if local {
		return "local"
	}
	return string(arch)
}
