package rules

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/op/go-logging.v1"

	"github.com/yosyshq/xbuild/src/core"
)

var log = logging.MustGetLogger("rules")

// rulesAPIPath is the synthetic import path rule files use to reach the
// Registrar without a hard compiled dependency on this module — the
// "plugin ABI" option spec.md §9 calls for, grounded in how codenerd's
// YaegiExecutor hands a restricted symbol table to an interpreted script.
const rulesAPIPath = "xbuild.dev/rulesapi/rulesapi"

// Loader discovers and evaluates the rule files of one or more groups,
// registering the Sources and Targets they declare against a BuildContext's
// Registry.
type Loader struct {
	ctx *core.BuildContext
}

// NewLoader returns a Loader that registers against ctx.Registry.
func NewLoader(ctx *core.BuildContext) *Loader {
	return &Loader{ctx: ctx}
}

// LoadGroup evaluates every rule file under <group>/rules/, sorted
// lexicographically, skipping files whose name starts with "__init__" or
// "base" (spec.md §4.B). A file that fails to evaluate is a fatal
// RuleEvaluation error.
func (l *Loader) LoadGroup(group string) error {
	if abs, err := filepath.Abs(group); err == nil {
		group = abs
	}
	dir := l.ctx.GroupRulesDir(group)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return core.Errorf(core.RuleEvaluation, group, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, core.RuleFileSuffix) {
			continue
		}
		if strings.HasPrefix(name, "__init__") || strings.HasPrefix(name, "base") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	reg := &registrar{ctx: l.ctx, group: group}
	for _, name := range names {
		path := filepath.Join(dir, name)
		log.Infof("loading rule file %s", path)
		if err := l.evalFile(path, reg); err != nil {
			return core.Errorf(core.RuleEvaluation, path, err)
		}
	}
	return nil
}

// evalFile interprets a single rule file with yaegi. Rule files are package
// main programs whose main() function calls rulesapi.DefineSource and
// rulesapi.DefineTarget; the loader invokes main() itself after evaluating
// the source, mirroring codenerd's "i.Eval(code); i.Eval(\"main.main\")"
// pattern for interpreted entry points.
func (l *Loader) evalFile(path string, reg *registrar) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return err
	}
	if err := i.Use(rulesAPISymbols(reg)); err != nil {
		return err
	}

	if _, err := i.Eval(string(src)); err != nil {
		return err
	}
	v, err := i.Eval("main.main")
	if err != nil {
		return err
	}
	entry, ok := v.Interface().(func())
	if !ok {
		return &rulesAPIError{"main() has the wrong signature; expected func()"}
	}
	entry()
	return nil
}

type rulesAPIError struct{ msg string }

func (e *rulesAPIError) Error() string { return e.msg }

// rulesAPISymbols builds the custom yaegi export table exposing package
// rulesapi to an interpreted rule file. Each closure is bound to reg, so a
// rule file's calls land on this load's BuildContext/group pair.
func rulesAPISymbols(reg *registrar) interp.Exports {
	return interp.Exports{
		// yaegi keys an export table by "<import path>/<package name>".
		rulesAPIPath + "/rulesapi": map[string]reflect.Value{
			"DefineSource": reflect.ValueOf(reg.DefineSource),
			"DefineTarget": reflect.ValueOf(reg.DefineTarget),
			"TargetSpec":   reflect.ValueOf((*TargetSpec)(nil)),
		},
	}
}
