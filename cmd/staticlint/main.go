// Command staticlint is the multichecker the jobtracker code base is linted with.
//
// It always runs a fixed set of go/analysis passes, ineffassign, nilerr and the
// project's noosexit analyzer. On top of that it enables the staticcheck,
// simple and stylecheck analyzers named in a JSON config. The config is read
// from the file named by STATICLINT_CONFIG, falling back to the config.json
// embedded at build time. A name ending in "*" enables every analyzer with
// that prefix, so "SA*" turns on the whole staticcheck suite.
//
//	go build -o staticlint ./cmd/staticlint
//	./staticlint ./...
package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/simple"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/stylecheck"

	"github.com/patric-chuzhbe/jobtracker/cmd/staticlint/noosexit"
)

const configEnv = "STATICLINT_CONFIG"

//go:embed config.json
var embeddedConfig []byte

// ConfigData lists the optional analyzers to enable, per suite.
type ConfigData struct {
	Staticcheck []string `json:"staticcheck"`
	Simple      []string `json:"simple"`
	Stylecheck  []string `json:"stylecheck"`
}

func baseAnalyzers() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		copylock.Analyzer,
		errorsas.Analyzer,
		httpresponse.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noosexit.Analyzer,
	}
}

func loadConfig(fileName string) (ConfigData, error) {
	var cfg ConfigData

	content := embeddedConfig
	if fileName != "" {
		var err error
		content, err = os.ReadFile(fileName)
		if err != nil {
			return cfg, fmt.Errorf("in cmd/staticlint/main.go/loadConfig(): error while `os.ReadFile()` calling: %w", err)
		}
	}

	if err := json.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("in cmd/staticlint/main.go/loadConfig(): error while `json.Unmarshal()` calling: %w", err)
	}

	return cfg, nil
}

// selectAnalyzers picks the analyzers of suite matching names. A name that
// matches nothing is an error so typos in the config do not go unnoticed.
func selectAnalyzers(suite string, available []*lint.Analyzer, names []string) ([]*analysis.Analyzer, error) {
	byName := make(map[string]*analysis.Analyzer, len(available))
	for _, candidate := range available {
		byName[candidate.Analyzer.Name] = candidate.Analyzer
	}

	selected := map[string]*analysis.Analyzer{}
	for _, name := range names {
		matched := false
		for candidateName, candidate := range byName {
			if matchesName(name, candidateName) {
				selected[candidateName] = candidate
				matched = true
			}
		}
		if !matched {
			return nil, fmt.Errorf("%s: unknown analyzer %q", suite, name)
		}
	}

	result := make([]*analysis.Analyzer, 0, len(selected))
	for _, analyzer := range selected {
		result = append(result, analyzer)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

func matchesName(pattern, name string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(name, prefix)
	}

	return pattern == name
}

func buildAnalyzers(cfg ConfigData) ([]*analysis.Analyzer, error) {
	result := baseAnalyzers()

	suites := []struct {
		name      string
		available []*lint.Analyzer
		enabled   []string
	}{
		{name: "staticcheck", available: staticcheck.Analyzers, enabled: cfg.Staticcheck},
		{name: "simple", available: simple.Analyzers, enabled: cfg.Simple},
		{name: "stylecheck", available: stylecheck.Analyzers, enabled: cfg.Stylecheck},
	}
	for _, suite := range suites {
		selected, err := selectAnalyzers(suite.name, suite.available, suite.enabled)
		if err != nil {
			return nil, err
		}
		result = append(result, selected...)
	}

	return result, nil
}

func main() {
	cfg, err := loadConfig(os.Getenv(configEnv))
	if err != nil {
		panic(err)
	}

	analyzers, err := buildAnalyzers(cfg)
	if err != nil {
		panic(err)
	}

	multichecker.Main(analyzers...)
}
