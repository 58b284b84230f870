package report

import (
	"encoding/json"
	"os"

	"github.com/coecms/mdssprep/internal/bundler"
	"github.com/coecms/mdssprep/pkg/models"
)

// payload is the serializable report shape shared by the JSON and YAML
// writers.
type payload struct {
	Scan    *scanPayload    `json:"scan" yaml:"scan"`
	Plan    *planPayload    `json:"plan,omitempty" yaml:"plan,omitempty"`
	Bundles *bundler.Result `json:"bundles,omitempty" yaml:"bundles,omitempty"`
}

type scanPayload struct {
	Path     string                 `json:"path" yaml:"path"`
	Version  string                 `json:"version" yaml:"version"`
	Started  string                 `json:"started" yaml:"started"`
	Duration string                 `json:"duration" yaml:"duration"`
	Stats    *models.ScanStatistics `json:"statistics" yaml:"statistics"`
	Ready    []string               `json:"ready" yaml:"ready"`
	Rejected []rejectPayload        `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}

type rejectPayload struct {
	Path   string       `json:"path" yaml:"path"`
	State  models.State `json:"state" yaml:"state"`
	Rule   string       `json:"rule,omitempty" yaml:"rule,omitempty"`
	Reason string       `json:"reason" yaml:"reason"`
}

type planPayload struct {
	Passthrough []string        `json:"passthrough" yaml:"passthrough"`
	Bundles     []bundlePayload `json:"bundles" yaml:"bundles"`
}

type bundlePayload struct {
	Name    string   `json:"name" yaml:"name"`
	Dir     string   `json:"dir" yaml:"dir"`
	Size    int64    `json:"size" yaml:"size"`
	Members []string `json:"members" yaml:"members"`
}

// buildPayload flattens a result and plan into the report shape.
func buildPayload(result *models.ScanResult, plan *bundler.Plan, bres *bundler.Result) *payload {
	sp := &scanPayload{
		Path:     result.ScanPath,
		Version:  result.Version,
		Started:  result.StartTime.Format("2006-01-02 15:04:05"),
		Duration: FormatDuration(result.Duration),
		Stats:    result.Stats,
		Ready:    result.ReadyPaths(),
	}
	for _, ce := range rejectedFiles(result) {
		sp.Rejected = append(sp.Rejected, rejectPayload{
			Path:   ce.Entry.Path,
			State:  ce.Classification.State,
			Rule:   ce.Classification.Rule,
			Reason: ce.Classification.Reason,
		})
	}

	p := &payload{Scan: sp, Bundles: bres}

	if plan != nil {
		pp := &planPayload{}
		for _, e := range plan.Passthrough {
			pp.Passthrough = append(pp.Passthrough, e.Path)
		}
		for _, b := range plan.Bundles {
			bp := bundlePayload{Name: b.Name, Dir: b.Dir, Size: b.Size}
			for _, m := range b.Members {
				bp.Members = append(bp.Members, m.Name)
			}
			pp.Bundles = append(pp.Bundles, bp)
		}
		p.Plan = pp
	}

	return p
}

// generateJSON generates a JSON report
func (g *Generator) generateJSON(result *models.ScanResult, plan *bundler.Plan, bres *bundler.Result, outputFile string) error {
	data, err := json.MarshalIndent(buildPayload(result, plan, bres), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(outputFile, data, 0644)
}
