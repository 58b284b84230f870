package report

import (
	"os"

	"github.com/coecms/mdssprep/internal/bundler"
	"github.com/coecms/mdssprep/pkg/models"
	"gopkg.in/yaml.v3"
)

// generateYAML generates a YAML report
func (g *Generator) generateYAML(result *models.ScanResult, plan *bundler.Plan, bres *bundler.Result, outputFile string) error {
	data, err := yaml.Marshal(buildPayload(result, plan, bres))
	if err != nil {
		return err
	}
	return os.WriteFile(outputFile, data, 0644)
}
