/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notargets/gossm/model"
)

// BuildCmd represents the build command
var BuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a shape model from every mesh in the parameters file",
	Long: `
Loads and optionally aligns the collection, builds the PCA model, adds the
Gaussian process bias when enabled, and saves the model.

gossm build -I experiment.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadExperiment(cmd)
		if err != nil {
			return err
		}
		dc, err := e.loadCollection()
		if err != nil {
			return err
		}
		if dc, err = e.align(dc); err != nil {
			return err
		}
		name, builder, err := e.builder(dc.Reference)
		if err != nil {
			return err
		}
		start := time.Now()
		m, err := builder(dc)
		if err != nil {
			return err
		}
		e.metrics.ObserveBuild(name, time.Since(start).Seconds())
		e.metrics.RecordModel(name, m)

		if err = e.ensureOutputDir(); err != nil {
			return err
		}
		path := e.outputPath(e.params.Model.ModelFile)
		if err = model.Save(path, m); err != nil {
			return err
		}
		e.logger.Info("model saved", zap.String("path", path), zap.String("model", name),
			zap.Int("rank", m.Rank()))
		printVariances(m)
		e.writeMetrics()
		return nil
	},
}

func printVariances(m *model.LowRankModel) {
	explained := m.VarianceExplained()
	for k, b := range m.Basis {
		fmt.Printf("[%3d] variance = %12.6e\tcumulative = %6.2f%%\n", k, b.Variance, 100*explained[k])
	}
}

func init() {
	rootCmd.AddCommand(BuildCmd)
	addInputFlag(BuildCmd)
}
