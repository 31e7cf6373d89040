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
	"math/rand"

	"github.com/ghodss/yaml"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notargets/gossm/data"
	"github.com/notargets/gossm/ledger"
	"github.com/notargets/gossm/validation"
)

// ValidateCmd represents the validate command
var ValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Cross validate the model configured in the parameters file",
	Long: `
Splits the (optionally aligned) collection into folds, builds a model on each
training set and scores its generalization on the held out meshes. Results
are printed, appended to the SQLite ledger and written as Prometheus metrics.

gossm validate -I experiment.yaml`,
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
		folds, err := makeFolds(e, dc)
		if err != nil {
			return err
		}
		name, builder, err := e.builder(dc.Reference)
		if err != nil {
			return err
		}
		discrepancy, _ := e.params.DiscrepancyType()
		report, err := validation.CrossValidate(cmd.Context(), dc, folds, builder, validation.CVConfig{
			Score:       validation.ScoreConfig{Discrepancy: discrepancy},
			Parallelism: e.params.Validation.Parallelism,
			Logger:      e.logger,
		})
		if err != nil {
			return err
		}
		for _, f := range report.Folds {
			fmt.Printf("fold %3d\trank = %4d\tgeneralization = %12.6e\n", f.Fold, f.Rank, f.Score)
		}
		fmt.Printf("%s generalization (%s) = %12.6e +/- %12.6e\n", name, discrepancy, report.Mean, report.StdDev)

		e.metrics.RecordCrossValidation(name, discrepancy.String(), report)
		if e.params.Validation.Ledger != "" {
			if err = e.ensureOutputDir(); err != nil {
				return err
			}
			if err = recordRun(cmd, e, name, dc.Size(), report); err != nil {
				return err
			}
		}
		e.writeMetrics()
		return nil
	},
}

func makeFolds(e *experiment, dc *data.DataCollection) ([]data.Fold, error) {
	vp := e.params.Validation
	switch {
	case vp.Folds == 0:
		return dc.CreateLeaveOneOutFolds()
	case vp.Shuffle:
		return dc.CreateShuffledCrossValidationFolds(vp.Folds, rand.New(rand.NewSource(vp.Seed)))
	default:
		return dc.CreateCrossValidationFolds(vp.Folds)
	}
}

func recordRun(cmd *cobra.Command, e *experiment, name string, items int, report *validation.CVReport) error {
	path := e.outputPath(e.params.Validation.Ledger)
	l, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()
	params, err := yaml.Marshal(e.params)
	if err != nil {
		return err
	}
	title := name
	if e.params.Title != "" {
		title = e.params.Title + " (" + name + ")"
	}
	id, err := l.RecordRun(cmd.Context(), ledger.Run{
		Name:        title,
		Items:       items,
		Discrepancy: e.params.Validation.Discrepancy,
		Params:      string(params),
	}, report)
	if err != nil {
		return err
	}
	e.logger.Info("run recorded", zap.String("ledger", path), zap.Int64("run", id))
	return nil
}

func init() {
	rootCmd.AddCommand(ValidateCmd)
	addInputFlag(ValidateCmd)
}
