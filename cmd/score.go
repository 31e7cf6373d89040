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

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/notargets/gossm/data"
	"github.com/notargets/gossm/field"
	"github.com/notargets/gossm/geometry"
	"github.com/notargets/gossm/mesh"
	"github.com/notargets/gossm/model"
	"github.com/notargets/gossm/validation"
)

// ScoreCmd represents the score command
var ScoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score the generalization of a saved model on the meshes in the parameters file",
	Long: `
Loads a model written by build and the meshes named in the parameters file,
rigidly aligns each mesh to the model mean, and reports how well the model
reconstructs them.

gossm score -m out/model.ssm -I heldout.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadExperiment(cmd)
		if err != nil {
			return err
		}
		modelFile, _ := cmd.Flags().GetString("model")
		if modelFile == "" {
			modelFile = e.outputPath(e.params.Model.ModelFile)
		}
		m, err := model.Load(modelFile)
		if err != nil {
			return err
		}
		rigid, _ := cmd.Flags().GetBool("align")
		paths, err := e.params.MeshPaths()
		if err != nil {
			return err
		}
		testing, failures := data.FromMeshFiles(m.Reference, paths, nil, alignToMean(m, rigid))
		for _, f := range failures {
			e.logger.Warn("skipping mesh", zap.String("mesh", f.ID), zap.Error(f.Err))
		}
		discrepancy, _ := e.params.DiscrepancyType()
		scores, err := validation.ItemScores(m, testing, validation.ScoreConfig{Discrepancy: discrepancy})
		if err != nil {
			return err
		}
		score := stat.Mean(scores, nil)
		for i, id := range testing.IDs() {
			fmt.Printf("%-32s %12.6e\n", id, scores[i])
		}
		fmt.Printf("generalization (%s) = %12.6e over %d meshes\n", discrepancy, score, testing.Size())
		e.metrics.RecordModel("loaded", m)
		e.metrics.RecordGeneralization("loaded", discrepancy.String(), score)
		e.writeMetrics()
		return nil
	},
}

// alignToMean rigidly registers each target onto the model mean shape
// before taking its displacement from the reference.
func alignToMean(m *model.LowRankModel, rigid bool) data.CorrespondenceFunc {
	if !rigid {
		return data.PointwiseCorrespondence
	}
	mean := m.Mean.Warp("mean")
	center := mean.Centroid()
	return func(reference, target *mesh.TriangleMesh) (*field.DeformationField, error) {
		t, err := geometry.RigidAlign(target.Vertices, mean.Vertices, center)
		if err != nil {
			return nil, err
		}
		return field.FromMeshes(reference, target.ApplyRigid(t))
	}
}

func init() {
	rootCmd.AddCommand(ScoreCmd)
	addInputFlag(ScoreCmd)
	ScoreCmd.Flags().StringP("model", "m", "", "model file written by build (default OutputDir/ModelFile)")
	ScoreCmd.Flags().Bool("align", true, "rigidly align each mesh to the model mean first")
}
