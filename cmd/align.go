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
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notargets/gossm/data"
	"github.com/notargets/gossm/mesh"
)

// AlignCmd represents the align command
var AlignCmd = &cobra.Command{
	Use:   "align",
	Short: "Remove pose differences from a mesh collection by Procrustes alignment",
	Long: `
Loads the reference and every mesh named in the parameters file, runs
generalized Procrustes alignment and writes the mean shape and each aligned
mesh to the output directory.

gossm align -I experiment.yaml --format off`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadExperiment(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		if format != "obj" && format != "off" {
			return fmt.Errorf("unknown mesh format %q, use obj or off", format)
		}
		dc, err := e.loadCollection()
		if err != nil {
			return err
		}
		e.params.Alignment.Enabled = true
		aligned, err := e.align(dc)
		if err != nil {
			return err
		}
		if err = writeCollection(e, aligned, format); err != nil {
			return err
		}
		e.writeMetrics()
		return nil
	},
}

func writeCollection(e *experiment, dc *data.DataCollection, format string) error {
	if err := e.ensureOutputDir(); err != nil {
		return err
	}
	dir := e.params.Resolve(e.params.OutputDir)
	if err := mesh.WriteMeshFile(filepath.Join(dir, "mean."+format), dc.Reference); err != nil {
		return err
	}
	for _, item := range dc.Items {
		path := filepath.Join(dir, item.ID+"_aligned."+format)
		if err := mesh.WriteMeshFile(path, item.Shape()); err != nil {
			return err
		}
		e.logger.Debug("aligned mesh written", zap.String("path", path))
	}
	e.logger.Info("aligned collection written", zap.String("dir", dir), zap.Int("items", dc.Size()))
	return nil
}

func init() {
	rootCmd.AddCommand(AlignCmd)
	addInputFlag(AlignCmd)
	AlignCmd.Flags().String("format", "obj", "output mesh format, obj or off")
}
