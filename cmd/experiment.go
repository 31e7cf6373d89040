package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notargets/gossm/InputParameters"
	"github.com/notargets/gossm/data"
	"github.com/notargets/gossm/field"
	"github.com/notargets/gossm/gp"
	"github.com/notargets/gossm/mesh"
	"github.com/notargets/gossm/metrics"
	"github.com/notargets/gossm/model"
	"github.com/notargets/gossm/utils"
	"github.com/notargets/gossm/validation"
)

const exampleFile = `
########################################
Title: "Test Case"
Reference: reference.obj
MeshGlob: "meshes/*.obj"
OutputDir: out
Alignment:
  Enabled: true
  MaxIterations: 3
  HaltDistance: 1.0e-5
Model:
  InnerProduct: area # euclidean, area or area-lumped
Bias:
  Enabled: true
  Kernel: gaussian # or exponential
  Scale: 1.
  Sampler: randomsurface # vertices, randomvertices
  Samples: 200
  Rank: 50
Validation:
  Folds: 5 # 0 for leave one out
  Discrepancy: avg # or mse
  Ledger: runs.db
  MetricsFile: gossm.prom
########################################
`

// experiment carries the parsed parameters through one command run.
type experiment struct {
	params  *InputParameters.ExperimentParameters
	logger  *zap.Logger
	metrics *metrics.Collector
}

func addInputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("inputParameters", "I", "", "YAML file of experiment parameters")
}

func loadExperiment(cmd *cobra.Command) (*experiment, error) {
	path, err := cmd.Flags().GetString("inputParameters")
	if err != nil {
		return nil, err
	}
	if path == "" {
		fmt.Printf("Example File:%s\n", exampleFile)
		return nil, fmt.Errorf("must supply an input parameters file (-I, --inputParameters)")
	}
	ep, err := InputParameters.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if logger.Core().Enabled(zap.DebugLevel) {
		ep.Print()
	}
	return &experiment{params: ep, logger: logger, metrics: metrics.NewCollector()}, nil
}

func (e *experiment) outputPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(e.params.Resolve(e.params.OutputDir), name)
}

func (e *experiment) loadReference() (*mesh.TriangleMesh, error) {
	ref, err := mesh.ReadMeshFile(e.params.Resolve(e.params.Reference))
	if err != nil {
		return nil, fmt.Errorf("reference mesh: %w", err)
	}
	return ref, nil
}

// loadCollection reads every mesh against the reference. Meshes that fail
// are logged and left out.
func (e *experiment) loadCollection() (*data.DataCollection, error) {
	ref, err := e.loadReference()
	if err != nil {
		return nil, err
	}
	paths, err := e.params.MeshPaths()
	if err != nil {
		return nil, err
	}
	dc, failures := data.FromMeshFiles(ref, paths, nil, nil)
	for _, f := range failures {
		e.logger.Warn("skipping mesh", zap.String("mesh", f.ID), zap.Error(f.Err))
	}
	if dc.Size() == 0 {
		return nil, fmt.Errorf("none of the %d meshes could be loaded", len(paths))
	}
	e.logger.Info("collection loaded",
		zap.Int("items", dc.Size()),
		zap.Int("vertices", ref.NumVertices()),
		zap.String("memory", utils.GetMemUsage()))
	return dc, nil
}

// align runs Procrustes alignment when enabled. Hitting the iteration cap is
// reported and the last alignment is used.
func (e *experiment) align(dc *data.DataCollection) (*data.DataCollection, error) {
	ap := e.params.Alignment
	if !ap.Enabled {
		return dc, nil
	}
	res, err := data.AlignCollection(dc, data.ProcrustesConfig{
		MaxIterations: ap.MaxIterations,
		HaltDistance:  ap.HaltDistance,
		WithScaling:   ap.WithScaling,
		Logger:        e.logger,
	})
	if err != nil {
		return nil, err
	}
	e.metrics.RecordAlignment(res)
	if err = res.Err(); err != nil {
		e.logger.Warn("using unconverged alignment", zap.Error(err))
	}
	return res.Collection, nil
}

func (e *experiment) product(ref *mesh.TriangleMesh) (field.InnerProduct, error) {
	return field.NewInnerProduct(e.params.Model.InnerProduct, ref)
}

func (e *experiment) pcaConfig(ref *mesh.TriangleMesh) (cfg model.PCAConfig, err error) {
	cfg = model.PCAConfig{
		MaxRank:           e.params.Model.MaxRank,
		RelativeTolerance: e.params.Model.RelativeTolerance,
		Logger:            e.logger,
	}
	cfg.Product, err = e.product(ref)
	return
}

// biasModel approximates the Gaussian process bias over ref, or returns nil
// when the bias is disabled. The random source is seeded from the parameters.
func (e *experiment) biasModel(ref *mesh.TriangleMesh) (*model.LowRankModel, error) {
	bp := e.params.Bias
	if !bp.Enabled {
		return nil, nil
	}
	kind, _ := e.params.KernelType()
	sigma := bp.Sigma
	if sigma == 0 {
		sigma = 0.1 * ref.BoundingBoxDiagonal()
	}
	kernel, err := gp.NewKernel(kind, sigma, bp.Scale)
	if err != nil {
		return nil, err
	}
	samplerKind, _ := e.params.SamplerType()
	sampler, err := gp.NewSampler(samplerKind, bp.Samples)
	if err != nil {
		return nil, err
	}
	product, err := e.product(ref)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	g, err := gp.Approximate(ref, kernel, sampler, bp.Rank, rand.New(rand.NewSource(bp.Seed)),
		gp.Config{Product: product, Logger: e.logger})
	if err != nil {
		return nil, fmt.Errorf("bias model: %w", err)
	}
	e.metrics.ObserveBuild("bias", time.Since(start).Seconds())
	e.metrics.RecordModel("bias", g.Model)
	return g.Model, nil
}

// builder returns the model builder for a collection over ref, with the
// bias built once up front.
func (e *experiment) builder(ref *mesh.TriangleMesh) (name string, b validation.ModelBuilder, err error) {
	cfg, err := e.pcaConfig(ref)
	if err != nil {
		return
	}
	bias, err := e.biasModel(ref)
	if err != nil {
		return
	}
	if bias == nil {
		return "pca", validation.PCABuilder(cfg), nil
	}
	return "augmented", validation.AugmentedBuilder(cfg, bias), nil
}

func (e *experiment) writeMetrics() {
	path := e.outputPath(e.params.Validation.MetricsFile)
	if path == "" {
		return
	}
	if err := e.metrics.WriteTextfile(path); err != nil {
		e.logger.Warn("metrics textfile not written", zap.String("path", path), zap.Error(err))
	}
}

func (e *experiment) ensureOutputDir() error {
	return os.MkdirAll(e.params.Resolve(e.params.OutputDir), 0755)
}
