package InputParameters

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ghodss/yaml"

	"github.com/notargets/gossm/types"
)

// Parameters obtained from the YAML experiment file. ghodss/yaml converts
// to JSON before decoding, hence the json tags.
type ExperimentParameters struct {
	Title      string               `json:"Title"`
	Reference  string               `json:"Reference"`
	Meshes     []string             `json:"Meshes"`
	MeshGlob   string               `json:"MeshGlob"`
	OutputDir  string               `json:"OutputDir"`
	Alignment  AlignmentParameters  `json:"Alignment"`
	Model      ModelParameters      `json:"Model"`
	Bias       BiasParameters       `json:"Bias"`
	Validation ValidationParameters `json:"Validation"`
	// Directory relative paths are resolved against, set by ReadFile
	BaseDir string `json:"-"`
}

type AlignmentParameters struct {
	Enabled       bool    `json:"Enabled"`
	MaxIterations int     `json:"MaxIterations"`
	HaltDistance  float64 `json:"HaltDistance"`
	WithScaling   bool    `json:"WithScaling"`
}

type ModelParameters struct {
	InnerProduct      string  `json:"InnerProduct"` // euclidean, area or area-lumped
	MaxRank           int     `json:"MaxRank"`
	RelativeTolerance float64 `json:"RelativeTolerance"`
	ModelFile         string  `json:"ModelFile"`
}

type BiasParameters struct {
	Enabled bool    `json:"Enabled"`
	Kernel  string  `json:"Kernel"`
	Sigma   float64 `json:"Sigma"` // 0 picks a tenth of the bounding box diagonal
	Scale   float64 `json:"Scale"`
	Sampler string  `json:"Sampler"`
	Samples int     `json:"Samples"`
	Rank    int     `json:"Rank"`
	Seed    int64   `json:"Seed"`
}

type ValidationParameters struct {
	Folds       int    `json:"Folds"` // 0 means leave one out
	Shuffle     bool   `json:"Shuffle"`
	Seed        int64  `json:"Seed"`
	Discrepancy string `json:"Discrepancy"`
	Parallelism int    `json:"Parallelism"`
	Ledger      string `json:"Ledger"`
	MetricsFile string `json:"MetricsFile"`
}

func (ep *ExperimentParameters) SetDefaults() {
	ep.OutputDir = "."
	ep.Alignment = AlignmentParameters{Enabled: true, MaxIterations: 3, HaltDistance: 1e-5}
	ep.Model = ModelParameters{InnerProduct: "euclidean", ModelFile: "model.ssm"}
	ep.Bias = BiasParameters{Kernel: "gaussian", Scale: 1, Sampler: "randomsurface", Samples: 200, Rank: 50, Seed: 1}
	ep.Validation = ValidationParameters{Folds: 5, Seed: 1, Discrepancy: "avg"}
}

// Parse fills defaults, then overrides them with the YAML in data.
func (ep *ExperimentParameters) Parse(data []byte) error {
	ep.SetDefaults()
	if err := yaml.Unmarshal(data, ep); err != nil {
		return err
	}
	return ep.Validate()
}

func ReadFile(path string) (ep *ExperimentParameters, err error) {
	var data []byte
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	ep = &ExperimentParameters{}
	if err = ep.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ep.BaseDir = filepath.Dir(path)
	return
}

func (ep *ExperimentParameters) Validate() error {
	if ep.Reference == "" {
		return fmt.Errorf("experiment has no Reference mesh")
	}
	if ep.Alignment.MaxIterations < 1 {
		return fmt.Errorf("invalid Alignment.MaxIterations %d, must be positive", ep.Alignment.MaxIterations)
	}
	if ep.Alignment.HaltDistance < 0 {
		return fmt.Errorf("invalid Alignment.HaltDistance %g, must be non-negative", ep.Alignment.HaltDistance)
	}
	if ep.Model.MaxRank < 0 {
		return fmt.Errorf("invalid Model.MaxRank %d, must be non-negative", ep.Model.MaxRank)
	}
	if ep.Validation.Folds < 0 {
		return fmt.Errorf("invalid Validation.Folds %d, must be non-negative", ep.Validation.Folds)
	}
	if _, err := ep.DiscrepancyType(); err != nil {
		return err
	}
	if ep.Bias.Enabled {
		if _, err := ep.KernelType(); err != nil {
			return err
		}
		if _, err := ep.SamplerType(); err != nil {
			return err
		}
		if ep.Bias.Rank < 1 {
			return fmt.Errorf("invalid Bias.Rank %d, must be positive", ep.Bias.Rank)
		}
		if ep.Bias.Sigma < 0 || ep.Bias.Scale < 0 {
			return fmt.Errorf("invalid Bias.Sigma or Bias.Scale, both must be non-negative")
		}
	}
	return nil
}

func (ep *ExperimentParameters) DiscrepancyType() (types.DiscrepancyType, error) {
	return types.NewDiscrepancyType(ep.Validation.Discrepancy)
}

func (ep *ExperimentParameters) KernelType() (types.KernelType, error) {
	return types.NewKernelType(ep.Bias.Kernel)
}

func (ep *ExperimentParameters) SamplerType() (types.SamplerType, error) {
	return types.NewSamplerType(ep.Bias.Sampler)
}

// Resolve makes path relative to the parameter file's directory.
func (ep *ExperimentParameters) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || ep.BaseDir == "" {
		return path
	}
	return filepath.Join(ep.BaseDir, path)
}

// MeshPaths lists the explicit meshes followed by the sorted glob matches.
func (ep *ExperimentParameters) MeshPaths() (paths []string, err error) {
	for _, p := range ep.Meshes {
		paths = append(paths, ep.Resolve(p))
	}
	if ep.MeshGlob != "" {
		var matches []string
		if matches, err = filepath.Glob(ep.Resolve(ep.MeshGlob)); err != nil {
			return nil, err
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no meshes: set Meshes or MeshGlob")
	}
	return
}

func (ep *ExperimentParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ep.Title)
	fmt.Printf("[%s]\t\t= Reference\n", ep.Reference)
	fmt.Printf("[%d] [%s]\t\t= Meshes, MeshGlob\n", len(ep.Meshes), ep.MeshGlob)
	fmt.Printf("[%v] %d %8.2e\t= Alignment, MaxIterations, HaltDistance\n",
		ep.Alignment.Enabled, ep.Alignment.MaxIterations, ep.Alignment.HaltDistance)
	fmt.Printf("[%s] %d\t\t= InnerProduct, MaxRank\n", ep.Model.InnerProduct, ep.Model.MaxRank)
	if ep.Bias.Enabled {
		fmt.Printf("[%s] %8.5f %8.5f\t= Kernel, Sigma, Scale\n", ep.Bias.Kernel, ep.Bias.Sigma, ep.Bias.Scale)
		fmt.Printf("[%s] %d %d\t= Sampler, Samples, Rank\n", ep.Bias.Sampler, ep.Bias.Samples, ep.Bias.Rank)
	}
	fmt.Printf("%d [%s]\t\t\t= Folds, Discrepancy\n", ep.Validation.Folds, ep.Validation.Discrepancy)
}
