package types

import (
	"fmt"
	"strings"
)

type DiscrepancyType uint8

const (
	AverageDistance DiscrepancyType = iota
	MeanSquaredError
)

var DiscrepancyNameMap = map[string]DiscrepancyType{
	"":                 AverageDistance,
	"avg":              AverageDistance,
	"average":          AverageDistance,
	"averagedistance":  AverageDistance,
	"mse":              MeanSquaredError,
	"meansquarederror": MeanSquaredError,
}

func (d DiscrepancyType) String() string {
	return [...]string{"AverageDistance", "MeanSquaredError"}[d]
}

func NewDiscrepancyType(label string) (d DiscrepancyType, err error) {
	var ok bool
	if d, ok = DiscrepancyNameMap[normalize(label)]; !ok {
		err = fmt.Errorf("unknown discrepancy type: %q", label)
	}
	return
}

type KernelType uint8

const (
	Gaussian KernelType = iota
	Exponential
)

var KernelNameMap = map[string]KernelType{
	"gaussian":    Gaussian,
	"rbf":         Gaussian,
	"se":          Gaussian,
	"exponential": Exponential,
	"exp":         Exponential,
}

func (k KernelType) String() string {
	return [...]string{"Gaussian", "Exponential"}[k]
}

func NewKernelType(label string) (k KernelType, err error) {
	var ok bool
	if k, ok = KernelNameMap[normalize(label)]; !ok {
		err = fmt.Errorf("unknown kernel type: %q", label)
	}
	return
}

type SamplerType uint8

const (
	AllVertices SamplerType = iota
	RandomVertices
	RandomSurface
)

var SamplerNameMap = map[string]SamplerType{
	"":               AllVertices,
	"vertices":       AllVertices,
	"allvertices":    AllVertices,
	"randomvertices": RandomVertices,
	"random":         RandomVertices,
	"surface":        RandomSurface,
	"randomsurface":  RandomSurface,
}

func (s SamplerType) String() string {
	return [...]string{"AllVertices", "RandomVertices", "RandomSurface"}[s]
}

func NewSamplerType(label string) (s SamplerType, err error) {
	var ok bool
	if s, ok = SamplerNameMap[normalize(label)]; !ok {
		err = fmt.Errorf("unknown sampler type: %q", label)
	}
	return
}

func normalize(label string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(label))
}
