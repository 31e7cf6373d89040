//go:build netlib
// +build netlib

package utils

/*
#cgo CFLAGS: -march=native -mavx -mavx2
#cgo LDFLAGS: -lopenblas -llapacke -lgfortran -lm -lpthread
#include <cblas.h>
#include <lapacke.h>
*/
import "C"

import (
	"gonum.org/v1/gonum/blas/blas64"
	netblas "gonum.org/v1/netlib/blas/netlib"
)

// Built with -tags netlib the Gram and kernel eigensolves run on OpenBLAS.
func init() {
	blas64.Use(netblas.Implementation{})
}
