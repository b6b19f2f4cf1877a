package kernels

import (
	"fmt"
	"math"
	"strings"

	"github.com/copyleftdev/flashrbf/internal/interpolation"
)

// Kernel is a radial basis function evaluated on a squared Euclidean distance.
// The set of kernels is closed; dispatch happens in Eval.
type Kernel int

const (
	// Gaussian is exp(-0.5 * d / b^2).
	Gaussian Kernel = iota
	// Multiquadric is sqrt(d + b^2).
	Multiquadric
	// InverseMultiquadric is 1 / sqrt(d + b^2).
	InverseMultiquadric
	// Linear is d. The bandwidth is ignored.
	Linear
	// Cubic is d^2. The bandwidth is ignored.
	Cubic
)

var names = [...]string{
	Gaussian:            "gaussian",
	Multiquadric:        "multiquadric",
	InverseMultiquadric: "inverse_multiquadratic",
	Linear:              "linear",
	Cubic:               "cubic",
}

// Kernels returns every kernel in declaration order.
func Kernels() []Kernel {
	return []Kernel{Gaussian, Multiquadric, InverseMultiquadric, Linear, Cubic}
}

// Eval computes the kernel value for squared distance d and bandwidth b.
// Callers must pass d >= 0 and b > 0.
func (k Kernel) Eval(d, b float64) float64 {
	switch k {
	case Gaussian:
		return gaussian(d, b)
	case Multiquadric:
		return multiquadric(d, b)
	case InverseMultiquadric:
		return 1.0 / multiquadric(d, b)
	case Linear:
		return d
	case Cubic:
		return d * d
	default:
		panic(fmt.Sprintf("kernels: unknown kernel %d", int(k)))
	}
}

func gaussian(d, b float64) float64 {
	return math.Exp(-0.5 * d / (b * b))
}

func multiquadric(d, b float64) float64 {
	return math.Sqrt(d + b*b)
}

// Valid reports whether k is one of the declared kernels.
func (k Kernel) Valid() bool {
	return k >= Gaussian && k <= Cubic
}

// String returns the canonical kernel name.
func (k Kernel) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kernel(%d)", int(k))
	}
	return names[k]
}

// ParseKernel maps a kernel name to a Kernel. The empty name selects Gaussian.
func ParseKernel(name string) (Kernel, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		return Gaussian, nil
	case "inverse_multiquadric":
		return InverseMultiquadric, nil
	}
	for k, n := range names {
		if n == name {
			return Kernel(k), nil
		}
	}
	return 0, interpolation.NewErrorf(interpolation.ErrInvalidArgument,
		"unknown kernel %q", name).WithComponent("kernels")
}

// MarshalText implements encoding.TextMarshaler.
func (k Kernel) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, interpolation.NewErrorf(interpolation.ErrInvalidArgument,
			"unknown kernel %d", int(k)).WithComponent("kernels")
	}
	return []byte(names[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kernel) UnmarshalText(text []byte) error {
	parsed, err := ParseKernel(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
