// Package diagnostic provides finite difference and adjoint checks for
// user-supplied derivative oracles. The gradient, Hessian and second
// derivative checks compare an analytic derivative against a 4-point central
// difference over a sweep of step sizes and report the relative differences;
// the caller reads the sweep for the characteristic V-shape of a correct
// implementation. The Hessian symmetry and derivative adjoint checks return
// a single absolute difference of two inner products.
package diagnostic

import (
	"math"

	"github.com/coneopt/coneopt/solver"
	"github.com/coneopt/coneopt/vspace"
)

// Report is one sweep of relative differences, from epsilon = 1e+2 down to
// 1e-5 in factors of ten.
type Report struct {
	Epsilon []float64
	RelDiff []float64
}

func sweep() Report {
	var r Report
	for i := -2; i <= 5; i++ {
		r.Epsilon = append(r.Epsilon, math.Pow(0.1, float64(i)))
	}
	return r
}

// directional computes the 4-point finite difference directional derivative
// of f at x along dx,
//
//	(f(x-2εdx) - 8f(x-εdx) + 8f(x+εdx) - f(x+2εdx)) / 12ε.
func directional[XV any](sp vspace.Space[XV], f solver.ScalarFunc[XV], x, dx XV, eps float64) float64 {
	xe := sp.New(x)
	point := func(t float64) float64 {
		sp.Copy(x, xe)
		sp.Axpy(t*eps, dx, xe)
		return f.Eval(xe)
	}
	return (point(-2) - 8*point(-1) + 8*point(1) - point(2)) / (12 * eps)
}

// gradDirectional applies the same stencil to the gradient, approximating
// hess f(x) dx.
func gradDirectional[XV any](sp vspace.Space[XV], f solver.ScalarFunc[XV], x, dx XV, eps float64, dd XV) {
	xe := sp.New(x)
	ge := sp.New(x)
	sp.Zero(dd)
	accum := func(t, w float64) {
		sp.Copy(x, xe)
		sp.Axpy(t*eps, dx, xe)
		f.Grad(xe, ge)
		sp.Axpy(w, ge, dd)
	}
	accum(1, 8)
	accum(-1, -8)
	accum(2, -1)
	accum(-2, 1)
	sp.Scale(1/(12*eps), dd)
}

// GradientCheck sweeps the finite difference test of grad f against f.
func GradientCheck[XV any](sp vspace.Space[XV], f solver.ScalarFunc[XV], x, dx XV) Report {
	g := sp.New(x)
	f.Grad(x, g)
	ddGrad := sp.Inner(g, dx)

	r := sweep()
	for _, eps := range r.Epsilon {
		dd := directional(sp, f, x, dx, eps)
		r.RelDiff = append(r.RelDiff, math.Abs(ddGrad-dd)/(1e-16+math.Abs(ddGrad)))
	}
	return r
}

// HessianCheck sweeps the finite difference test of hessvec against grad f.
func HessianCheck[XV any](sp vspace.Space[XV], f solver.ScalarFunc[XV], x, dx XV) Report {
	hdx := sp.New(x)
	f.HessVec(x, dx, hdx)
	res := sp.New(x)

	r := sweep()
	for _, eps := range r.Epsilon {
		gradDirectional(sp, f, x, dx, eps, res)
		sp.Axpy(-1, hdx, res)
		r.RelDiff = append(r.RelDiff, vspace.Norm(sp, res)/(1e-16+vspace.Norm(sp, hdx)))
	}
	return r
}

// HessianSymmetryCheck returns the absolute difference between
// <H(x)dx,dxx> and <dx,H(x)dxx>, which should vanish to roundoff for any
// true Hessian.
func HessianSymmetryCheck[XV any](sp vspace.Space[XV], f solver.ScalarFunc[XV], x, dx, dxx XV) float64 {
	hdx := sp.New(x)
	hdxx := sp.New(x)
	f.HessVec(x, dx, hdx)
	f.HessVec(x, dxx, hdxx)
	return math.Abs(sp.Inner(hdx, dxx) - sp.Inner(dx, hdxx))
}

// DerivativeCheck sweeps the finite difference test of the Jacobian p
// against the map itself.
func DerivativeCheck[XV, YV any](
	sx vspace.Space[XV], sy vspace.Space[YV],
	f solver.VectorFunc[XV, YV], x, dx XV, proto YV,
) Report {
	fp := sy.New(proto)
	f.P(x, dx, fp)

	xe := sx.New(x)
	fe := sy.New(proto)
	res := sy.New(proto)

	r := sweep()
	for _, eps := range r.Epsilon {
		sy.Zero(res)
		accum := func(t, w float64) {
			sx.Copy(x, xe)
			sx.Axpy(t*eps, dx, xe)
			f.Eval(xe, fe)
			sy.Axpy(w, fe, res)
		}
		accum(1, 8)
		accum(-1, -8)
		accum(2, -1)
		accum(-2, 1)
		sy.Scale(1/(12*eps), res)
		sy.Axpy(-1, fp, res)
		r.RelDiff = append(r.RelDiff, vspace.Norm(sy, res)/(1e-16+vspace.Norm(sy, fp)))
	}
	return r
}

// DerivativeAdjointCheck returns the absolute difference between
// <f'(x)dx,dy> and <dx,f'(x)*dy>.
func DerivativeAdjointCheck[XV, YV any](
	sx vspace.Space[XV], sy vspace.Space[YV],
	f solver.VectorFunc[XV, YV], x, dx XV, dy YV,
) float64 {
	fp := sy.New(dy)
	f.P(x, dx, fp)
	fps := sx.New(x)
	f.Ps(x, dy, fps)
	return math.Abs(sy.Inner(fp, dy) - sx.Inner(dx, fps))
}

// SecondDerivativeCheck sweeps the finite difference test of the
// second-derivative adjoint pps against the Jacobian adjoint ps.
func SecondDerivativeCheck[XV, YV any](
	sx vspace.Space[XV], sy vspace.Space[YV],
	f solver.VectorFunc[XV, YV], x, dx XV, dy YV,
) Report {
	fpps := sx.New(x)
	f.Pps(x, dx, dy, fpps)

	xe := sx.New(x)
	pse := sx.New(x)
	res := sx.New(x)

	r := sweep()
	for _, eps := range r.Epsilon {
		sx.Zero(res)
		accum := func(t, w float64) {
			sx.Copy(x, xe)
			sx.Axpy(t*eps, dx, xe)
			f.Ps(xe, dy, pse)
			sx.Axpy(w, pse, res)
		}
		accum(1, 8)
		accum(-1, -8)
		accum(2, -1)
		accum(-2, 1)
		sx.Scale(1/(12*eps), res)
		sx.Axpy(-1, fpps, res)
		r.RelDiff = append(r.RelDiff, vspace.Norm(sx, res)/(1e-16+vspace.Norm(sx, fpps)))
	}
	return r
}
