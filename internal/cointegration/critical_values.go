package cointegration

import "fmt"

// CriticalValues are the unit-root test thresholds at the standard significance levels
type CriticalValues struct {
	OnePercent  float64 `json:"1%"`
	FivePercent float64 `json:"5%"`
	TenPercent  float64 `json:"10%"`
}

// At returns the critical value for a significance level of 0.01, 0.05 or 0.10
func (c CriticalValues) At(significance float64) (float64, error) {
	switch significance {
	case 0.01:
		return c.OnePercent, nil
	case 0.05:
		return c.FivePercent, nil
	case 0.10:
		return c.TenPercent, nil
	default:
		return 0, fmt.Errorf("unsupported significance level %v", significance)
	}
}

// MacKinnon (2010) response surface coefficients, constant term only.
// Index 0 is the single-series ADF case; index 1 is the two-variable
// Engle-Granger residual case.
var responseSurface = [2][3][4]float64{
	{
		{-3.43035, -6.5393, -16.786, -79.433},
		{-2.86154, -2.8903, -4.234, -40.040},
		{-2.56677, -1.5384, -2.809, 0},
	},
	{
		{-3.89644, -10.9519, -33.527, 0},
		{-3.33613, -6.1101, -6.823, 0},
		{-3.04445, -4.2412, -2.720, 0},
	},
}

// MacKinnonCriticalValues evaluates the response surface for nobs observations.
// variables is 1 for a plain ADF test and 2 for the Engle-Granger residual test.
func MacKinnonCriticalValues(variables, nobs int) CriticalValues {
	idx := 1
	if variables <= 1 {
		idx = 0
	}
	t := float64(nobs)
	eval := func(b [4]float64) float64 {
		return b[0] + b[1]/t + b[2]/(t*t) + b[3]/(t*t*t)
	}
	surf := responseSurface[idx]
	return CriticalValues{
		OnePercent:  eval(surf[0]),
		FivePercent: eval(surf[1]),
		TenPercent:  eval(surf[2]),
	}
}
