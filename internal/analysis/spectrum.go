package analysis

import (
	"errors"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

var ErrShortSeries = errors.New("analysis: series too short")

// PowerSpectrum returns the magnitude of each real-FFT coefficient of data,
// from DC up to the Nyquist bin. The mean is removed first.
func PowerSpectrum(data []float64) ([]float64, error) {
	if len(data) < 4 {
		return nil, ErrShortSeries
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	seq := make([]float64, len(data))
	for i, v := range data {
		seq[i] = v - mean
	}

	fft := fourier.NewFFT(len(seq))
	coeffs := fft.Coefficients(nil, seq)
	ps := make([]float64, len(coeffs))
	for i, c := range coeffs {
		ps[i] = cmplx.Abs(c)
	}
	return ps, nil
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC
// bin of a series sampled every dt seconds.
func DominantFrequency(data []float64, dt float64) (float64, error) {
	ps, err := PowerSpectrum(data)
	if err != nil {
		return 0, err
	}
	best := 1
	for i := 2; i < len(ps); i++ {
		if ps[i] > ps[best] {
			best = i
		}
	}
	return float64(best) / (float64(len(data)) * dt), nil
}
