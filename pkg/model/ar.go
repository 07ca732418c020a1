package model

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

const arLags = 3

// FitAR3 fits a third order autoregressive model to the ordered ridership
// series by ordinary least squares, returning [intercept, lag1, lag2, lag3]
func FitAR3(series []float64) ([]float64, error) {
	rows := len(series) - arLags
	if rows < arLags+1 {
		return nil, errors.New("series too short for AR(3) fit")
	}

	design := mat.NewDense(rows, arLags+1, nil)
	response := mat.NewVecDense(rows, nil)

	for t := arLags; t < len(series); t++ {
		row := t - arLags

		design.Set(row, 0, 1)
		for lag := 1; lag <= arLags; lag++ {
			design.Set(row, lag, series[t-lag])
		}

		response.SetVec(row, series[t])
	}

	var qr mat.QR
	qr.Factorize(design)

	var solution mat.VecDense
	if err := qr.SolveVecTo(&solution, false, response); err != nil {
		return nil, err
	}

	params := make([]float64, arLags+1)
	for index := range params {
		value := solution.AtVec(index)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, errors.New("AR(3) fit produced non-finite parameters")
		}

		params[index] = value
	}

	return params, nil
}
