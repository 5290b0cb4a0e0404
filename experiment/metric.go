package experiment

import (
	"strings"

	"github.com/YuminosukeSato/caretstudio/pkg/errors"
)

// Metric is a score the AutoML service can optimize for.
type Metric string

const (
	Accuracy  Metric = "Accuracy"
	AUC       Metric = "AUC"
	Recall    Metric = "Recall"
	Precision Metric = "Precision"
	F1        Metric = "F1"
	MSE       Metric = "MSE"
	RMSE      Metric = "RMSE"
	MAE       Metric = "MAE"
	R2        Metric = "R2"
	MAPE      Metric = "MAPE"
	RMSLE     Metric = "RMSLE"
	QWK       Metric = "QWK"
	Kappa     Metric = "Kappa"
	MCC       Metric = "MCC"
)

// Metrics lists every optimizer choice, in the order forms show them.
var Metrics = []Metric{
	Accuracy, AUC, Recall, Precision, F1,
	MSE, RMSE, MAE, R2, MAPE, RMSLE,
	QWK, Kappa, MCC,
}

// HigherIsBetter reports whether larger values of m mean a better model.
// Error metrics (MSE, RMSE, MAE, MAPE, RMSLE) are minimized.
func (m Metric) HigherIsBetter() bool {
	switch m {
	case MSE, RMSE, MAE, MAPE, RMSLE:
		return false
	default:
		return true
	}
}

// ParseMetric matches a metric name, ignoring case.
func ParseMetric(s string) (Metric, error) {
	for _, m := range Metrics {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", errors.NewValidationError("optimize", "unknown metric", s)
}

// DefaultMetric is the metric automatic model selection uses when none is
// chosen: Accuracy for classification, R2 for regression.
func DefaultMetric(p ProblemType) Metric {
	if p == Classification {
		return Accuracy
	}
	return R2
}
