package experiment

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NumericStrategy names a built-in numeric imputation strategy.
type NumericStrategy string

const (
	NumericMean   NumericStrategy = "mean"
	NumericMedian NumericStrategy = "median"
	NumericMode   NumericStrategy = "mode"
	NumericKNN    NumericStrategy = "knn"
	NumericDrop   NumericStrategy = "drop"
)

// NumericStrategies lists the strategies offered in forms.
var NumericStrategies = []NumericStrategy{NumericMean, NumericMedian, NumericMode, NumericKNN, NumericDrop}

// NumericImputation is either a named strategy or a literal fill value.
type NumericImputation struct {
	strategy NumericStrategy
	value    float64
	literal  bool
}

// ImputeNumeric returns a strategy-based numeric imputation.
func ImputeNumeric(s NumericStrategy) NumericImputation {
	return NumericImputation{strategy: s}
}

// NumericValue fills missing numeric cells with v.
func NumericValue(v float64) NumericImputation {
	return NumericImputation{value: v, literal: true}
}

// Strategy returns the named strategy, if this is not a literal.
func (n NumericImputation) Strategy() (NumericStrategy, bool) { return n.strategy, !n.literal }

// Value returns the literal fill value, if there is one.
func (n NumericImputation) Value() (float64, bool) { return n.value, n.literal }

func (n NumericImputation) String() string {
	if n.literal {
		return strconv.FormatFloat(n.value, 'g', -1, 64)
	}
	return string(n.strategy)
}

// ParseNumericImputation reads a finite number as a literal and anything
// else, "nan" and "inf" included, as a strategy name. Unknown names are kept;
// the AutoML service rejects them.
func ParseNumericImputation(s string) NumericImputation {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil && isFinite(v) {
		return NumericValue(v)
	}
	return ImputeNumeric(NumericStrategy(s))
}

// MarshalJSON encodes a literal as a JSON number and a strategy as a string.
// JSON has no NaN or Inf, so a non-finite literal is sent as its text.
func (n NumericImputation) MarshalJSON() ([]byte, error) {
	if n.literal {
		if !isFinite(n.value) {
			return json.Marshal(n.String())
		}
		return json.Marshal(n.value)
	}
	return json.Marshal(string(n.strategy))
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (n *NumericImputation) UnmarshalJSON(b []byte) error {
	var v float64
	if err := json.Unmarshal(b, &v); err == nil {
		*n = NumericValue(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*n = ImputeNumeric(NumericStrategy(s))
	return nil
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// MarshalText implements encoding.TextMarshaler.
func (n NumericImputation) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler (YAML and form values).
func (n *NumericImputation) UnmarshalText(b []byte) error {
	*n = ParseNumericImputation(string(b))
	return nil
}

// CategoricalStrategy names a built-in categorical imputation strategy.
type CategoricalStrategy string

const (
	CategoricalMode CategoricalStrategy = "mode"
	CategoricalDrop CategoricalStrategy = "drop"
)

// CategoricalStrategies lists the strategies offered in forms.
var CategoricalStrategies = []CategoricalStrategy{CategoricalMode, CategoricalDrop}

// CategoricalImputation is either a named strategy or a literal fill value.
type CategoricalImputation struct {
	strategy CategoricalStrategy
	value    string
	literal  bool
}

// ImputeCategorical returns a strategy-based categorical imputation.
func ImputeCategorical(s CategoricalStrategy) CategoricalImputation {
	return CategoricalImputation{strategy: s}
}

// CategoricalValue fills missing categorical cells with v.
func CategoricalValue(v string) CategoricalImputation {
	return CategoricalImputation{value: v, literal: true}
}

// Strategy returns the named strategy, if this is not a literal.
func (c CategoricalImputation) Strategy() (CategoricalStrategy, bool) { return c.strategy, !c.literal }

// Value returns the literal fill value, if there is one.
func (c CategoricalImputation) Value() (string, bool) { return c.value, c.literal }

func (c CategoricalImputation) String() string {
	if c.literal {
		return c.value
	}
	return string(c.strategy)
}

// ParseCategoricalImputation reads "mode" and "drop" as strategies and any
// other text as a literal fill value.
func ParseCategoricalImputation(s string) CategoricalImputation {
	switch CategoricalStrategy(s) {
	case CategoricalMode, CategoricalDrop:
		return ImputeCategorical(CategoricalStrategy(s))
	default:
		return CategoricalValue(s)
	}
}

// MarshalJSON encodes both variants as the string the AutoML service expects.
func (c CategoricalImputation) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *CategoricalImputation) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*c = ParseCategoricalImputation(s)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c CategoricalImputation) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CategoricalImputation) UnmarshalText(b []byte) error {
	*c = ParseCategoricalImputation(string(b))
	return nil
}

// OutlierMethod names an outlier detection method.
type OutlierMethod string

const (
	OutlierIForest          OutlierMethod = "iforest"
	OutlierEllipticEnvelope OutlierMethod = "ee"
	OutlierLOF              OutlierMethod = "lof"
)

// OutlierMethods lists the methods offered in forms.
var OutlierMethods = []OutlierMethod{OutlierIForest, OutlierEllipticEnvelope, OutlierLOF}

// Config is the bag of options forwarded to the AutoML setup call.
// Empty feature lists mean "let the service infer".
type Config struct {
	NumericImputation     NumericImputation     `json:"numeric_imputation" yaml:"numeric_imputation"`
	CategoricalImputation CategoricalImputation `json:"categorical_imputation" yaml:"categorical_imputation"`
	NumericFeatures       []string              `json:"numeric_features" yaml:"numeric_features"`
	CategoricalFeatures   []string              `json:"categorical_features" yaml:"categorical_features"`
	DateFeatures          []string              `json:"date_features" yaml:"date_features"`
	IgnoreFeatures        []string              `json:"ignore_features" yaml:"ignore_features"`
	KeepFeatures          []string              `json:"keep_features" yaml:"keep_features"`
	OrdinalFeatures       map[string][]string   `json:"ordinal_features" yaml:"ordinal_features"`
	MaxEncodingOHE        int                   `json:"max_encoding_ohe" yaml:"max_encoding_ohe"`
	RemoveOutliers        bool                  `json:"remove_outliers" yaml:"remove_outliers"`
	OutliersMethod        OutlierMethod         `json:"outliers_method" yaml:"outliers_method"`
	OutliersThreshold     float64               `json:"outliers_threshold" yaml:"outliers_threshold"`
}

// Defaults of the setup call.
const (
	DefaultMaxEncodingOHE    = 25
	DefaultOutliersThreshold = 0.05
)

// DefaultConfig returns the documented defaults: mean/mode imputation, no
// forced feature roles, one-hot encoding up to 25 levels, outlier removal off
// (iforest at 0.05 when enabled).
func DefaultConfig() Config {
	return Config{
		NumericImputation:     ImputeNumeric(NumericMean),
		CategoricalImputation: ImputeCategorical(CategoricalMode),
		NumericFeatures:       []string{},
		CategoricalFeatures:   []string{},
		DateFeatures:          []string{},
		IgnoreFeatures:        []string{},
		KeepFeatures:          []string{},
		OrdinalFeatures:       map[string][]string{},
		MaxEncodingOHE:        DefaultMaxEncodingOHE,
		RemoveOutliers:        false,
		OutliersMethod:        OutlierIForest,
		OutliersThreshold:     DefaultOutliersThreshold,
	}
}

// Option configures a setup call.
type Option func(*Config)

// WithConfig replaces the whole bag.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithNumericImputation sets the numeric imputation.
func WithNumericImputation(n NumericImputation) Option {
	return func(c *Config) {
		c.NumericImputation = n
	}
}

// WithCategoricalImputation sets the categorical imputation.
func WithCategoricalImputation(ci CategoricalImputation) Option {
	return func(c *Config) {
		c.CategoricalImputation = ci
	}
}

// WithNumericFeatures forces columns to be treated as numeric.
func WithNumericFeatures(cols ...string) Option {
	return func(c *Config) {
		c.NumericFeatures = cols
	}
}

// WithCategoricalFeatures forces columns to be treated as categorical.
func WithCategoricalFeatures(cols ...string) Option {
	return func(c *Config) {
		c.CategoricalFeatures = cols
	}
}

// WithDateFeatures forces columns to be treated as dates.
func WithDateFeatures(cols ...string) Option {
	return func(c *Config) {
		c.DateFeatures = cols
	}
}

// WithIgnoreFeatures drops columns from modelling.
func WithIgnoreFeatures(cols ...string) Option {
	return func(c *Config) {
		c.IgnoreFeatures = cols
	}
}

// WithKeepFeatures protects columns from feature selection.
func WithKeepFeatures(cols ...string) Option {
	return func(c *Config) {
		c.KeepFeatures = cols
	}
}

// WithOrdinalFeatures maps columns to their ordered categories.
func WithOrdinalFeatures(m map[string][]string) Option {
	return func(c *Config) {
		c.OrdinalFeatures = m
	}
}

// WithMaxEncodingOHE sets the cardinality limit for one-hot encoding.
func WithMaxEncodingOHE(n int) Option {
	return func(c *Config) {
		c.MaxEncodingOHE = n
	}
}

// WithRemoveOutliers toggles outlier removal.
func WithRemoveOutliers(remove bool) Option {
	return func(c *Config) {
		c.RemoveOutliers = remove
	}
}

// WithOutliersMethod sets the outlier detection method.
func WithOutliersMethod(m OutlierMethod) Option {
	return func(c *Config) {
		c.OutliersMethod = m
	}
}

// WithOutliersThreshold sets the share of rows treated as outliers.
func WithOutliersThreshold(th float64) Option {
	return func(c *Config) {
		c.OutliersThreshold = th
	}
}
