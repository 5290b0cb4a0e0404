// Standard attribute keys.
//
// Keys follow a hierarchical naming convention ("experiment.variant",
// "dataset.rows") so that log lines can be filtered by prefix.

package log

// Session and experiment context.
const (
	// ComponentKey names the package or subsystem emitting the record.
	ComponentKey = "component"

	// SessionIDKey identifies one user's wizard session.
	SessionIDKey = "session.id"

	// ExperimentIDKey is the handle ID assigned by the AutoML service.
	ExperimentIDKey = "experiment.id"

	// VariantKey is the experiment variant: "Classification" or "Regression".
	VariantKey = "experiment.variant"

	// TargetKey is the target column name.
	TargetKey = "experiment.target"

	// OperationKey is the collaborator operation being performed.
	OperationKey = "automl.operation"

	// URLKey is the AutoML service base URL.
	URLKey = "automl.url"

	// StateKey is the wizard state after a transition.
	StateKey = "wizard.state"

	// TriggerKey is the wizard trigger that caused a transition.
	TriggerKey = "wizard.trigger"
)

// Dataset shape and origin.
const (
	FilenameKey = "dataset.filename"
	FormatKey   = "dataset.format"
	RowsKey     = "dataset.rows"
	ColumnsKey  = "dataset.columns"
	SizeKey     = "dataset.size_bytes"
)

// Results.
const (
	ModelIDKey    = "model.id"
	ModelNameKey  = "model.name"
	ModelCountKey = "model.count"
	MetricKey     = "model.metric"
	ArtifactKey   = "artifact.name"
	DurationMsKey = "perf.duration_ms"
)

// HTTP.
const (
	MethodKey = "http.method"
	PathKey   = "http.path"
	StatusKey = "http.status"
)

// Common values for OperationKey.
const (
	OperationSetup    = "setup"
	OperationPull     = "pull"
	OperationCompare  = "compare"
	OperationTune     = "tune"
	OperationBlend    = "blend"
	OperationStack    = "stack"
	OperationAutoML   = "automl"
	OperationSave     = "save"
	OperationLoadData = "load"
)
