// Package caretstudio is a browser wizard for building models with an
// external AutoML service.
//
// A user uploads a CSV, XLS, XLSX or JSON dataset, looks at its preview and
// summary statistics, picks preprocessing options and a target column, and
// then walks the experiment through four steps. Every step is delegated to
// the AutoML service; caretstudio only forwards the configuration and shows
// what comes back.
//
//  1. setup: imputation, feature types, ordinal orders, one-hot limit and
//     outlier removal are sent with the dataset
//  2. compare: the service ranks its candidate models and keeps the top N
//  3. optimize: each kept model is tuned, the tuned set is blended and
//     stacked, and the best model by the chosen metric is selected
//  4. save: the finalized pipeline is written to the artifact store and can
//     be downloaded
//
// # Layout
//
//   - dataset: format detection, CSV/Excel/JSON readers, dtype inference, describe
//   - experiment: option bag, problem types, metrics and the Backend interface
//   - automl/remote: HTTP client for the AutoML service
//   - automl/automltest: in-memory Backend for tests
//   - wizard: per-upload state machine driving the four steps
//   - artifact: on-disk store of saved models
//   - report: display grids and PNG charts
//   - server: HTTP handlers and templates
//   - config: YAML configuration and headless experiment files
//   - pkg/errors, pkg/log: error types and structured logging
//
// # Quick Start
//
//	$ caretstudio serve -c caretstudio.yaml
//	$ open http://localhost:8080
//
// Or without the browser:
//
//	$ caretstudio run -c caretstudio.yaml -e churn.yaml
package caretstudio
