package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/YuminosukeSato/caretstudio/artifact"
	"github.com/YuminosukeSato/caretstudio/config"
	"github.com/YuminosukeSato/caretstudio/dataset"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
	"github.com/YuminosukeSato/caretstudio/pkg/log"
	"github.com/YuminosukeSato/caretstudio/report"
	"github.com/YuminosukeSato/caretstudio/wizard"
)

func runCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       runExperiment,
		UsageLine: "run [-c config.yaml] -e experiment.yaml",
		Short:     "run setup, compare, optimize and save without the browser",
		Long: `
run setup, compare, optimize and save without the browser

	$ caretstudio run -c caretstudio.yaml -e churn.yaml

The saved model is stored in the artifact directory under the experiment's
save_name.
`,
		Flag: *flag.NewFlagSet("run", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&configFile, "c", "", "configuration file (YAML)")
	cmd.Flag.StringVar(&experimentFile, "e", "", "experiment file (YAML)")
	return cmd
}

func runExperiment(cmd *commander.Command, args []string) error {
	if experimentFile == "" {
		return errors.NewValidationError("e", "an experiment file is required", experimentFile)
	}
	cfg, err := setup()
	if err != nil {
		return err
	}
	exp, err := config.LoadExperiment(experimentFile)
	if err != nil {
		return err
	}
	data, err := dataset.LoadFile(exp.Dataset)
	if err != nil {
		return err
	}
	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	store, err := artifact.NewStore(cfg.Artifacts.Dir)
	if err != nil {
		return err
	}

	sess := wizard.NewSession(saveName(exp), filepath.Base(exp.Dataset), data, backend,
		wizard.WithStore(store),
		wizard.WithTopN(cfg.Wizard.TopN),
		wizard.WithLogger(log.GetLoggerWithName("wizard")),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return drive(ctx, os.Stdout, sess, exp, store)
}

func saveName(exp *config.ExperimentFile) string {
	if exp.SaveName != "" {
		return exp.SaveName
	}
	return wizard.DefaultModelName
}

// drive takes sess through every wizard step and prints what each returned.
func drive(ctx context.Context, w io.Writer, sess *wizard.Session, exp *config.ExperimentFile, store *artifact.Store) error {
	problem, err := exp.Problem()
	if err != nil {
		return err
	}
	metric, err := exp.Metric()
	if err != nil {
		return err
	}

	if err := sess.Setup(ctx, wizard.SetupRequest{Target: exp.Target, Problem: problem, Config: exp.Setup}); err != nil {
		return err
	}
	_, res := sess.Snapshot()
	if err := printGrid(w, "Setup", report.FromResult(res.SetupSummary)); err != nil {
		return err
	}

	if err := sess.Compare(ctx, exp.TopN); err != nil {
		return err
	}
	_, res = sess.Snapshot()
	if err := printGrid(w, "Leaderboard", report.Leaderboard(res.Leaderboard)); err != nil {
		return err
	}

	if err := sess.Optimize(ctx, metric); err != nil {
		return err
	}
	if err := sess.Save(ctx, saveName(exp)); err != nil {
		return err
	}
	_, res = sess.Snapshot()

	if _, err := titleColor.Fprintf(w, "Best model (%s): ", res.Metric); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, res.Best); err != nil {
		return err
	}
	path := res.Artifact.Name
	if store != nil {
		path = filepath.Join(store.Dir(), res.Artifact.Key, res.Artifact.Name)
	}
	_, err = fmt.Fprintf(w, "Saved %s (%d bytes)\n", path, res.Artifact.Size)
	return err
}
