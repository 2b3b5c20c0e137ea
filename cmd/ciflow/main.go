// Command ciflow runs a CI pipeline definition and reports the verdict
// through its exit status: 0 for success or a pipeline that did not match
// its trigger, 1 for failure.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/askiada/go-ciflow/internal/api"
	"github.com/askiada/go-ciflow/pkg/ciflow"
	"github.com/askiada/go-ciflow/pkg/ciflow/config"
	"github.com/askiada/go-ciflow/pkg/ciflow/drawer"
	"github.com/askiada/go-ciflow/pkg/ciflow/model"
)

var rootCmd = &cobra.Command{
	Use:           "ciflow",
	Short:         "Run CI job graphs with dependency ordering and a required-jobs gate",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagFile        string
	flagEvent       string
	flagBranch      string
	flagAt          string
	flagMaxParallel int
	flagDraw        string
	flagListen      string
	flagOut         string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate the trigger and execute the pipeline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		file, err := config.Load(flagFile)
		if err != nil {
			return err
		}

		tc, err := triggerContext()
		if err != nil {
			return err
		}

		if !ciflow.ShouldRun(tc, file.Filters()) {
			fmt.Printf("pipeline %s: trigger %s did not match, not run\n", file.Name, tc.Event)
			return nil
		}

		jobs, err := file.ModelJobs()
		if err != nil {
			return err
		}

		graph, err := ciflow.NewGraph(jobs)
		if err != nil {
			return err
		}

		opts := []ciflow.Option{
			ciflow.WithRunner(ciflow.NewShellRunner(os.Stdout)),
			ciflow.WithObserver(&printer{}),
		}

		maxParallel := file.MaxParallel
		if cmd.Flags().Changed("max-parallel") {
			maxParallel = flagMaxParallel
		}
		if maxParallel > 0 {
			opts = append(opts, ciflow.WithMaxParallel(maxParallel))
		}

		var statusSrv *api.Server
		if flagListen != "" {
			statusSrv = api.NewServer(file.Name)
			if err := statusSrv.Start(flagListen); err != nil {
				return err
			}
			opts = append(opts, ciflow.WithObserver(statusSrv))
		}

		sched, err := ciflow.NewScheduler(graph, opts...)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		results, err := sched.Run(ctx)
		if err != nil {
			return err
		}

		if flagDraw != "" {
			if err := drawer.NewDOTDrawer(flagDraw).Draw(graph.Underlying()); err != nil {
				return err
			}
		}

		verdict := ciflow.Aggregate(results)
		printSummary(file.Name, verdict, results)

		if statusSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), api.ShutdownGrace)
			defer cancel()
			_ = statusSrv.Shutdown(shutdownCtx)
		}

		if verdict == model.VerdictFailure {
			os.Exit(1)
		}

		return nil
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Validate the pipeline and render its dependency graph",
	RunE: func(_ *cobra.Command, _ []string) error {
		file, err := config.Load(flagFile)
		if err != nil {
			return err
		}

		jobs, err := file.ModelJobs()
		if err != nil {
			return err
		}

		graph, err := ciflow.NewGraph(jobs)
		if err != nil {
			return err
		}

		return drawer.NewDOTDrawer(flagOut).Draw(graph.Underlying())
	},
}

func triggerContext() (model.TriggerContext, error) {
	tc := model.TriggerContext{
		Event:   model.EventKind(flagEvent),
		Branch:  flagBranch,
		FiredAt: time.Now(),
	}

	if flagAt != "" {
		at, err := time.Parse(time.RFC3339, flagAt)
		if err != nil {
			return model.TriggerContext{}, err
		}
		tc.FiredAt = at
	}

	return tc, nil
}

type printer struct{}

func (printer) JobStarted(job model.Job) {
	fmt.Printf("==> %s: running\n", job.ID)
}

func (printer) JobSettled(job model.Job, res model.Result) {
	line := fmt.Sprintf("==> %s: %s", job.ID, res.Outcome)
	if res.Reason != "" {
		line += " (" + res.Reason
		if res.Cause != "" {
			line += ": " + res.Cause
		}
		line += ")"
	}
	fmt.Println(line)
}

func (printer) RunFinished(model.Verdict, map[string]model.Result) {}

func printSummary(name string, verdict model.Verdict, results map[string]model.Result) {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("\npipeline %s: %s\n", name, verdict)
	for _, id := range ids {
		res := results[id]
		marker := " "
		if res.Required {
			marker = "*"
		}
		fmt.Printf("  %s %-20s %s\n", marker, id, res.Outcome)
	}
}

func main() {
	runCmd.Flags().StringVarP(&flagFile, "file", "f", "pipeline.yml", "pipeline definition file")
	runCmd.Flags().StringVar(&flagEvent, "event", string(model.EventManual), "trigger event kind (push, pull_request, schedule, manual)")
	runCmd.Flags().StringVar(&flagBranch, "branch", "", "target branch for push and pull_request events")
	runCmd.Flags().StringVar(&flagAt, "at", "", "trigger time (RFC 3339) for schedule events, defaults to now")
	runCmd.Flags().IntVar(&flagMaxParallel, "max-parallel", 0, "bound on concurrently running jobs, overrides the file")
	runCmd.Flags().StringVar(&flagDraw, "draw", "", "write the job graph with outcomes to a DOT file after the run")
	runCmd.Flags().StringVar(&flagListen, "listen", "", "serve live run status on this address")

	graphCmd.Flags().StringVarP(&flagFile, "file", "f", "pipeline.yml", "pipeline definition file")
	graphCmd.Flags().StringVarP(&flagOut, "out", "o", "pipeline.dot", "output DOT file")

	rootCmd.AddCommand(runCmd, graphCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}
