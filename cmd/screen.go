package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spigell/cv-advisor/internal/workflow"
	"go.uber.org/zap"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Score the CV against every job without an interview",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindFlags(cmd, map[string]string{
			"cv":                     "cv",
			"jobs":                   "jobs",
			"headhunter.vacancies":   "hh-vacancy",
			"headhunter.search.text": "hh-search",
			"screen.concurrency":     "concurrency",
		})
	},
	Run: func(_ *cobra.Command, _ []string) {
		screen()
	},
}

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().String("cv", "", "CV file (txt, md, pdf, docx)")
	screenCmd.Flags().String("jobs", "", "job descriptions file, postings separated by ---JOB N---")
	screenCmd.Flags().StringSlice("hh-vacancy", nil, "hh.ru vacancy id to screen (repeatable)")
	screenCmd.Flags().String("hh-search", "", "hh.ru search text; found vacancies are screened")
	screenCmd.Flags().IntP("concurrency", "c", 0, "analyses in flight (default 4)")
}

func screen() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := newCommandLogger(true)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	cv, err := loadCV(config)
	if err != nil {
		logger.Fatal("loading cv", zap.Error(err))
	}

	jobs, err := loadJobs(ctx, config, logger)
	if err != nil {
		logger.Fatal("loading jobs", zap.Error(err))
	}

	if len(jobs) == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs left after filters"))
		return
	}

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing services", zap.Error(err))
	}
	defer svc.Close()

	screenJobs := make([]workflow.ScreenJob, 0, len(jobs))
	for _, job := range jobs {
		screenJobs = append(screenJobs, workflow.ScreenJob{Title: job.Title, Text: job.Content})
	}

	logger.Info("screening jobs", zap.Int("count", len(screenJobs)), zap.Int("concurrency", config.Screen.Concurrency))

	results, err := workflow.Screen(ctx, svc.analyzer(), cv, screenJobs, config.Screen.Concurrency)
	if err != nil {
		logger.Fatal("screening failed", zap.Error(err))
	}

	printScreenResults(results)
}

func printScreenResults(results []workflow.ScreenResult) {
	slices.SortStableFunc(results, func(a, b workflow.ScreenResult) int {
		return screenScore(b) - screenScore(a)
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tSCORE\tMUST GAPS\tINTERVIEW\tREASON")
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\terror: %v\n", res.Job.Title, res.Err)
			continue
		}
		decision := res.Result.Decision
		fmt.Fprintf(w, "%s\t%d\t%d\t%t\t%s\n", res.Job.Title, decision.Score, decision.MustGaps, decision.NeedsInterview, decision.Reason)
	}
	_ = w.Flush()
}

func screenScore(res workflow.ScreenResult) int {
	if res.Err != nil || res.Result == nil {
		return -1
	}
	return res.Result.Decision.Score
}
