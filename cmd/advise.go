package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spigell/cv-advisor/internal/channel"
	"github.com/spigell/cv-advisor/internal/document"
	"github.com/spigell/cv-advisor/internal/filtering"
	"github.com/spigell/cv-advisor/internal/workflow"
	"go.uber.org/zap"
)

const (
	PromptAllJobs = "Analyze all jobs"
	PromptExit    = "Exit"
	PromptYes     = "Yes"
	PromptNo      = "No"
)

var errExit = errors.New("exit requested")

var continuePrompt = promptui.Select{
	Label: "Continue to the next job?",
	Items: []string{PromptYes, PromptNo},
}

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Analyze the CV against a job and talk through the gaps",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindFlags(cmd, map[string]string{
			"cv":                   "cv",
			"jobs":                 "jobs",
			"headhunter.vacancies": "hh-vacancy",
		})
	},
	Run: func(cmd *cobra.Command, _ []string) {
		advise(cmd)
	},
}

func init() {
	rootCmd.AddCommand(adviseCmd)

	adviseCmd.Flags().String("cv", "", "CV file (txt, md, pdf, docx)")
	adviseCmd.Flags().String("jobs", "", "job descriptions file, postings separated by ---JOB N---")
	adviseCmd.Flags().StringSlice("hh-vacancy", nil, "hh.ru vacancy id to advise on (repeatable)")
	adviseCmd.Flags().BoolP("all", "a", false, "go through all jobs without the selection prompt")
}

func advise(cmd *cobra.Command) {
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

	logger.Info("starting the cv-advisor", zap.String("version", version))

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

	console := channel.NewConsole(os.Stdin, os.Stdout)

	selected := jobs
	if all, _ := cmd.Flags().GetBool("all"); !all && len(jobs) > 1 {
		selected, err = selectJobs(jobs)
		if err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("selecting a job", zap.Error(err))
		}
	}

	for i, job := range selected {
		if err := adviseOnJob(ctx, svc, console, cv, job); err != nil {
			if ctx.Err() != nil {
				logger.Info("exiting", zap.String("reason", "interrupted"))
				return
			}
			logger.Error("advising on job failed", zap.String("job", job.Title), zap.Error(err))
		}

		if i < len(selected)-1 {
			if _, answer, err := continuePrompt.Run(); err != nil || answer != PromptYes {
				logger.Info("exiting", zap.String("reason", "stopped before the next job"))
				return
			}
		}
	}
}

func selectJobs(jobs []document.Job) ([]document.Job, error) {
	items := make([]string, 0, len(jobs)+2)
	for _, job := range jobs {
		items = append(items, fmt.Sprintf("%d. %s", job.Number, job.Title))
	}
	items = append(items, PromptAllJobs, PromptExit)

	jobPrompt := promptui.Select{
		Label: "Choose a job and press ENTER",
		Items: items,
		Size:  10,
	}

	idx, choice, err := jobPrompt.Run()
	if err != nil {
		return nil, err
	}

	switch choice {
	case PromptExit:
		return nil, errExit
	case PromptAllJobs:
		return jobs, nil
	default:
		return jobs[idx : idx+1], nil
	}
}

func adviseOnJob(ctx context.Context, svc *services, console *channel.Console, cv string, job document.Job) error {
	fmt.Printf("\nAnalyzing: %s\n", job.Title)

	controller := svc.controller(func(event workflow.Event) {
		if event.State == workflow.AwaitingQnA {
			fmt.Println("\nLet's have a conversation to better understand your background.")
			return
		}
		fmt.Printf("... %s\n", event.Message)
	})

	report, err := controller.Run(ctx, workflow.Input{
		JobTitle: job.Title,
		CV:       cv,
		Job:      job.Content,
	}, console)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", report.Render())

	if path := svc.config.ExcludeFile; path != "" {
		if err := filtering.AppendToExcludeFile(path, job); err != nil {
			return fmt.Errorf("appending to exclude file: %w", err)
		}
		svc.logger.Info("appended to exclude file", zap.String("filename", path), zap.String("job", job.Title))
	}

	return nil
}
