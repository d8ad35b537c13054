package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/spigell/cv-advisor/internal/ai"
	"github.com/spigell/cv-advisor/internal/ai/gemini"
	"github.com/spigell/cv-advisor/internal/analysis"
	"github.com/spigell/cv-advisor/internal/archive"
	"github.com/spigell/cv-advisor/internal/document"
	"github.com/spigell/cv-advisor/internal/filtering"
	"github.com/spigell/cv-advisor/internal/gaps"
	"github.com/spigell/cv-advisor/internal/headhunter"
	"github.com/spigell/cv-advisor/internal/interview"
	"github.com/spigell/cv-advisor/internal/logger"
	"github.com/spigell/cv-advisor/internal/recommendation"
	"github.com/spigell/cv-advisor/internal/secrets"
	"github.com/spigell/cv-advisor/internal/validation"
	"github.com/spigell/cv-advisor/internal/workflow"
	"go.uber.org/zap"
)

// services holds everything a command needs to build workflow controllers.
type services struct {
	config  *Config
	logger  *zap.Logger
	oracle  ai.Oracle
	store   gaps.Store
	archive *archive.Postgres
	closers []func()
}

func newServices(ctx context.Context, config *Config, log *zap.Logger) (*services, error) {
	s := &services{config: config, logger: log}

	oracle, err := newOracle(ctx, config.AI, log)
	if err != nil {
		return nil, fmt.Errorf("creating ai oracle: %w", err)
	}
	s.oracle = oracle

	if err := s.openGapStore(ctx); err != nil {
		s.Close()
		return nil, err
	}

	if err := s.openArchive(ctx); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func newOracle(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*gemini.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Value: cfg.Gemini.APIKey,
		Env:   "GOOGLE_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	personas, err := ai.LoadInstructions(cfg.Personas)
	if err != nil {
		return nil, err
	}

	genLogger := logger.WithCommonFields(log, "gemini", cfg.Gemini.Model).With(
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, gemini.Options{
		MaxRetries:   cfg.Gemini.MaxRetries,
		MaxLogLength: cfg.Gemini.MaxLogLength,
		Timeout:      cfg.Gemini.Timeout,
		Personas:     personas,
	}, genLogger)
	if err != nil {
		return nil, err
	}

	log.Debug("ai oracle ready", zap.String(logger.FieldModel, generator.Model()))
	return generator, nil
}

func (s *services) openGapStore(ctx context.Context) error {
	cfg := s.config.Gaps

	switch cfg.Store {
	case "", "memory":
		s.store = gaps.NewMemoryStore()
	case "file":
		store, err := gaps.NewFileStore(cfg.Dir)
		if err != nil {
			return fmt.Errorf("creating gap file store: %w", err)
		}
		s.store = store
	case "redis":
		password, err := secrets.LoadOptional(secrets.Source{
			Name:  "redis password",
			File:  cfg.Redis.PasswordFile,
			Value: cfg.Redis.Password,
		})
		if err != nil {
			return err
		}

		store, err := gaps.NewRedisStore(ctx, gaps.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		s.store = store
		s.closers = append(s.closers, func() {
			if err := store.Close(); err != nil {
				s.logger.Warn("closing redis", zap.Error(err))
			}
		})
	default:
		return fmt.Errorf("unsupported gap store: %s", cfg.Store)
	}

	s.logger.Debug("gap store ready", zap.String("store", cfg.Store))
	return nil
}

func (s *services) openArchive(ctx context.Context) error {
	url, err := secrets.LoadOptional(secrets.Source{
		Name:  "database url",
		File:  s.config.Archive.DatabaseURLFile,
		Value: s.config.Archive.DatabaseURL,
	})
	if err != nil || url == "" {
		return err
	}

	store, err := archive.Connect(ctx, url)
	if err != nil {
		return err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return err
	}

	s.archive = store
	s.closers = append(s.closers, store.Close)
	s.logger.Info("report archive enabled")
	return nil
}

func (s *services) analyzer() *analysis.Stage {
	return analysis.NewStage(s.oracle, analysis.NewGate(s.config.Threshold), s.logger, s.config.AI.Gemini.MaxLogLength)
}

func (s *services) controller(onProgress workflow.ProgressCallback) *workflow.Controller {
	maxLog := s.config.AI.Gemini.MaxLogLength

	loop := interview.New(s.config.Interview, interview.Deps{
		Oracle:    s.oracle,
		Validator: validation.New(s.oracle, s.logger, validation.DefaultWindow, maxLog),
		Store:     s.store,
		Logger:    s.logger,
		OnState: func(state interview.State) {
			s.logger.Debug("interview state", zap.Stringer("state", state))
		},
	})

	deps := workflow.Deps{
		Analyzer:    s.analyzer(),
		Interviewer: loop,
		Recommender: recommendation.NewStage(s.oracle, s.logger, maxLog),
		Logger:      s.logger,
		OnProgress:  onProgress,
	}
	if s.archive != nil {
		deps.Archive = s.archive
	}

	return workflow.New(deps)
}

// loadJobs collects postings from the jobs file and hh.ru, then applies the configured filters.
func loadJobs(ctx context.Context, config *Config, log *zap.Logger) ([]document.Job, error) {
	var jobs []document.Job

	if config.Jobs != "" {
		fromFile, err := document.LoadJobs(config.Jobs)
		if err != nil {
			return nil, fmt.Errorf("loading jobs: %w", err)
		}
		jobs = append(jobs, fromFile...)
	}

	hh := config.HeadHunter
	searching := hh.Search != nil && strings.TrimSpace(hh.Search.Text) != ""
	if len(hh.Vacancies) > 0 || searching {
		token, err := secrets.LoadOptional(secrets.Source{
			Name: "headhunter token",
			File: hh.TokenFile,
		})
		if err != nil {
			return nil, err
		}

		client := headhunter.New(log, token)
		if len(hh.Vacancies) > 0 {
			fetched, err := client.Jobs(ctx, hh.Vacancies)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, fetched...)
		}
		if searching {
			found, err := client.SearchJobs(ctx, hh.Search, hh.Limit)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, found...)
		}
	}

	if len(jobs) == 0 {
		return nil, errors.New("no job descriptions (set --jobs, jobs in the config or headhunter vacancies)")
	}

	for i := range jobs {
		jobs[i].Number = i + 1
	}

	return filtering.Run(ctx, filtering.Deps{Logger: log}, []filtering.Filter{
		filtering.NewExcludedTitles(config.Exclude.Titles),
		filtering.NewExcludeFile(config.ExcludeFile),
	}, jobs)
}

func loadCV(config *Config) (string, error) {
	if strings.TrimSpace(config.CV) == "" {
		return "", errors.New("cv file is required (set --cv or cv in the config)")
	}
	return document.LoadText(config.CV)
}

func newCommandLogger(interactive bool) (*zap.Logger, error) {
	if interactive {
		return logger.New(viper.GetBool("json"), viper.GetBool("debug"), "stderr")
	}
	return logger.New(viper.GetBool("json"), viper.GetBool("debug"))
}
