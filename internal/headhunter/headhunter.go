// Package headhunter reads public vacancies from the hh.ru API as job postings.
package headhunter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spigell/cv-advisor/internal/document"
	"go.uber.org/zap"
)

const (
	apiURL    = "https://api.hh.ru"
	userAgent = "spigell/cv-advisor (spigelly@gmail.com)"
	// Max value for search per page.
	perPage = "100"
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New creates a client. The token is optional for public vacancy data.
func New(logger *zap.Logger, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

func (c *Client) GetVacancy(ctx context.Context, id string) (*Vacancy, error) {
	var vacancy Vacancy
	if err := c.getJSON(ctx, fmt.Sprintf("%s%s/%s", c.APIURL, SearchPath, id), nil, &vacancy); err != nil {
		return nil, fmt.Errorf("get vacancy %s: %w", id, err)
	}
	return &vacancy, nil
}

// Jobs fetches full vacancies by id and converts them to postings.
func (c *Client) Jobs(ctx context.Context, ids []string) ([]document.Job, error) {
	jobs := make([]document.Job, 0, len(ids))
	for i, id := range ids {
		vacancy, err := c.GetVacancy(ctx, id)
		if err != nil {
			return nil, err
		}
		job, err := vacancy.Job(i + 1)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// SearchJobs searches vacancies and fetches at most limit of them in full.
func (c *Client) SearchJobs(ctx context.Context, params *SearchParams, limit int) ([]document.Job, error) {
	found, err := c.Search(ctx, params, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(found))
	for _, vacancy := range found {
		ids = append(ids, vacancy.ID)
	}

	c.logger.Info("fetching found vacancies", zap.Int("count", len(ids)))
	return c.Jobs(ctx, ids)
}
