package headhunter

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

const (
	SearchPath = "/vacancies"
)

type SearchParams struct {
	Text string `mapstructure:"text" hhparam:"text"`
	// hhparam is custom tag for reflect. Please see below.
	Areas       []int    `mapstructure:"areas" hhparam:"area"`
	SearchField string   `mapstructure:"search-field" hhparam:"search_field"`
	Schedules   []string `mapstructure:"schedules" hhparam:"schedule"`
	Experience  string   `mapstructure:"experience" hhparam:"experience"`
	Period      uint     `mapstructure:"period" hhparam:"period"`
	PerPage     string   `mapstructure:"per-page" hhparam:"per_page"`
}

// Search returns short vacancy cards. Descriptions are only present in GetVacancy results.
func (c *Client) Search(ctx context.Context, params *SearchParams, limit int) ([]*Vacancy, error) {
	var vacancies []*Vacancy

	p := *params
	// Set per_page max as possible. It should be faster.
	if p.PerPage == "" {
		p.PerPage = perPage
	}

	items, err := c.GetItems(ctx, fmt.Sprintf("%s%s", c.APIURL, SearchPath), buildParams(&p), limit)
	if err != nil {
		return nil, fmt.Errorf("search vacancies: %w", err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &vacancies,
		TagName: "json",
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decode vacancies: %w", err)
	}

	return vacancies, nil
}

func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	value := reflect.ValueOf(params).Elem()

	for _, field := range reflect.VisibleFields(value.Type()) {
		key := field.Tag.Get("hhparam")
		if key == "" {
			continue
		}

		switch v := value.FieldByIndex(field.Index).Interface().(type) {
		case []int:
			for _, item := range v {
				q.Add(key, strconv.Itoa(item))
			}
		case []string:
			for _, item := range v {
				q.Add(key, item)
			}
		default:
			s := fmt.Sprintf("%v", v)
			if s != "" && s != "0" {
				q.Set(key, s)
			}
		}
	}

	return q
}
