package dataflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const estatBaseURL = "https://api.e-stat.go.jp/rest/3.0/app/json"

// EStatClient lists statistical table metadata from e-Stat. The listing API
// exposes table names only, so macro payloads never contain citable values.
type EStatClient struct {
	client *resty.Client
	appID  string
}

func NewEStatClient(appID string) *EStatClient {
	return &EStatClient{
		client: resty.New().SetBaseURL(estatBaseURL).SetTimeout(20 * time.Second),
		appID:  appID,
	}
}

type estatListResponse struct {
	GetStatsList struct {
		DatalistInf struct {
			TableInf []struct {
				StatisticsName string `json:"STATISTICS_NAME"`
				Title          any    `json:"TITLE"`
				SurveyDate     any    `json:"SURVEY_DATE"`
			} `json:"TABLE_INF"`
		} `json:"DATALIST_INF"`
	} `json:"GET_STATS_LIST"`
}

func (e *EStatClient) ListTables(ctx context.Context, searchWord string) ([]MacroData, error) {
	if e.appID == "" {
		return nil, errors.New("e-stat app id not configured")
	}

	var out estatListResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"appId":      e.appID,
			"searchWord": searchWord,
			"limit":      "5",
		}).
		SetResult(&out).
		Get("/getStatsList")
	if err != nil {
		return nil, fmt.Errorf("estat list: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("estat list: status %s", resp.Status())
	}

	tables := out.GetStatsList.DatalistInf.TableInf
	macro := make([]MacroData, 0, len(tables))
	for _, t := range tables {
		macro = append(macro, MacroData{
			TableName:  flattenEstatField(t.Title),
			SurveyDate: flattenEstatField(t.SurveyDate),
			StatName:   t.StatisticsName,
		})
	}
	return macro, nil
}

// e-Stat returns either a plain string or {"$": string} depending on the table.
func flattenEstatField(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%.0f", val)
	case map[string]any:
		if s, ok := val["$"].(string); ok {
			return s
		}
	}
	return ""
}
