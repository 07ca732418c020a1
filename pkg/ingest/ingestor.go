package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crzmap/crzmap/pkg/stations"
)

// ErrSchema is returned when the upstream response is missing one of the
// required columns
var ErrSchema = errors.New("upstream response schema error")

var requiredColumns = []string{"transit_timestamp", "station_complex", "ridership", "transfers"}

const queryTimestampFormat = "2006-01-02T15:04:05"

// Window is a fetch window that was skipped after retries were exhausted
type Window struct {
	Start time.Time
	End   time.Time
}

type FetchResult struct {
	Raw          []RawRow
	Observations []Observation
	Gaps         []Window
}

type Ingestor struct {
	Endpoint string
	Registry *stations.Registry

	Limit          int
	WindowSize     time.Duration
	RequestDelay   time.Duration
	RetryDelay     time.Duration
	RequestTimeout time.Duration
	Attempts       int

	client *http.Client

	// sleep is swapped out in tests so they dont wait for real delays
	sleep func(time.Duration)
}

func NewIngestor(endpoint string, registry *stations.Registry) *Ingestor {
	return &Ingestor{
		Endpoint: endpoint,
		Registry: registry,

		Limit:          1000,
		WindowSize:     7 * 24 * time.Hour,
		RequestDelay:   500 * time.Millisecond,
		RetryDelay:     2 * time.Second,
		RequestTimeout: 30 * time.Second,
		Attempts:       3,

		sleep: time.Sleep,
	}
}

func (i *Ingestor) httpClient() *http.Client {
	if i.client == nil {
		i.client = &http.Client{
			Timeout: i.RequestTimeout,
		}
	}

	return i.client
}

// Fetch pulls every ridership record between start and end, walking windows
// of at most WindowSize and paginating within a window by advancing the
// timestamp filter past the last row seen. Windows that still fail after
// retries are skipped and recorded as gaps rather than failing the fetch.
func (i *Ingestor) Fetch(ctx context.Context, start time.Time, end time.Time) (*FetchResult, error) {
	result := &FetchResult{}

	for windowStart := start; windowStart.Before(end); {
		windowEnd := windowStart.Add(i.WindowSize)
		if windowEnd.After(end) {
			windowEnd = end
		}

		err := i.fetchWindow(ctx, windowStart, windowEnd, result)
		if errors.Is(err, ErrSchema) {
			return nil, err
		} else if err != nil {
			log.Error().
				Err(err).
				Time("start", windowStart).
				Time("end", windowEnd).
				Msg("Skipping fetch window")

			result.Gaps = append(result.Gaps, Window{Start: windowStart, End: windowEnd})
		}

		windowStart = windowEnd
	}

	result.Raw = dedupeRows(result.Raw)
	result.Observations = Consolidate(result.Raw, i.Registry)

	log.Info().
		Int("raw", len(result.Raw)).
		Int("observations", len(result.Observations)).
		Int("gaps", len(result.Gaps)).
		Msg("Completed ridership fetch")

	return result, nil
}

// dedupeRows drops repeated raw rows while preserving order. Consecutive
// windows share their boundary instant, so a row stamped exactly on the
// boundary comes back from both fetches and would otherwise be summed twice
// during consolidation.
func dedupeRows(rows []RawRow) []RawRow {
	seen := map[RawRow]bool{}
	deduped := make([]RawRow, 0, len(rows))

	for _, row := range rows {
		if seen[row] {
			continue
		}

		seen[row] = true
		deduped = append(deduped, row)
	}

	return deduped
}

func (i *Ingestor) fetchWindow(ctx context.Context, start time.Time, end time.Time, result *FetchResult) error {
	cursor := start

	for {
		rows, err := i.fetchPage(ctx, cursor, end)
		if err != nil {
			return err
		}

		result.Raw = append(result.Raw, rows...)

		// A short page means the window is exhausted
		if len(rows) < i.Limit {
			return nil
		}

		lastTimestamp, err := parseTimestamp(rows[len(rows)-1].TransitTimestamp)
		if err != nil {
			return fmt.Errorf("invalid cursor timestamp %s", rows[len(rows)-1].TransitTimestamp)
		}

		cursor = lastTimestamp.Add(1 * time.Second)
	}
}

func (i *Ingestor) fetchPage(ctx context.Context, start time.Time, end time.Time) ([]RawRow, error) {
	requestURL := fmt.Sprintf(
		"%s?$where=%s&$limit=%d",
		i.Endpoint,
		url.QueryEscape(fmt.Sprintf(
			"transit_timestamp >= '%s' AND transit_timestamp <= '%s'",
			start.Format(queryTimestampFormat),
			end.Format(queryTimestampFormat),
		)),
		i.Limit,
	)

	var lastErr error

	for attempt := 0; attempt < i.Attempts; attempt++ {
		if attempt > 0 {
			i.sleep(i.RetryDelay)
		}

		rows, err := i.doRequest(ctx, requestURL)
		if err == nil || errors.Is(err, ErrSchema) {
			i.sleep(i.RequestDelay)
			return rows, err
		}

		lastErr = err

		log.Warn().
			Err(err).
			Str("url", requestURL).
			Int("attempt", attempt+1).
			Msg("Ridership request failed")
	}

	return nil, lastErr
}

func (i *Ingestor) doRequest(ctx context.Context, requestURL string) ([]RawRow, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := i.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("request returned status %d", resp.StatusCode)
	}

	jsonBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var records []map[string]json.RawMessage
	if err := json.Unmarshal(jsonBytes, &records); err != nil {
		return nil, err
	}

	if len(records) > 0 {
		for _, column := range requiredColumns {
			if _, exists := records[0][column]; !exists {
				return nil, fmt.Errorf("%w: missing column %s", ErrSchema, column)
			}
		}
	}

	var rows []RawRow
	if err := json.Unmarshal(jsonBytes, &rows); err != nil {
		return nil, err
	}

	return rows, nil
}
