package activity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	schemaVersion = "1"
	searchWindow  = 30 * 24 * time.Hour
	searchLimit   = 100
)

var schemaVersionKey = []byte("schema_version")

// keywordFields are the filter fields copied from models.LogFilter and matched exactly.
var keywordFields = []string{
	"action",
	"object_type",
	"user_id",
	"target_user_id",
	"vehicle_id",
	"request_id",
}

// FilesystemActivityEntry is the document shape indexed in bleve.
type FilesystemActivityEntry struct {
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	ObjectType   string    `json:"object_type"`
	UserID       string    `json:"user_id"`
	TargetUserID string    `json:"target_user_id"`
	VehicleID    string    `json:"vehicle_id"`
	RequestID    string    `json:"request_id"`
	Object       string    `json:"object"`
}

// FilesystemClient implements IActivityLogger on a local bleve index.
type FilesystemClient struct {
	index bleve.Index
}

// NewFilesystemClient opens the index in the configured directory, creating it on first
// use and rebuilding it when its schema version is outdated.
func NewFilesystemClient(config models.FilesystemActivityConfiguration) (*FilesystemClient, error) {
	dir := config.Directory

	index, err := bleve.Open(dir)
	if err != nil {
		index, err = bleve.New(dir, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create activity index: %w", err)
		}
		if err = index.SetInternal(schemaVersionKey, []byte(schemaVersion)); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to set schema version: %w", err)
		}
		return &FilesystemClient{index: index}, nil
	}

	storedVersion, err := index.GetInternal(schemaVersionKey)
	if err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	if string(storedVersion) == schemaVersion {
		return &FilesystemClient{index: index}, nil
	}

	zap.L().Info("Activity index schema changed, rebuilding",
		zap.String("old_version", string(storedVersion)),
		zap.String("new_version", schemaVersion))

	if err = index.Close(); err != nil {
		return nil, fmt.Errorf("failed to close outdated index: %w", err)
	}
	if err = rebuildIndex(dir); err != nil {
		return nil, err
	}

	index, err = bleve.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open rebuilt index: %w", err)
	}
	if err = index.SetInternal(schemaVersionKey, []byte(schemaVersion)); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to set schema version: %w", err)
	}
	return &FilesystemClient{index: index}, nil
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	keywordMapping := bleve.NewKeywordFieldMapping()

	storedOnly := bleve.NewTextFieldMapping()
	storedOnly.Index = false
	storedOnly.Store = true

	docMapping := bleve.NewDocumentMapping()
	for _, field := range keywordFields {
		docMapping.AddFieldMappingsAt(field, keywordMapping)
	}
	docMapping.AddFieldMappingsAt("timestamp", bleve.NewDateTimeFieldMapping())
	docMapping.AddFieldMappingsAt("message", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("object", storedOnly)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func (c *FilesystemClient) Close() error {
	return c.index.Close()
}

func (c *FilesystemClient) Send(activity models.Activity) error {
	ts, err := strconv.ParseInt(activity.Filter.Timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse timestamp: %w", err)
	}

	fields := activity.Filter.Fields
	entry := FilesystemActivityEntry{
		Message:      activity.Message,
		Timestamp:    time.Unix(0, ts),
		Action:       fields["action"],
		ObjectType:   fields["object_type"],
		UserID:       fields["user_id"],
		TargetUserID: fields["target_user_id"],
		VehicleID:    fields["vehicle_id"],
		RequestID:    fields["request_id"],
	}

	if activity.Object != nil && isAuthorizedObject(entry.ObjectType) {
		object, marshalErr := json.Marshal(activity.Object)
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal object: %w", marshalErr)
		}
		entry.Object = string(object)
	}

	if err = c.index.Index(uuid.NewString(), entry); err != nil {
		return fmt.Errorf("failed to index activity: %w", err)
	}
	return nil
}

// Search returns the latest entries of the last 30 days matching every criterion.
// Several values for one field match any of them.
func (c *FilesystemClient) Search(searchCriteria map[string][]string) ([]map[string]any, error) {
	now := time.Now()
	searchRequest := bleve.NewSearchRequest(withinRange(buildBleveQuery(searchCriteria), now.Add(-searchWindow), now))
	searchRequest.Size = searchLimit
	searchRequest.SortBy([]string{"-timestamp"})
	searchRequest.Fields = []string{"*"}

	result, err := c.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search activity: %w", err)
	}

	activities := make([]map[string]any, 0, len(result.Hits))
	for _, hit := range result.Hits {
		entry := map[string]any{}
		for _, field := range keywordFields {
			value, _ := hit.Fields[field].(string)
			entry[field] = value
		}
		entry["message"], _ = hit.Fields["message"].(string)

		if raw, ok := hit.Fields["timestamp"].(string); ok {
			if t, parseErr := time.Parse(time.RFC3339, raw); parseErr == nil {
				entry["timestamp"] = strconv.FormatInt(t.UnixNano(), 10)
			}
		}

		if raw, _ := hit.Fields["object"].(string); raw != "" {
			var object map[string]any
			if json.Unmarshal([]byte(raw), &object) == nil {
				entry["object"] = object
			}
		}

		activities = append(activities, entry)
	}

	return activities, nil
}

// CountByDay buckets matching entries of the last days per calendar day (UTC). Days
// without entries are omitted.
func (c *FilesystemClient) CountByDay(searchCriteria map[string][]string, days int) ([]models.TimeSeriesPoint, error) {
	now := time.Now()
	searchRequest := bleve.NewSearchRequest(withinRange(buildBleveQuery(searchCriteria), now.AddDate(0, 0, -days), now))
	searchRequest.Size = 0

	facet := bleve.NewFacetRequest("timestamp", days+1)
	for i := days; i >= 0; i-- {
		dayStart := now.AddDate(0, 0, -i).Truncate(24 * time.Hour)
		facet.AddDateTimeRange(dayStart.Format(time.DateOnly), dayStart, dayStart.Add(24*time.Hour))
	}
	searchRequest.AddFacet("daily_counts", facet)

	result, err := c.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to count activity by day: %w", err)
	}

	points := []models.TimeSeriesPoint{}
	dailyFacet, ok := result.Facets["daily_counts"]
	if !ok {
		return points, nil
	}

	for _, dateRange := range dailyFacet.DateRanges {
		if dateRange.Count > 0 {
			points = append(points, models.TimeSeriesPoint{Date: dateRange.Name, Count: int64(dateRange.Count)})
		}
	}
	return points, nil
}

func withinRange(criteria query.Query, from time.Time, to time.Time) query.Query {
	dateQuery := bleve.NewDateRangeQuery(from, to)
	dateQuery.SetField("timestamp")
	return bleve.NewConjunctionQuery(criteria, dateQuery)
}

func buildBleveQuery(searchCriteria map[string][]string) query.Query {
	var queries []query.Query

	for field, values := range searchCriteria {
		terms := make([]query.Query, 0, len(values))
		for _, value := range values {
			term := bleve.NewTermQuery(value)
			term.SetField(field)
			terms = append(terms, term)
		}

		switch len(terms) {
		case 0:
		case 1:
			queries = append(queries, terms[0])
		default:
			disjunction := bleve.NewDisjunctionQuery(terms...)
			disjunction.SetMin(1)
			queries = append(queries, disjunction)
		}
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}
