package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"golang.org/x/sync/errgroup"

	"docindex/internal/contextutil"
)

const (
	upsertBatchSize   = 100
	upsertConcurrency = 2
)

// filterableFields are the payload fields every query and delete filters on.
var filterableFields = []string{"org_id", "user_id", "file_id"}

// QdrantIndex implements VectorIndex using Qdrant. All tenants share one
// collection; isolation is enforced through payload filters on every call.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	vectorSize int
}

// NewQdrantIndex creates a Qdrant-backed vector index client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) is derived from the HTTP port.
func NewQdrantIndex(urlStr, collection string, vectorSize int) (*QdrantIndex, error) {
	if vectorSize <= 0 {
		return nil, fmt.Errorf("vector size must be positive, got %d", vectorSize)
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantIndex{
		client:     client,
		collection: collection,
		vectorSize: vectorSize,
	}, nil
}

// EnsureSchema creates the collection if absent and validates its vector size
// otherwise. Keyword indexes for the tenant filter fields are created
// idempotently in both cases.
func (s *QdrantIndex) EnsureSchema(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", s.vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	} else {
		info, err := s.client.GetCollectionInfo(ctx, s.collection)
		if err != nil {
			return fmt.Errorf("failed to get collection info: %w", err)
		}
		actualSize, err := collectionVectorSize(info)
		if err != nil {
			return err
		}
		if actualSize != s.vectorSize {
			// Recovering from this requires re-embedding everything; refuse
			// to start rather than serve degraded results.
			return fmt.Errorf("collection %s vector size mismatch: expected %d, got %d; re-index required",
				s.collection, s.vectorSize, actualSize)
		}
	}

	fieldType := qdrant.FieldType_FieldTypeKeyword
	for _, field := range filterableFields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      &fieldType,
		})
		if err != nil {
			return fmt.Errorf("failed to create field index for %s: %w", field, err)
		}
	}

	logger.InfoContext(ctx, "collection ready", "collection", s.collection, "vector_size", s.vectorSize)
	return nil
}

// collectionVectorSize extracts the configured vector size from collection info.
func collectionVectorSize(info *qdrant.CollectionInfo) (int, error) {
	config := info.GetConfig()
	if config == nil || config.GetParams() == nil {
		return 0, fmt.Errorf("collection config is invalid")
	}
	vectorsConfig := config.GetParams().GetVectorsConfig()
	if vectorsConfig == nil {
		return 0, fmt.Errorf("collection vectors config is invalid")
	}
	params := vectorsConfig.GetParams()
	if params == nil || params.Size == 0 {
		return 0, fmt.Errorf("could not determine collection vector size")
	}
	return int(params.Size), nil
}

// Upsert writes records in batches of 100, dispatched with a small
// concurrency bound. A failing batch is reported with its chunk range so the
// caller can attribute the failure.
func (s *QdrantIndex) Upsert(ctx context.Context, records []ChunkRecord) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(records) == 0 {
		return nil
	}

	wait := true
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(upsertConcurrency)

	for start := 0; start < len(records); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(records))
		g.Go(func() error {
			batch := records[start:end]
			points := make([]*qdrant.PointStruct, 0, len(batch))
			for _, rec := range batch {
				points = append(points, &qdrant.PointStruct{
					Id:      qdrant.NewID(pointID(rec.ID)),
					Vectors: qdrant.NewVectors(rec.Vector...),
					Payload: qdrant.NewValueMap(recordPayload(rec)),
				})
			}

			_, err := s.client.Upsert(gctx, &qdrant.UpsertPoints{
				CollectionName: s.collection,
				Points:         points,
				Wait:           &wait,
			})
			if err != nil {
				return fmt.Errorf("upsert batch %d (chunks %d-%d): %w", start/upsertBatchSize, start, end-1, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "failed to upsert records", "collection", s.collection, "count", len(records), "error", err)
		return err
	}

	logger.InfoContext(ctx, "upserted records", "collection", s.collection, "count", len(records))
	return nil
}

// pointID derives a deterministic UUID point id from a record id. Qdrant
// point ids must be UUIDs or unsigned integers, so the human-readable
// fileID_chunkIndex id lives in the payload and is hashed for the point id.
// Re-upserting the same record id always targets the same point.
func pointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(recordID)).String()
}

// recordPayload builds the stored payload for a chunk record.
func recordPayload(rec ChunkRecord) map[string]any {
	return map[string]any{
		"id":             rec.ID,
		"file_id":        rec.FileID,
		"org_id":         rec.OrgID,
		"user_id":        rec.UserID,
		"filename":       rec.Filename,
		"content":        rec.Content,
		"chunk_index":    int64(rec.ChunkIndex),
		"token_count":    int64(rec.TokenCount),
		"section_header": rec.SectionHeader,
	}
}

// tenantFilter builds the mandatory tenant filter, optionally narrowed to a
// set of files.
func tenantFilter(orgID, userID string, fileIDs []string) *qdrant.Filter {
	must := []*qdrant.Condition{
		qdrant.NewMatch("org_id", orgID),
		qdrant.NewMatch("user_id", userID),
	}
	if len(fileIDs) > 0 {
		must = append(must, qdrant.NewMatchKeywords("file_id", fileIDs...))
	}
	return &qdrant.Filter{Must: must}
}

// Search performs a tenant-filtered similarity search.
func (s *QdrantIndex) Search(ctx context.Context, queryVector []float32, orgID, userID string, fileIDs []string, topK int) ([]ScoredChunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if topK <= 0 {
		return nil, fmt.Errorf("topK must be greater than 0")
	}

	limit := uint64(topK)
	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(queryVector...),
		Filter:         tenantFilter(orgID, userID, fileIDs),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", s.collection, "top_k", topK, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]ScoredChunk, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		meta := map[string]any{}
		if point.Payload != nil {
			meta = convertPayloadToMap(point.Payload)
		}
		results = append(results, chunkFromPayload(meta, point.Score))
	}
	sortScored(results)

	logger.InfoContext(ctx, "search completed", "collection", s.collection, "top_k", topK, "results", len(results))
	return results, nil
}

// chunkFromPayload maps a stored payload back to a ScoredChunk.
func chunkFromPayload(meta map[string]any, score float32) ScoredChunk {
	return ScoredChunk{
		FileID:        stringValue(meta, "file_id"),
		Filename:      stringValue(meta, "filename"),
		Content:       stringValue(meta, "content"),
		ChunkIndex:    intValue(meta, "chunk_index"),
		SectionHeader: stringValue(meta, "section_header"),
		Score:         score,
	}
}

// sortScored orders results by descending score, ties broken by ascending
// chunk index for determinism.
func sortScored(results []ScoredChunk) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})
}

// Delete removes every record matching the tenant and file filter. Matching
// zero records is success, making delete idempotent.
func (s *QdrantIndex) Delete(ctx context.Context, fileID, orgID, userID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelectorFilter(tenantFilter(orgID, userID, []string{fileID})),
		Wait:           &wait,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete records", "collection", s.collection, "file_id", fileID, "error", err)
		return fmt.Errorf("failed to delete records: %w", err)
	}

	logger.InfoContext(ctx, "deleted records", "collection", s.collection, "file_id", fileID)
	return nil
}

// Count returns how many records the tenant has for a file. Payloads are not
// retrieved.
func (s *QdrantIndex) Count(ctx context.Context, fileID, orgID, userID string) (int, error) {
	exact := true
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         tenantFilter(orgID, userID, []string{fileID}),
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return int(count), nil
}

// Ping reports whether the collection is reachable. Used by health checks.
func (s *QdrantIndex) Ping(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("qdrant unreachable: %w", err)
	}
	if !exists {
		return fmt.Errorf("collection %q does not exist", s.collection)
	}
	return nil
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}

func stringValue(meta map[string]any, key string) string {
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}

func intValue(meta map[string]any, key string) int {
	if n, ok := meta[key].(int64); ok {
		return int(n)
	}
	return 0
}
