package vectorstore

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestNewQdrantIndex(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		vectorSize int
		wantErr    bool
	}{
		{name: "valid URL", url: "http://localhost:6333", vectorSize: 1536, wantErr: false},
		{name: "no port", url: "http://qdrant.internal", vectorSize: 1536, wantErr: false},
		{name: "zero vector size", url: "http://localhost:6333", vectorSize: 0, wantErr: true},
		{name: "negative vector size", url: "http://localhost:6333", vectorSize: -5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := NewQdrantIndex(tt.url, "documents", tt.vectorSize)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewQdrantIndex() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && idx == nil {
				t.Fatal("NewQdrantIndex() returned nil index")
			}
		})
	}
}

func TestPointID_Deterministic(t *testing.T) {
	a := pointID("file-1_0")
	b := pointID("file-1_0")
	c := pointID("file-1_1")

	if a != b {
		t.Errorf("pointID not deterministic: %q != %q", a, b)
	}
	if a == c {
		t.Errorf("pointID collision for distinct record ids: %q", a)
	}
	if len(a) != 36 {
		t.Errorf("pointID %q is not a UUID string", a)
	}
}

func TestRecordPayload_RoundTrip(t *testing.T) {
	rec := ChunkRecord{
		ID:            "file-1_3",
		FileID:        "file-1",
		OrgID:         "org-a",
		UserID:        "user-a",
		Filename:      "report.md",
		Content:       "chunk body",
		ChunkIndex:    3,
		TokenCount:    42,
		SectionHeader: "Results",
		Vector:        []float32{0.1, 0.2},
	}

	// Through the same conversion the live path uses: payload map -> Qdrant
	// values -> payload map -> ScoredChunk.
	values := qdrant.NewValueMap(recordPayload(rec))
	meta := convertPayloadToMap(values)
	got := chunkFromPayload(meta, 0.87)

	if got.FileID != rec.FileID {
		t.Errorf("FileID = %q, want %q", got.FileID, rec.FileID)
	}
	if got.Filename != rec.Filename {
		t.Errorf("Filename = %q, want %q", got.Filename, rec.Filename)
	}
	if got.Content != rec.Content {
		t.Errorf("Content = %q, want %q", got.Content, rec.Content)
	}
	if got.ChunkIndex != rec.ChunkIndex {
		t.Errorf("ChunkIndex = %d, want %d", got.ChunkIndex, rec.ChunkIndex)
	}
	if got.SectionHeader != rec.SectionHeader {
		t.Errorf("SectionHeader = %q, want %q", got.SectionHeader, rec.SectionHeader)
	}
	if got.Score != 0.87 {
		t.Errorf("Score = %v, want 0.87", got.Score)
	}
}

func TestTenantFilter(t *testing.T) {
	tests := []struct {
		name           string
		fileIDs        []string
		wantConditions int
	}{
		{name: "tenant only", fileIDs: nil, wantConditions: 2},
		{name: "tenant and files", fileIDs: []string{"f1", "f2"}, wantConditions: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := tenantFilter("org-a", "user-a", tt.fileIDs)
			if len(filter.Must) != tt.wantConditions {
				t.Errorf("tenantFilter() has %d conditions, want %d", len(filter.Must), tt.wantConditions)
			}
		})
	}
}

func TestSortScored_TieBreak(t *testing.T) {
	results := []ScoredChunk{
		{ChunkIndex: 5, Score: 0.5},
		{ChunkIndex: 2, Score: 0.9},
		{ChunkIndex: 9, Score: 0.5},
		{ChunkIndex: 1, Score: 0.5},
	}

	sortScored(results)

	wantOrder := []int{2, 1, 5, 9}
	for i, want := range wantOrder {
		if results[i].ChunkIndex != want {
			t.Errorf("result %d ChunkIndex = %d, want %d", i, results[i].ChunkIndex, want)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted by descending score at %d", i)
		}
	}
}
