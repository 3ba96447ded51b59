package index

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/kscan/internal/api"
)

// defaultTopK is used when a request names neither k nor top.
const defaultTopK = 5

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the collection holding the document chunks.
	Collection string

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// pointsClient is the subset of *qdrant.Client used here.
type pointsClient interface {
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Get(ctx context.Context, request *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error)
	Scroll(ctx context.Context, request *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error)
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	Close() error
}

// Qdrant implements Index on a Qdrant collection. Chunk fields live in the
// point payload under the same names the Azure index uses (id, file_name,
// summary, content_text, keywords, resource, published_date).
type Qdrant struct {
	client     pointsClient
	collection string
}

// NewQdrant connects to Qdrant and verifies the collection exists. It never
// creates the collection.
func NewQdrant(ctx context.Context, cfg *QdrantConfig) (*Qdrant, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection name is required")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	q := newQdrant(client, cfg.Collection)
	exists, err := client.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant: collection %q does not exist", cfg.Collection)
	}
	return q, nil
}

func newQdrant(client pointsClient, collection string) *Qdrant {
	return &Qdrant{client: client, collection: collection}
}

// eqFilter matches the single-clause OData filters kscan itself produces.
var eqFilter = regexp.MustCompile(`^\s*(\w+)\s+eq\s+'((?:[^']|'')*)'\s*$`)

// Search translates the Azure-shaped request into a Qdrant query. Only the
// first vector query is used; `select` becomes the payload include list and
// a `field eq 'value'` filter becomes a keyword match.
func (q *Qdrant) Search(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
	if err := api.Validate(req); err != nil {
		return nil, err
	}
	if len(req.VectorQueries) == 0 {
		return nil, fmt.Errorf("qdrant: text-only search: %w", api.ErrUnsupported)
	}
	vq := req.VectorQueries[0]

	limit := uint64(defaultTopK)
	switch {
	case vq.K > 0:
		limit = uint64(vq.K)
	case req.Top > 0:
		limit = uint64(req.Top)
	}

	query := &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vq.Vector...),
		Limit:          &limit,
		WithPayload:    payloadSelector(req.Select),
	}
	if req.Filter != "" {
		f, err := parseFilter(req.Filter)
		if err != nil {
			return nil, err
		}
		query.Filter = f
	}

	points, err := q.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	out := &api.SearchResponse{Value: make([]api.SearchHit, 0, len(points))}
	for _, p := range points {
		rec := recordFromPayload(p.GetId(), p.GetPayload())
		out.Value = append(out.Value, api.SearchHit{
			ID:            rec.ID,
			FileName:      rec.FileName,
			Summary:       rec.Summary,
			PublishedDate: stringField(p.GetPayload(), "published_date"),
			Score:         float64(p.GetScore()),
		})
	}
	return out, nil
}

// Lookup resolves ids that are valid point IDs with Get, and the rest with a
// payload match on "id". Results follow the order of ids.
func (q *Qdrant) Lookup(ctx context.Context, ids []string) ([]api.Record, error) {
	var pointIDs []*qdrant.PointId
	var keys []*qdrant.Condition
	for _, id := range ids {
		if pid, ok := toPointID(id); ok {
			pointIDs = append(pointIDs, pid)
			continue
		}
		keys = append(keys, qdrant.NewMatch("id", id))
	}

	found := make(map[string]api.Record, len(ids))
	if len(pointIDs) > 0 {
		points, err := q.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: q.collection,
			Ids:            pointIDs,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant: lookup failed: %w", err)
		}
		for _, p := range points {
			rec := recordFromPayload(p.GetId(), p.GetPayload())
			found[pointIDString(p.GetId())] = rec
			found[rec.ID] = rec
		}
	}
	if len(keys) > 0 {
		limit := uint32(len(keys))
		points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: q.collection,
			Filter:         &qdrant.Filter{Should: keys},
			Limit:          &limit,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant: lookup failed: %w", err)
		}
		for _, p := range points {
			rec := recordFromPayload(p.GetId(), p.GetPayload())
			found[rec.ID] = rec
		}
	}

	out := make([]api.Record, 0, len(ids))
	for _, id := range ids {
		rec, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("qdrant: lookup %q: %w", id, ErrNotFound)
		}
		out = append(out, rec)
	}
	return out, nil
}

// FirstChunk scrolls for the point whose file_name is the first chunk name.
func (q *Qdrant) FirstChunk(ctx context.Context, baseName string) (*api.Record, error) {
	limit := uint32(1)
	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: q.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("file_name", baseName+FirstChunkSuffix)},
		},
		Limit:       &limit,
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: first chunk %q: %w", baseName, err)
	}
	if len(points) == 0 {
		return nil, nil
	}
	rec := recordFromPayload(points[0].GetId(), points[0].GetPayload())
	return &rec, nil
}

// Ping checks server health and that the collection is still present.
func (q *Qdrant) Ping(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check: %w", err)
	}
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("qdrant: collection check: %w", err)
	}
	if !exists {
		return fmt.Errorf("qdrant: collection %q does not exist", q.collection)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (q *Qdrant) Close() error {
	return q.client.Close()
}

// payloadSelector turns an Azure select list into a payload include list.
func payloadSelector(sel string) *qdrant.WithPayloadSelector {
	if strings.TrimSpace(sel) == "" || strings.TrimSpace(sel) == "*" {
		return qdrant.NewWithPayload(true)
	}
	fields := strings.Split(sel, ",")
	keys := make([]string, 0, len(fields)+1)
	hasID := false
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if f == "id" {
			hasID = true
		}
		keys = append(keys, f)
	}
	if !hasID {
		keys = append(keys, "id")
	}
	return qdrant.NewWithPayloadInclude(keys...)
}

func parseFilter(filter string) (*qdrant.Filter, error) {
	m := eqFilter.FindStringSubmatch(filter)
	if m == nil {
		return nil, fmt.Errorf("qdrant: filter %q: %w", filter, api.ErrUnsupported)
	}
	value := strings.ReplaceAll(m[2], "''", "'")
	return &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch(m[1], value)}}, nil
}

// toPointID parses a UUID or unsigned integer point ID.
func toPointID(id string) (*qdrant.PointId, bool) {
	if _, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(id), true
	}
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		return qdrant.NewIDNum(n), true
	}
	return nil, false
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// recordFromPayload maps a point payload to a Record. The payload "id" wins
// over the point ID so keys stay stable across backends.
func recordFromPayload(id *qdrant.PointId, p map[string]*qdrant.Value) api.Record {
	rec := api.Record{
		ID:          stringField(p, "id"),
		FileName:    stringField(p, "file_name"),
		Summary:     stringField(p, "summary"),
		ContentText: stringField(p, "content_text"),
		Resource:    stringField(p, "resource"),
	}
	if rec.ID == "" {
		rec.ID = pointIDString(id)
	}
	if v, ok := p["keywords"]; ok {
		for _, kw := range v.GetListValue().GetValues() {
			if s := kw.GetStringValue(); s != "" {
				rec.Keywords = append(rec.Keywords, s)
			}
		}
	}
	return rec
}

func stringField(p map[string]*qdrant.Value, key string) string {
	if v, ok := p[key]; ok {
		return v.GetStringValue()
	}
	return ""
}
