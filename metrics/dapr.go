package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	daprc "github.com/dapr/go-sdk/client"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/crosspost-labs/crosspost/common"
	"github.com/crosspost-labs/crosspost/model"
)

const (
	snapshotIndexKey  = "metrics:index"
	snapshotKeyPrefix = "metrics:snap:"
)

// indexEntry is the per-snapshot row kept under the index key so queries
// can filter without fetching every snapshot body.
type indexEntry struct {
	ID        string              `json:"id"`
	AgentName string              `json:"agent_name"`
	Platform  common.PlatformType `json:"platform"`
	Timestamp time.Time           `json:"timestamp"`
}

// DaprStore persists snapshots in a Dapr state store through the sidecar's
// gRPC endpoint. Snapshots live under individual keys; an index key lists
// them for range queries.
type DaprStore struct {
	client    daprc.Client
	storeName string

	// mu serializes index read-modify-write cycles within this process
	mu sync.Mutex
}

// NewDaprStore connects to the local Dapr sidecar.
func NewDaprStore(storeName, grpcPort string) (*DaprStore, error) {
	if storeName == "" {
		return nil, fmt.Errorf("dapr metrics store requires a state store name")
	}
	if grpcPort == "" {
		grpcPort = "50001"
	}

	conn, err := grpc.Dial(
		net.JoinHostPort("127.0.0.1", grpcPort),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to Dapr sidecar: %w", err)
	}

	client := daprc.NewClientWithConnection(conn)

	log.Info().Str("state_store", storeName).Str("grpc_port", grpcPort).Msg("Connected to Dapr metrics store")
	return &DaprStore{client: client, storeName: storeName}, nil
}

// Store implements Store.
func (s *DaprStore) Store(ctx context.Context, snapshot model.MetricSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal metric snapshot: %w", err)
	}
	if err := s.client.SaveState(ctx, s.storeName, snapshotKeyPrefix+snapshot.ID, data, nil); err != nil {
		return fmt.Errorf("failed to save metric snapshot: %w", err)
	}

	index, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}
	index = append(index, indexEntry{
		ID:        snapshot.ID,
		AgentName: snapshot.AgentName,
		Platform:  snapshot.Platform,
		Timestamp: snapshot.Timestamp,
	})

	indexData, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal metric index: %w", err)
	}
	if err := s.client.SaveState(ctx, s.storeName, snapshotIndexKey, indexData, nil); err != nil {
		return fmt.Errorf("failed to save metric index: %w", err)
	}
	return nil
}

// Query implements Store. Matching snapshots are fetched concurrently.
func (s *DaprStore) Query(ctx context.Context, q Query) ([]model.MetricSnapshot, error) {
	index, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}

	var wanted []indexEntry
	for _, entry := range index {
		probe := model.MetricSnapshot{
			AgentName: entry.AgentName,
			Platform:  entry.Platform,
			Timestamp: entry.Timestamp,
		}
		if q.matches(probe) {
			wanted = append(wanted, entry)
		}
	}
	if len(wanted) == 0 {
		return nil, nil
	}

	snapshots := make([]model.MetricSnapshot, len(wanted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, entry := range wanted {
		g.Go(func() error {
			item, err := s.client.GetState(gctx, s.storeName, snapshotKeyPrefix+entry.ID, nil)
			if err != nil {
				return fmt.Errorf("failed to fetch snapshot %s: %w", entry.ID, err)
			}
			if err := json.Unmarshal(item.Value, &snapshots[i]); err != nil {
				return fmt.Errorf("failed to decode snapshot %s: %w", entry.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.Before(snapshots[j].Timestamp)
	})
	return snapshots, nil
}

// PlatformSummary implements Store.
func (s *DaprStore) PlatformSummary(ctx context.Context, platform common.PlatformType, start, end time.Time) (model.PlatformReport, error) {
	snapshots, err := s.Query(ctx, Query{Platform: platform, Start: start, End: end})
	if err != nil {
		return model.PlatformReport{}, err
	}
	return Summarize(platform, snapshots), nil
}

// Close implements Store.
func (s *DaprStore) Close(ctx context.Context) error {
	s.client.Close()
	return nil
}

func (s *DaprStore) loadIndex(ctx context.Context) ([]indexEntry, error) {
	item, err := s.client.GetState(ctx, s.storeName, snapshotIndexKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load metric index: %w", err)
	}
	if len(item.Value) == 0 {
		return nil, nil
	}

	var index []indexEntry
	if err := json.Unmarshal(item.Value, &index); err != nil {
		return nil, fmt.Errorf("failed to decode metric index: %w", err)
	}
	return index, nil
}
