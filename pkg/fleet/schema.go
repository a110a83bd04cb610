package fleet

import (
	"context"
	"sync"

	"github.com/txn2/mcp-fleet/pkg/metrics"
	"github.com/txn2/mcp-fleet/pkg/worker"
)

// SchemaCache sits in front of tool discovery. Entries exist only while the
// server has been connected at least once since the last invalidation; the
// facade wires an event subscription that invalidates a server's entry on
// every transition into disconnected or error.
type SchemaCache struct {
	mu       sync.Mutex
	byServer map[string][]worker.ToolDefinition

	manager *Manager
}

// NewSchemaCache creates a cache resolving connections through manager.
func NewSchemaCache(manager *Manager) *SchemaCache {
	return &SchemaCache{
		byServer: make(map[string][]worker.ToolDefinition),
		manager:  manager,
	}
}

// ListTools returns the server's tool definitions in remote order. A cache
// hit performs no remote call and returns a copy; a miss fetches from the
// server and populates the cache. A discovery failure leaves no partial
// entry behind.
func (s *SchemaCache) ListTools(ctx context.Context, server string) ([]worker.ToolDefinition, error) {
	s.mu.Lock()
	if defs, ok := s.byServer[server]; ok {
		out := copyDefs(defs)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	link, err := s.manager.resolve(server)
	if err != nil {
		return nil, err
	}

	metrics.SchemaFetchesTotal.WithLabelValues(server).Inc()
	fetched, err := link.ListTools(ctx)
	if err != nil {
		s.Invalidate(server)
		return nil, &DiscoveryError{Server: server, Err: err}
	}

	defs := dedupe(fetched)
	s.mu.Lock()
	s.byServer[server] = defs
	s.mu.Unlock()
	return copyDefs(defs), nil
}

// ToolSchema returns the definition of a single tool, reporting whether the
// server exposes it. The cache is populated on demand.
func (s *SchemaCache) ToolSchema(ctx context.Context, server, tool string) (worker.ToolDefinition, bool, error) {
	defs, err := s.ListTools(ctx, server)
	if err != nil {
		return worker.ToolDefinition{}, false, err
	}
	for _, def := range defs {
		if def.Name == tool {
			return def, true, nil
		}
	}
	return worker.ToolDefinition{}, false, nil
}

// Invalidate removes the cached entry for server without touching
// connection state.
func (s *SchemaCache) Invalidate(server string) {
	s.mu.Lock()
	delete(s.byServer, server)
	s.mu.Unlock()
}

// dedupe collapses duplicate tool names, keeping remote order by first
// occurrence while later duplicates overwrite earlier definitions.
func dedupe(defs []worker.ToolDefinition) []worker.ToolDefinition {
	index := make(map[string]int, len(defs))
	out := make([]worker.ToolDefinition, 0, len(defs))
	for _, def := range defs {
		if i, ok := index[def.Name]; ok {
			out[i] = def
			continue
		}
		index[def.Name] = len(out)
		out = append(out, def)
	}
	return out
}

func copyDefs(defs []worker.ToolDefinition) []worker.ToolDefinition {
	out := make([]worker.ToolDefinition, len(defs))
	copy(out, defs)
	return out
}
