package monitoring

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"github.com/phuslu/log"
)

// MonitoringServer reports runtime counters of the running components as
// JSON. Probes must not return coordinates.
type MonitoringServer struct {
	mu     sync.Mutex
	log    log.Logger
	probes map[string]func() interface{}
}

func NewMonApi() *MonitoringServer {
	m := &MonitoringServer{probes: make(map[string]func() interface{})}
	m.log = log.DefaultLogger
	m.log.Context = log.NewContext(nil).Str("module", "monitoring").Value()
	return m
}

func (m *MonitoringServer) Register(name string, probe func() interface{}) {
	m.mu.Lock()
	m.probes[name] = probe
	m.mu.Unlock()
}

func (m *MonitoringServer) Collect() map[string]interface{} {
	m.mu.Lock()
	names := make([]string, 0, len(m.probes))
	for k := range m.probes {
		names = append(names, k)
	}
	probes := make([]func() interface{}, len(names))
	sort.Strings(names)
	for i, k := range names {
		probes[i] = m.probes[k]
	}
	m.mu.Unlock()

	res := make(map[string]interface{}, len(names))
	for i, k := range names {
		res[k] = probes[i]()
	}
	return res
}

func (m *MonitoringServer) serve_http(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(m.Collect())
	if err != nil {
		m.log.Error().Err(err).Msg("")
	}
}

func (m *MonitoringServer) GetHandler() http.Handler {
	return http.HandlerFunc(m.serve_http)
}
