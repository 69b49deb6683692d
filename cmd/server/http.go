package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"sort"
	"strings"
	"time"

	"colonysim.ai/internal/sim/world"
	"colonysim.ai/internal/transport/observer"
)

type serverRuntime struct {
	world  *world.World
	hub    *observer.Hub
	idx    runtimeIndex
	logger *log.Logger

	adminHTTP  bool
	pprofHTTP  bool
	observerWS bool
}

func (rt *serverRuntime) mux() *http.ServeMux {
	logger := rt.logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		rt.writeMetrics(rw)
	})

	if rt.adminHTTP {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			st, err := rt.world.RequestState(ctx)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusServiceUnavailable)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				WorldID string             `json:"world_id"`
				Step    uint64             `json:"step"`
				Metrics world.WorldMetrics `json:"metrics"`
				State   any                `json:"state"`
			}{
				WorldID: rt.world.ID(),
				Step:    st.Header.Step,
				Metrics: rt.world.Metrics(),
				State:   st,
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			step, err := rt.world.RequestSnapshot(ctx)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "step": step, "error": err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "step": step})
		})
	} else {
		logger.Printf("admin endpoints disabled (COLONY_ENABLE_ADMIN_HTTP=false)")
	}

	if rt.observerWS {
		obsSrv := observer.NewServer(rt.world, rt.hub, logger)
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/v1/observer", obsSrv.WSHandler())
	}

	if rt.pprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// writeMetrics emits the Prometheus text exposition format.
func (rt *serverRuntime) writeMetrics(rw io.Writer) {
	id := rt.world.ID()
	m := rt.world.Metrics()
	step := rt.world.CurrentStep()
	if m.Step != 0 {
		step = m.Step
	}

	fmt.Fprintf(rw, "# HELP colony_world_step Last completed step.\n")
	fmt.Fprintf(rw, "# TYPE colony_world_step gauge\n")
	fmt.Fprintf(rw, "colony_world_step{world=%q} %d\n", id, step)

	fmt.Fprintf(rw, "# HELP colony_world_objects Structures and haulers in the colony.\n")
	fmt.Fprintf(rw, "# TYPE colony_world_objects gauge\n")
	fmt.Fprintf(rw, "colony_world_objects{world=%q,kind=%q} %d\n", id, "room", m.Rooms)
	fmt.Fprintf(rw, "colony_world_objects{world=%q,kind=%q} %d\n", id, "structure", m.Structures)
	fmt.Fprintf(rw, "colony_world_objects{world=%q,kind=%q} %d\n", id, "hauler", m.Haulers)

	fmt.Fprintf(rw, "# HELP colony_world_step_ms Last step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE colony_world_step_ms gauge\n")
	fmt.Fprintf(rw, "colony_world_step_ms{world=%q} %.3f\n", id, m.StepMS)

	fmt.Fprintf(rw, "# HELP colony_step_moves Moves applied in the last step.\n")
	fmt.Fprintf(rw, "# TYPE colony_step_moves gauge\n")
	fmt.Fprintf(rw, "colony_step_moves{world=%q} %d\n", id, m.Moves)

	fmt.Fprintf(rw, "# HELP colony_moved_total Resource units moved since the colony started.\n")
	fmt.Fprintf(rw, "# TYPE colony_moved_total counter\n")
	fmt.Fprintf(rw, "colony_moved_total{world=%q} %d\n", id, m.MovedTotal)

	fmt.Fprintf(rw, "# HELP colony_generators Generators run and failed in the last step.\n")
	fmt.Fprintf(rw, "# TYPE colony_generators gauge\n")
	fmt.Fprintf(rw, "colony_generators{world=%q,result=%q} %d\n", id, "run", m.GeneratorsRun)
	fmt.Fprintf(rw, "colony_generators{world=%q,result=%q} %d\n", id, "error", m.GeneratorErrors)

	if len(m.Backlog) > 0 {
		resources := make([]string, 0, len(m.Backlog))
		for r := range m.Backlog {
			resources = append(resources, r)
		}
		sort.Strings(resources)
		fmt.Fprintf(rw, "# HELP colony_backlog Unmet deposit demand by resource.\n")
		fmt.Fprintf(rw, "# TYPE colony_backlog gauge\n")
		for _, r := range resources {
			fmt.Fprintf(rw, "colony_backlog{world=%q,resource=%q} %d\n", id, r, m.Backlog[r])
		}
	}

	if rt.hub != nil {
		fmt.Fprintf(rw, "# HELP colony_observer_sessions Connected observer sessions.\n")
		fmt.Fprintf(rw, "# TYPE colony_observer_sessions gauge\n")
		fmt.Fprintf(rw, "colony_observer_sessions{world=%q} %d\n", id, rt.hub.Sessions())

		fmt.Fprintf(rw, "# HELP colony_observer_dropped_total Step messages dropped for slow observers.\n")
		fmt.Fprintf(rw, "# TYPE colony_observer_dropped_total counter\n")
		fmt.Fprintf(rw, "colony_observer_dropped_total{world=%q} %d\n", id, rt.hub.Dropped())
	}

	if rt.idx != nil {
		s := rt.idx.Stats()
		fmt.Fprintf(rw, "# HELP colony_index_queue_depth Current index queue depth.\n")
		fmt.Fprintf(rw, "# TYPE colony_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "colony_index_queue_depth{world=%q} %d\n", id, s.QueueDepth)
		fmt.Fprintf(rw, "colony_index_queue_capacity{world=%q} %d\n", id, s.QueueCapacity)

		fmt.Fprintf(rw, "# HELP colony_index_dropped_total Index writes dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE colony_index_dropped_total counter\n")
		fmt.Fprintf(rw, "colony_index_dropped_total{world=%q,kind=%q} %d\n", id, "step", s.DropStepTotal)
		fmt.Fprintf(rw, "colony_index_dropped_total{world=%q,kind=%q} %d\n", id, "snapshot", s.DropSnapshotTotal)

		fmt.Fprintf(rw, "# HELP colony_index_write_errors_total Failed index writes.\n")
		fmt.Fprintf(rw, "# TYPE colony_index_write_errors_total counter\n")
		fmt.Fprintf(rw, "colony_index_write_errors_total{world=%q} %d\n", id, s.WriteErrorTotal)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
