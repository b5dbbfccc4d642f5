package api

import (
	"assembly-line/internal/engine"
	"assembly-line/internal/intake"
	"assembly-line/internal/persistence"
	"assembly-line/internal/types"
	"assembly-line/internal/util"
	"assembly-line/internal/web"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SummarySource 提供统计汇总
type SummarySource interface {
	Summary() persistence.Summary
}

// Server 把调度引擎暴露为 HTTP API
// 引擎不是并发安全的，所有访问都经过 mu 串行化
type Server struct {
	mu      sync.Mutex
	coord   *engine.Coordinator
	catalog *intake.Catalog
	stats   SummarySource
	tracker *web.StateTracker
	hub     *web.Hub
	logger  *slog.Logger
}

// Options 是 Server 的可选依赖
type Options struct {
	Stats   SummarySource
	Tracker *web.StateTracker
	Hub     *web.Hub
	Logger  *slog.Logger
}

// NewServer 创建 API 服务
func NewServer(coord *engine.Coordinator, catalog *intake.Catalog, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		coord:   coord,
		catalog: catalog,
		stats:   opts.Stats,
		tracker: opts.Tracker,
		hub:     opts.Hub,
		logger:  opts.Logger.With("component", "api"),
	}
}

// Handler 返回注册好全部路由的 http.Handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if s.hub != nil && s.tracker != nil {
		mux.HandleFunc("/ws", s.hub.ServeWs(func() interface{} { return s.tracker.GetStateSnapshot() }))
	}

	mux.HandleFunc("POST /api/orders", s.handleAddOrder)
	mux.HandleFunc("POST /api/advance", s.handleAdvance)
	mux.HandleFunc("POST /api/tasks/{id}/perform", s.handlePerformTask)
	mux.HandleFunc("POST /api/strategy", s.handleSwitchStrategy)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/stations/{id}/tasks", s.handleStationTasks)
	mux.HandleFunc("GET /api/strategies", s.handleStrategies)
	mux.HandleFunc("GET /api/batches", s.handleBatches)
	mux.HandleFunc("GET /api/statistics", s.handleStatistics)
	mux.HandleFunc("GET /api/models", s.handleModels)

	return util.TraceMiddleware(s.logger, mux)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleAddOrder(w http.ResponseWriter, r *http.Request) {
	var req intake.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("解析订单请求失败", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := s.catalog.Build(req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, intake.ErrUnknownModel) || errors.Is(err, intake.ErrBadDeadline) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	s.mu.Lock()
	queued := s.coord.AddOrder(order)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, queued)
}

// maxAdvanceMinutes 超过这个分钟数换算成 time.Duration 会溢出
const maxAdvanceMinutes = math.MaxInt64 / int64(time.Minute)

// AdvanceRequest 推进请求，时长以分钟计
type AdvanceRequest struct {
	Minutes int `json:"minutes"`
}

// AdvanceResponse 推进结果
type AdvanceResponse struct {
	Accepted bool      `json:"accepted"`
	Time     time.Time `json:"time"`
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// 负数交给引擎拒绝；过大的值在换算前拦下
	if int64(req.Minutes) > maxAdvanceMinutes {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("minutes must not exceed %d", maxAdvanceMinutes))
		return
	}

	s.mu.Lock()
	ok := s.coord.TryAdvance(time.Duration(req.Minutes) * time.Minute)
	now := s.coord.CurrentTime()
	s.mu.Unlock()

	status := http.StatusOK
	if !ok {
		status = http.StatusConflict
	}
	writeJSON(w, status, AdvanceResponse{Accepted: ok, Time: now})
}

func (s *Server) handlePerformTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	ok := s.coord.PerformTask(id)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "no station holds pending task "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StrategyRequest 切换策略；ExampleID 为空表示恢复到达策略
type StrategyRequest struct {
	ExampleID string `json:"example_id"`
}

func (s *Server) handleSwitchStrategy(w http.ResponseWriter, r *http.Request) {
	var req StrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ExampleID == "" {
		s.coord.SwitchStrategy(nil)
		writeJSON(w, http.StatusOK, s.coord.Strategies())
		return
	}
	example, found := findOrder(s.coord.Snapshot(), req.ExampleID)
	if !found {
		writeError(w, http.StatusNotFound, "unknown order "+req.ExampleID)
		return
	}
	s.coord.SwitchStrategy(&example)
	writeJSON(w, http.StatusOK, s.coord.Strategies())
}

// findOrder 在链上和队列中查找订单
func findOrder(line types.LineSnapshot, id string) (types.Order, bool) {
	for _, st := range line.Stations {
		if st.Order != nil && st.Order.ID == id {
			return *st.Order, true
		}
	}
	for _, o := range line.Queue {
		if o.ID == id {
			return o, true
		}
	}
	return types.Order{}, false
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap := s.coord.Snapshot()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

// StationTasks 工站任务视图
type StationTasks struct {
	Pending []types.Task `json:"pending"`
	All     []types.Task `json:"all"`
}

func (s *Server) handleStationTasks(w http.ResponseWriter, r *http.Request) {
	id := types.StationID(r.PathValue("id"))

	s.mu.Lock()
	out := StationTasks{Pending: s.coord.PendingTasks(id), All: s.coord.AllTasks(id)}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := s.coord.Strategies()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := s.coord.BatchEligibleOrders()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, persistence.Summary{})
		return
	}
	writeJSON(w, http.StatusOK, s.stats.Summary())
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Models())
}
