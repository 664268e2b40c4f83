// Package server は投稿生成パイプラインを HTTP 経由で公開します。
// バッチCLIと同じ生成コアを、リクエスト単位のマスターデータで駆動します。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shouni/promo-post-gen-go/internal/forex"
	"github.com/shouni/promo-post-gen-go/internal/generate"
	"github.com/shouni/promo-post-gen-go/internal/llm"
	"github.com/shouni/promo-post-gen-go/internal/model"
	"github.com/shouni/promo-post-gen-go/internal/prompt"
	"github.com/shouni/promo-post-gen-go/internal/reconcile"
	"github.com/shouni/promo-post-gen-go/internal/sampler"
)

// Server は /process エンドポイントを提供する HTTP サーバーです。
// LLMクライアントと文体見本はプロセス全体で共有し、ホワイトリストや
// 為替レートはリクエストごとに受け取ります。
type Server struct {
	client    llm.Client
	examples  prompt.RegionExamples
	demoPool  []model.DemoPost
	model     string
	demoCount int
}

// Config は Server の構築パラメータです。
type Config struct {
	Client    llm.Client
	Examples  prompt.RegionExamples
	DemoPool  []model.DemoPost
	Model     string
	DemoCount int
}

// New は Server を構築します。
func New(cfg Config) (*Server, error) {
	if cfg.Client == nil {
		return nil, &model.InvalidConfigurationError{Reason: "LLMクライアントが指定されていません"}
	}
	if len(cfg.Examples) == 0 {
		return nil, &model.InvalidConfigurationError{Reason: "文体見本が指定されていません"}
	}
	return &Server{
		client:    cfg.Client,
		examples:  cfg.Examples,
		demoPool:  cfg.DemoPool,
		model:     cfg.Model,
		demoCount: cfg.DemoCount,
	}, nil
}

// Router は HTTP ルーティングを構築します。
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/process", s.handleProcess).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

// processRequest は /process のリクエストボディです。
// demo_pool は任意で、省略時はサーバー起動時に読み込んだプールを使用します。
type processRequest struct {
	InputData  []model.ItemInput    `json:"input_data"`
	Categories []model.CatalogEntry `json:"categories"`
	Interests  []model.CatalogEntry `json:"interests"`
	Warehouses []model.Warehouse    `json:"warehouses"`
	Rates      forex.Table          `json:"rates"`
	DemoPool   []model.DemoPost     `json:"demo_pool,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleProcess は商品参照のバッチを受け取り、確定済みレコードの
// JSON リストを返します。商品単位の失敗はスキップして記録します。
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("リクエストボディの解析に失敗しました: %v", err))
		return
	}

	generator, err := s.buildGenerator(req)
	if err != nil {
		var cfgErr *model.InvalidConfigurationError
		if errors.As(err, &cfgErr) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	records := s.processBatch(r.Context(), generator, req.InputData)
	respondJSON(w, http.StatusOK, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// buildGenerator はリクエストのマスターデータから生成コアを組み立てます。
func (s *Server) buildGenerator(req processRequest) (*generate.Generator, error) {
	pool := req.DemoPool
	if len(pool) == 0 {
		pool = s.demoPool
	}
	demoSampler, err := sampler.New(pool)
	if err != nil {
		return nil, err
	}

	reconciler, err := reconcile.New(
		req.Categories,
		req.Interests,
		req.Warehouses,
		req.Rates,
		reconcile.DefaultCTAConfig(),
	)
	if err != nil {
		return nil, err
	}

	return generate.New(generate.Config{
		Client:     s.client,
		Sampler:    demoSampler,
		Reconciler: reconciler,
		Examples:   s.examples,
		Categories: req.Categories,
		Interests:  req.Interests,
		Warehouses: req.Warehouses,
		Model:      s.model,
		DemoCount:  s.demoCount,
	})
}

// processBatch は商品を順に処理し、成功したレコードのみを返します。
// 失敗はログに記録し、バッチ全体は停止させません。
func (s *Server) processBatch(ctx context.Context, generator *generate.Generator, items []model.ItemInput) []model.PostRecord {
	records := make([]model.PostRecord, 0, len(items))
	for i, item := range items {
		slog.Info("商品を処理します。",
			slog.Int("index", i+1),
			slog.Int("total", len(items)),
			slog.String("item_url", item.ItemURL))

		rec, err := generator.Generate(ctx, item)
		if err != nil {
			slog.Warn("投稿生成に失敗したため商品をスキップします。",
				slog.String("item_url", item.ItemURL),
				slog.Any("error", err))
			continue
		}
		records = append(records, rec)
	}
	return records
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("レスポンスの書き込みに失敗しました。", slog.Any("error", err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
