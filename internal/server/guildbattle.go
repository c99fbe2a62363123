package server

import (
	"context"
	"fmt"
	"guild-battle-tracker/internal/analysis"
	"guild-battle-tracker/internal/config"
	"guild-battle-tracker/internal/constants"
	"guild-battle-tracker/internal/domain"
	"guild-battle-tracker/internal/service"
	"guild-battle-tracker/internal/validation"
	"net/http"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

const GuildBattleServicePath = "/guildbattle.v1.GuildBattleService/"

const (
	AnalyzeSheetProcedure       = GuildBattleServicePath + "AnalyzeSheet"
	AnalyzeWorkbookProcedure    = GuildBattleServicePath + "AnalyzeWorkbook"
	AnalyzeScreenshotsProcedure = GuildBattleServicePath + "AnalyzeScreenshots"
	AnalyzeTextProcedure        = GuildBattleServicePath + "AnalyzeText"
	GetLatestAnalysisProcedure  = GuildBattleServicePath + "GetLatestAnalysis"
	ExportAnalysisProcedure     = GuildBattleServicePath + "ExportAnalysis"
	ClearAnalysesProcedure      = GuildBattleServicePath + "ClearAnalyses"
	ListSeasonsProcedure        = GuildBattleServicePath + "ListSeasons"
	ListGuildsProcedure         = GuildBattleServicePath + "ListGuilds"
	GetPlayerHistoryProcedure   = GuildBattleServicePath + "GetPlayerHistory"
)

type GuildBattleServer struct {
	analyses    *service.AnalysisService
	screenshots *service.ScreenshotService
	defaultSel  analysis.SeasonSelector
	logger      zerolog.Logger
}

func NewGuildBattleServer(analyses *service.AnalysisService, screenshots *service.ScreenshotService, cfg *config.Config, logger zerolog.Logger) *GuildBattleServer {
	return &GuildBattleServer{
		analyses:    analyses,
		screenshots: screenshots,
		defaultSel:  cfg.DefaultSelector(),
		logger:      logger,
	}
}

// Handler mounts every procedure behind the service path, speaking the
// connect protocol with JSON bodies.
func (s *GuildBattleServer) Handler() (string, http.Handler) {
	opts := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(loggingInterceptor(s.logger)),
		connect.WithReadMaxBytes(constants.MaxRequestBytes),
	}

	mux := http.NewServeMux()
	mux.Handle(AnalyzeSheetProcedure, connect.NewUnaryHandler(AnalyzeSheetProcedure, s.AnalyzeSheet, opts...))
	mux.Handle(AnalyzeWorkbookProcedure, connect.NewUnaryHandler(AnalyzeWorkbookProcedure, s.AnalyzeWorkbook, opts...))
	mux.Handle(AnalyzeScreenshotsProcedure, connect.NewUnaryHandler(AnalyzeScreenshotsProcedure, s.AnalyzeScreenshots, opts...))
	mux.Handle(AnalyzeTextProcedure, connect.NewUnaryHandler(AnalyzeTextProcedure, s.AnalyzeText, opts...))
	mux.Handle(GetLatestAnalysisProcedure, connect.NewUnaryHandler(GetLatestAnalysisProcedure, s.GetLatestAnalysis, opts...))
	mux.Handle(ExportAnalysisProcedure, connect.NewUnaryHandler(ExportAnalysisProcedure, s.ExportAnalysis, opts...))
	mux.Handle(ClearAnalysesProcedure, connect.NewUnaryHandler(ClearAnalysesProcedure, s.ClearAnalyses, opts...))
	mux.Handle(ListSeasonsProcedure, connect.NewUnaryHandler(ListSeasonsProcedure, s.ListSeasons, opts...))
	mux.Handle(ListGuildsProcedure, connect.NewUnaryHandler(ListGuildsProcedure, s.ListGuilds, opts...))
	mux.Handle(GetPlayerHistoryProcedure, connect.NewUnaryHandler(GetPlayerHistoryProcedure, s.GetPlayerHistory, opts...))
	return GuildBattleServicePath, mux
}

func (s *GuildBattleServer) AnalyzeSheet(ctx context.Context, req *connect.Request[AnalyzeSheetRequest]) (*connect.Response[AnalysisResponse], error) {
	msg := req.Msg
	opts, err := s.options(msg, msg.Period, msg.Guild, msg.Save)
	if err != nil {
		return nil, err
	}

	out, err := s.analyses.AnalyzeSheet(ctx, msg.SpreadsheetID, msg.Range, opts)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(analysisResponse(out)), nil
}

func (s *GuildBattleServer) AnalyzeWorkbook(ctx context.Context, req *connect.Request[AnalyzeWorkbookRequest]) (*connect.Response[AnalysisResponse], error) {
	msg := req.Msg
	opts, err := s.options(msg, msg.Period, msg.Guild, msg.Save)
	if err != nil {
		return nil, err
	}

	out, err := s.analyses.AnalyzeWorkbook(ctx, msg.Content, msg.Sheet, analysis.DamageUnit(msg.DamageUnit), opts)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(analysisResponse(out)), nil
}

func (s *GuildBattleServer) AnalyzeScreenshots(ctx context.Context, req *connect.Request[AnalyzeScreenshotsRequest]) (*connect.Response[AnalysisResponse], error) {
	msg := req.Msg
	opts, err := s.options(msg, msg.Period, msg.Guild, msg.Save)
	if err != nil {
		return nil, err
	}
	method, err := service.ParseMethod(msg.Method)
	if err != nil {
		return nil, toConnectError(err)
	}

	out, err := s.screenshots.Analyze(ctx, msg.Images, method, opts)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(analysisResponse(out)), nil
}

func (s *GuildBattleServer) AnalyzeText(ctx context.Context, req *connect.Request[AnalyzeTextRequest]) (*connect.Response[AnalysisResponse], error) {
	msg := req.Msg
	opts, err := s.options(msg, msg.Period, msg.Guild, msg.Save)
	if err != nil {
		return nil, err
	}

	out, err := s.analyses.AnalyzeText(ctx, msg.Text, opts)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(analysisResponse(out)), nil
}

func (s *GuildBattleServer) GetLatestAnalysis(ctx context.Context, req *connect.Request[AnalysisRequest]) (*connect.Response[AnalysisResponse], error) {
	opts, err := s.options(req.Msg, req.Msg.Period, req.Msg.Guild, false)
	if err != nil {
		return nil, err
	}

	a, err := s.analyses.LatestAnalysis(ctx, opts.Selector, opts.Guild)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(analysisResponse(&service.Outcome{Analysis: a, Saved: true})), nil
}

func (s *GuildBattleServer) ExportAnalysis(ctx context.Context, req *connect.Request[AnalysisRequest]) (*connect.Response[ExportAnalysisResponse], error) {
	opts, err := s.options(req.Msg, req.Msg.Period, req.Msg.Guild, false)
	if err != nil {
		return nil, err
	}

	content, a, err := s.analyses.Export(ctx, opts.Selector, opts.Guild)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ExportAnalysisResponse{
		AnalysisID: a.ID,
		Filename:   fmt.Sprintf("guild-battle-%s-%s.xlsx", a.Guild, a.Season),
		Content:    content,
	}), nil
}

func (s *GuildBattleServer) ClearAnalyses(ctx context.Context, req *connect.Request[AnalysisRequest]) (*connect.Response[ClearAnalysesResponse], error) {
	opts, err := s.options(req.Msg, req.Msg.Period, req.Msg.Guild, false)
	if err != nil {
		return nil, err
	}

	n, err := s.analyses.ClearAnalyses(ctx, opts.Selector, opts.Guild)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ClearAnalysesResponse{Deleted: n}), nil
}

func (s *GuildBattleServer) ListSeasons(ctx context.Context, _ *connect.Request[ListSeasonsRequest]) (*connect.Response[ListSeasonsResponse], error) {
	seasons, err := s.analyses.ListSeasons(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &ListSeasonsResponse{Seasons: make([]Season, 0, len(seasons))}
	for _, season := range seasons {
		resp.Seasons = append(resp.Seasons, Season{
			ID:        season.ID,
			Name:      season.Name,
			StartDate: formatTime(season.StartDate),
			IsActive:  season.IsActive,
		})
	}
	return connect.NewResponse(resp), nil
}

func (s *GuildBattleServer) ListGuilds(ctx context.Context, _ *connect.Request[ListGuildsRequest]) (*connect.Response[ListGuildsResponse], error) {
	guilds, err := s.analyses.ListGuilds(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &ListGuildsResponse{Guilds: make([]Guild, 0, len(guilds))}
	for _, g := range guilds {
		resp.Guilds = append(resp.Guilds, Guild{ID: g.ID, Name: g.Name, CreatedAt: formatTime(g.CreatedAt)})
	}
	return connect.NewResponse(resp), nil
}

func (s *GuildBattleServer) GetPlayerHistory(ctx context.Context, req *connect.Request[PlayerHistoryRequest]) (*connect.Response[PlayerHistoryResponse], error) {
	msg := req.Msg
	if err := validation.Struct(msg); err != nil {
		return nil, toConnectError(err)
	}

	results, err := s.analyses.PlayerHistory(ctx, msg.Guild, msg.PlayerName, msg.Limit)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &PlayerHistoryResponse{PlayerName: msg.PlayerName, Results: make([]BattleResult, 0, len(results))}
	for _, r := range results {
		resp.Results = append(resp.Results, BattleResult{
			AnalysisID:  r.AnalysisID,
			Season:      r.Season,
			Boss:        string(r.Boss),
			Damage:      r.Damage,
			BattlesUsed: r.BattlesUsed,
			Rank:        r.Rank,
			CreatedAt:   formatTime(r.CreatedAt),
		})
	}
	return connect.NewResponse(resp), nil
}

// options validates msg and resolves its season selector. An empty period
// means the configured default.
func (s *GuildBattleServer) options(msg any, period, guild string, save bool) (service.Options, error) {
	if err := validation.Struct(msg); err != nil {
		return service.Options{}, toConnectError(err)
	}

	sel := s.defaultSel
	if period != "" {
		parsed, err := analysis.ParseSelector(period)
		if err != nil {
			return service.Options{}, toConnectError(err)
		}
		sel = parsed
	}
	return service.Options{Selector: sel, Guild: guild, Save: save}, nil
}

func analysisResponse(out *service.Outcome) *AnalysisResponse {
	a := out.Analysis
	// Seasons are written from a parsed selector, so this only fails for
	// rows stored under a period that no longer exists.
	sel, _ := analysis.ParseSelector(a.Season)
	resp := &AnalysisResponse{
		AnalysisID:          a.ID,
		Season:              a.Season,
		Guild:               a.Guild,
		Source:              a.Source,
		Players:             a.Players,
		Reports:             analysis.PlayerReports(a.Players, sel),
		Stats:               a.Stats,
		Insights:            a.Insights,
		FallbackScreenshots: out.FallbackScreenshots,
		LowConfidence:       out.LowConfidence,
		Saved:               out.Saved,
		AnalyzedAt:          formatTime(a.AnalyzedAt),
	}
	if resp.Players == nil {
		resp.Players = []domain.CanonicalPlayer{}
	}
	if resp.FallbackScreenshots == nil {
		resp.FallbackScreenshots = []int{}
	}
	return resp
}
