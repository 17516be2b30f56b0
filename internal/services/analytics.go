package services

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/localai-backend/internal/data/repos"
	"github.com/yungbote/localai-backend/internal/domain/chat"
	"github.com/yungbote/localai-backend/internal/platform/dbctx"
	"github.com/yungbote/localai-backend/internal/platform/logger"
)

type DashboardStats struct {
	TotalConversations int64   `json:"total_conversations"`
	TotalMessages      int64   `json:"total_messages"`
	TotalTokens        int64   `json:"total_tokens"`
	ActiveModel        string  `json:"active_model"`
	AvgResponseTime    float64 `json:"avg_response_time"`
	ConversationsToday int64   `json:"conversations_today"`
	MessagesToday      int64   `json:"messages_today"`
	TokensToday        int64   `json:"tokens_today"`
}

type AnalyticsService interface {
	DashboardStats(ctx context.Context) (*DashboardStats, error)
}

type analyticsService struct {
	log           *logger.Logger
	conversations repos.ConversationRepo
	messages      repos.MessageRepo
	activeModel   string
}

func NewAnalyticsService(baseLog *logger.Logger, conversationRepo repos.ConversationRepo, messageRepo repos.MessageRepo, activeModel string) AnalyticsService {
	return &analyticsService{
		log:           baseLog.With("service", "AnalyticsService"),
		conversations: conversationRepo,
		messages:      messageRepo,
		activeModel:   activeModel,
	}
}

// DashboardStats runs the rollup queries concurrently. The figures are not
// taken from a single snapshot.
func (s *analyticsService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	const op = "Chat.Analytics.DashboardStats"
	today := startOfDayUTC(nowUTC())
	out := &DashboardStats{ActiveModel: s.activeModel}

	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.Context{Ctx: gctx}
	g.Go(func() (err error) {
		out.TotalConversations, err = s.conversations.Count(dbc, nil)
		return err
	})
	g.Go(func() (err error) {
		out.ConversationsToday, err = s.conversations.Count(dbc, &today)
		return err
	})
	g.Go(func() (err error) {
		out.TotalTokens, err = s.conversations.SumTotalTokens(dbc)
		return err
	})
	g.Go(func() (err error) {
		out.TotalMessages, err = s.messages.Count(dbc, nil)
		return err
	})
	g.Go(func() (err error) {
		out.MessagesToday, err = s.messages.Count(dbc, &today)
		return err
	})
	g.Go(func() (err error) {
		out.TokensToday, err = s.messages.SumTokens(dbc, &today)
		return err
	})
	g.Go(func() error {
		avg, err := s.messages.AvgGenerationTime(dbc, chat.RoleAssistant)
		out.AvgResponseTime = math.Round(avg*100) / 100
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeError(op, err)
	}
	return out, nil
}
