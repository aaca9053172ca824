package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/streamhub/internal/clock"
	"github.com/smallbiznis/streamhub/internal/realtime"
	taskdomain "github.com/smallbiznis/streamhub/internal/task/domain"
	"github.com/smallbiznis/streamhub/pkg/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      taskdomain.Repository
	Publisher realtime.Publisher `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      taskdomain.Repository
	publisher realtime.Publisher
}

func New(p Params) taskdomain.Service {
	return &Service{
		log:       p.Log.Named("task.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		publisher: p.Publisher,
	}
}

func (s *Service) List(ctx context.Context, userID snowflake.ID) ([]*taskdomain.Task, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Create(ctx context.Context, userID snowflake.ID, req taskdomain.CreateRequest) (*taskdomain.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	task := &taskdomain.Task{
		ID:          s.genID.Generate(),
		UserID:      userID,
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, task); err != nil {
		return nil, err
	}
	s.publish(ctx, realtime.OpInsert, task.ID, userID)
	return task, nil
}

func (s *Service) Update(ctx context.Context, userID, id snowflake.ID, req taskdomain.UpdateRequest) (*taskdomain.Task, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, validation.New("title", "required", "title is required")
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Completed != nil {
		fields["completed"] = *req.Completed
	}
	if len(fields) == 0 {
		return s.repo.FindOwned(ctx, userID, id)
	}
	fields["updated_at"] = s.clock.Now()

	if err := s.repo.UpdateOwned(ctx, userID, id, fields); err != nil {
		return nil, err
	}
	s.publish(ctx, realtime.OpUpdate, id, userID)
	return s.repo.FindOwned(ctx, userID, id)
}

func (s *Service) Delete(ctx context.Context, userID, id snowflake.ID) error {
	if err := s.repo.DeleteOwned(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, realtime.OpDelete, id, userID)
	return nil
}

func (s *Service) publish(ctx context.Context, op realtime.Op, id, userID snowflake.ID) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, realtime.Change{
		Table:    realtime.TableTasks,
		Op:       op,
		RecordID: id,
		UserID:   userID,
		At:       s.clock.Now(),
	})
}
