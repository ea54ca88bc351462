package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"zygl/pkg/backend"
	"zygl/pkg/log"
	"zygl/pkg/protocol"
	"zygl/pkg/store"
)

// Deployer is the backend mutation used for both deploy and undeploy.
type Deployer interface {
	Deploy(ctx context.Context, labels []string) (*backend.DeployResponse, error)
	Undeploy(ctx context.Context, labels []string) (*backend.DeployResponse, error)
}

// StackOutcome is one stack's result within a deploy or undeploy.
type StackOutcome struct {
	StackName string `json:"stackName"`
	StackUUID string `json:"stackUUID"`
	Message   string `json:"message"`
}

// DeployResult reports per-stack outcomes. A backend that addresses no stacks
// yields an empty, successful result.
type DeployResult struct {
	SuccessStacks []StackOutcome `json:"successStacks"`
	FailureStacks []StackOutcome `json:"failureStacks"`
	Total         int            `json:"totalCount"`
	Succeeded     int            `json:"successCount"`
	Failed        int            `json:"failureCount"`
}

// StackControlService deploys and undeploys stacks by label.
type StackControlService struct {
	api    Deployer
	stacks store.StackReader
	logger zerolog.Logger
}

func NewStackControlService(api Deployer, stacks store.StackReader) *StackControlService {
	return &StackControlService{
		api:    api,
		stacks: stacks,
		logger: log.Component("stack-control"),
	}
}

func (s *StackControlService) DeployByLabels(ctx context.Context, labels []string) Result[DeployResult] {
	return s.run(ctx, "deploy", labels, s.api.Deploy)
}

func (s *StackControlService) UndeployByLabels(ctx context.Context, labels []string) Result[DeployResult] {
	return s.run(ctx, "undeploy", labels, s.api.Undeploy)
}

func (s *StackControlService) run(ctx context.Context, op string, labels []string,
	call func(context.Context, []string) (*backend.DeployResponse, error),
) Result[DeployResult] {
	labels = compactLabels(labels)
	if len(labels) == 0 {
		return fail[DeployResult](protocol.ResultInvalidParameter, "%s: labels empty", op)
	}

	resp, err := call(ctx, labels)
	if err != nil {
		s.logger.Warn().Err(err).Str("op", op).Strs("labels", labels).Msg("Backend call failed")
		return failFromError[DeployResult](op, err)
	}

	result := toDeployResult(resp)
	s.logger.Info().
		Str("op", op).
		Strs("labels", labels).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("Stack command completed")

	return succeed(result, fmt.Sprintf("%s: %d succeeded, %d failed", op, result.Succeeded, result.Failed))
}

// PreviewByLabel lists the UUIDs of stored stacks carrying label.
func (s *StackControlService) PreviewByLabel(label string) Result[[]string] {
	if label == "" {
		return fail[[]string](protocol.ResultInvalidParameter, "preview: label empty")
	}
	matched := s.stacks.FindByLabel(label)
	ids := make([]string, 0, len(matched))
	for _, st := range matched {
		ids = append(ids, st.UUID)
	}
	return succeed(ids, fmt.Sprintf("found %d stacks", len(ids)))
}

func compactLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

func toDeployResult(resp *backend.DeployResponse) DeployResult {
	result := DeployResult{
		SuccessStacks: []StackOutcome{},
		FailureStacks: []StackOutcome{},
	}
	if resp == nil {
		return result
	}
	for _, r := range resp.SuccessStackInfos {
		result.SuccessStacks = append(result.SuccessStacks, StackOutcome(r))
	}
	for _, r := range resp.FailureStackInfos {
		result.FailureStacks = append(result.FailureStacks, StackOutcome(r))
	}
	result.Succeeded = len(result.SuccessStacks)
	result.Failed = len(result.FailureStacks)
	result.Total = result.Succeeded + result.Failed
	return result
}
