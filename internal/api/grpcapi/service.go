// Package grpcapi exposes stateless validation and pricing over gRPC for
// back-office systems that hold their own selections.
package grpcapi

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/KevinKickass/AlarmConfigurator/internal/catalog"
	"github.com/KevinKickass/AlarmConfigurator/internal/pricing"
	"github.com/KevinKickass/AlarmConfigurator/internal/rules"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

// Request is the document both methods accept:
// {"context": "retail", "selection": [{"id": "motion", "quantity": 2}]}
type Request struct {
	Context   types.PropertyContext  `json:"context"`
	Selection []types.SelectionEntry `json:"selection"`
}

type validateResponse struct {
	CatalogVersion string `json:"catalog_version"`
	types.ValidationResult
}

type priceResponse struct {
	CatalogVersion string                   `json:"catalog_version"`
	IsValid        bool                     `json:"is_valid"`
	AutoAppended   []types.AutoAppendedItem `json:"auto_appended_items"`
	*pricing.Estimate
}

type Service struct {
	provider *catalog.Provider
	limits   types.SystemLimits
	base     pricing.BasePrice
	logger   *zap.Logger
}

func NewService(provider *catalog.Provider, limits types.SystemLimits, base pricing.BasePrice, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider: provider,
		limits:   limits,
		base:     base,
		logger:   logger,
	}
}

// Validate runs the rules engine on the request's selection.
func (s *Service) Validate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	snap, req, err := s.prepare(in)
	if err != nil {
		return nil, err
	}

	res := rules.Validate(snap, s.limits, req.Selection)
	return encode(validateResponse{CatalogVersion: snap.Version(), ValidationResult: res})
}

// Price validates and prices the selection including auto-appended items.
// Invalid selections are priced too; is_valid tells the caller.
func (s *Service) Price(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	snap, req, err := s.prepare(in)
	if err != nil {
		return nil, err
	}

	res := rules.Validate(snap, s.limits, req.Selection)
	est, err := pricing.BuildEstimate(snap, req.Selection, res.AutoAppendedItems, req.Context, s.base)
	if err != nil {
		s.logger.Error("gRPC price failed", zap.Error(err))
		return nil, status.Errorf(codes.Internal, "pricing failed: %v", err)
	}

	return encode(priceResponse{
		CatalogVersion: snap.Version(),
		IsValid:        res.IsValid,
		AutoAppended:   res.AutoAppendedItems,
		Estimate:       est,
	})
}

func (s *Service) prepare(in *structpb.Struct) (*catalog.Snapshot, Request, error) {
	snap := s.provider.Current()
	if snap == nil {
		return nil, Request{}, status.Error(codes.Unavailable, "catalog not loaded")
	}

	req, err := DecodeRequest(in)
	if err != nil {
		return nil, Request{}, status.Error(codes.InvalidArgument, err.Error())
	}
	return snap, req, nil
}

// DecodeRequest reads a Request from its Struct form. An empty context
// means residential.
func DecodeRequest(in *structpb.Struct) (Request, error) {
	var req Request
	if in == nil {
		return req, fmt.Errorf("empty request")
	}

	data, err := in.MarshalJSON()
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("invalid request: %w", err)
	}

	if req.Context == "" {
		req.Context = types.ContextResidential
	}
	if !req.Context.Valid() {
		return req, fmt.Errorf("unsupported property context: %s", req.Context)
	}
	for _, e := range req.Selection {
		if e.ID == "" {
			return req, fmt.Errorf("selection entry without id")
		}
		if e.Quantity < 0 {
			return req, fmt.Errorf("%s: quantity cannot be negative", e.ID)
		}
	}
	return req, nil
}

// EncodeRequest is the client-side counterpart of DecodeRequest.
func EncodeRequest(ctx types.PropertyContext, selection []types.SelectionEntry) (*structpb.Struct, error) {
	return encode(Request{Context: ctx, Selection: selection})
}

func encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := out.UnmarshalJSON(data); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}
