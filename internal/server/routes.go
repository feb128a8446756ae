// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vigil-health/vigil/internal/capability"
	"github.com/vigil-health/vigil/internal/store"
	vigilerr "github.com/vigil-health/vigil/pkg/errors"
	"github.com/vigil-health/vigil/pkg/freshness"
)

// RegisterService sets the gateway dependency and registers REST routes.
func (s *Server) RegisterService(svc InferenceService) {
	s.service = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	// Patient inference endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "get-vitals",
		Method:      http.MethodGet,
		Path:        "/api/v1/patients/{id}/vitals",
		Summary:     "Current health metrics for a patient",
		Tags:        []string{"inference"},
	}, s.handleGetVitals)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-risk",
		Method:      http.MethodGet,
		Path:        "/api/v1/patients/{id}/risk",
		Summary:     "Deterioration risk assessment for a patient",
		Tags:        []string{"inference"},
	}, s.handleGetRisk)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-forecast",
		Method:      http.MethodGet,
		Path:        "/api/v1/patients/{id}/forecast",
		Summary:     "Health trend forecast for a patient",
		Tags:        []string{"inference"},
	}, s.handleGetForecast)

	// Operation freshness endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "list-operations",
		Method:      http.MethodGet,
		Path:        "/api/v1/operations",
		Summary:     "Freshness metrics for all tracked operations",
		Tags:        []string{"operations"},
	}, s.handleListOperations)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-operation",
		Method:      http.MethodGet,
		Path:        "/api/v1/operations/{name}",
		Summary:     "Freshness metrics for one operation",
		Tags:        []string{"operations"},
	}, s.handleGetOperation)

	huma.Register(s.api, huma.Operation{
		OperationID: "reset-operations",
		Method:      http.MethodPost,
		Path:        "/api/v1/operations/reset",
		Summary:     "Reset all tracked operation state",
		Tags:        []string{"operations"},
	}, s.handleResetAll)

	huma.Register(s.api, huma.Operation{
		OperationID: "reset-operation",
		Method:      http.MethodPost,
		Path:        "/api/v1/operations/{name}/reset",
		Summary:     "Reset one operation's tracked state",
		Tags:        []string{"operations"},
	}, s.handleResetOperation)

	// Observation log
	huma.Register(s.api, huma.Operation{
		OperationID: "list-observations",
		Method:      http.MethodGet,
		Path:        "/api/v1/observations",
		Summary:     "Recorded inference outcomes, newest first",
		Tags:        []string{"observations"},
	}, s.handleListObservations)
}

// --- Request/Response types for huma ---

type patientInput struct {
	ID string `path:"id" doc:"Patient identifier"`
}

type vitalsOutput struct {
	Body struct {
		Source string                  `json:"source" doc:"Which path produced the payload"`
		Report capability.VitalsReport `json:"report"`
	}
}

type riskOutput struct {
	Body struct {
		Source     string                    `json:"source" doc:"Which path produced the payload"`
		Assessment capability.RiskAssessment `json:"assessment"`
	}
}

type forecastInput struct {
	ID   string `path:"id" doc:"Patient identifier"`
	Days int    `query:"days" minimum:"0" maximum:"90" doc:"Forecast horizon in days (0 = default)"`
}

type forecastOutput struct {
	Body struct {
		Source   string              `json:"source" doc:"Which path produced the payload"`
		Forecast capability.Forecast `json:"forecast"`
	}
}

type listOperationsOutput struct {
	Body struct {
		Operations []freshness.Metrics `json:"operations"`
	}
}

type operationNameInput struct {
	Name string `path:"name" doc:"Operation name"`
}

type getOperationOutput struct {
	Body freshness.Metrics
}

type resetOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

type listObservationsInput struct {
	Operation string `query:"operation" doc:"Filter by operation name"`
	Source    string `query:"source" doc:"Filter by resolved source"`
	Limit     int    `query:"limit" minimum:"0" maximum:"1000" doc:"Maximum rows returned"`
}

type listObservationsOutput struct {
	Body struct {
		Observations []*store.Outcome `json:"observations"`
	}
}

// --- Handlers ---

// serviceError maps a gateway error onto the matching huma status error.
func serviceError(err error) error {
	return huma.NewError(vigilerr.HTTPStatus(err), err.Error())
}

func (s *Server) handleGetVitals(ctx context.Context, input *patientInput) (*vitalsOutput, error) {
	report, src, err := s.service.GetVitals(ctx, input.ID)
	if err != nil {
		return nil, serviceError(err)
	}
	out := &vitalsOutput{}
	out.Body.Source = string(src)
	out.Body.Report = *report
	return out, nil
}

func (s *Server) handleGetRisk(ctx context.Context, input *patientInput) (*riskOutput, error) {
	assessment, src, err := s.service.GetRisk(ctx, input.ID)
	if err != nil {
		return nil, serviceError(err)
	}
	out := &riskOutput{}
	out.Body.Source = string(src)
	out.Body.Assessment = *assessment
	return out, nil
}

func (s *Server) handleGetForecast(ctx context.Context, input *forecastInput) (*forecastOutput, error) {
	fc, src, err := s.service.GetForecast(ctx, input.ID, input.Days)
	if err != nil {
		return nil, serviceError(err)
	}
	out := &forecastOutput{}
	out.Body.Source = string(src)
	out.Body.Forecast = *fc
	return out, nil
}

func (s *Server) handleListOperations(_ context.Context, _ *struct{}) (*listOperationsOutput, error) {
	out := &listOperationsOutput{}
	out.Body.Operations = s.service.Operations()
	return out, nil
}

func (s *Server) handleGetOperation(_ context.Context, input *operationNameInput) (*getOperationOutput, error) {
	metrics, err := s.service.Operation(input.Name)
	if err != nil {
		return nil, serviceError(err)
	}
	return &getOperationOutput{Body: metrics}, nil
}

func (s *Server) handleResetAll(_ context.Context, _ *struct{}) (*resetOutput, error) {
	s.service.ResetAll()
	out := &resetOutput{}
	out.Body.Status = "reset"
	return out, nil
}

func (s *Server) handleResetOperation(_ context.Context, input *operationNameInput) (*resetOutput, error) {
	s.service.ResetOperation(input.Name)
	out := &resetOutput{}
	out.Body.Status = "reset"
	return out, nil
}

func (s *Server) handleListObservations(ctx context.Context, input *listObservationsInput) (*listObservationsOutput, error) {
	observations, err := s.service.Observations(ctx, store.OutcomeFilter{
		Operation: input.Operation,
		Source:    input.Source,
		Limit:     input.Limit,
	})
	if err != nil {
		return nil, serviceError(err)
	}
	out := &listObservationsOutput{}
	out.Body.Observations = observations
	return out, nil
}
