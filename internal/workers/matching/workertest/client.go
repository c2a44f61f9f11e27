// internal/workers/matching/workertest/client.go

// Package workertest provides a recording job client for handler tests, so
// the complete/fail/throw outcome of a Handle call can be asserted without a
// broker.
package workertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
)

// Client implements worker.JobClient and records every command sent.
type Client struct {
	mu sync.Mutex

	Completed []CompletedJob
	Failed    []FailedJob
	Thrown    []ThrownError
}

type CompletedJob struct {
	JobKey    int64
	Variables interface{}
}

type FailedJob struct {
	JobKey       int64
	Retries      int32
	ErrorMessage string
}

type ThrownError struct {
	JobKey       int64
	ErrorCode    string
	ErrorMessage string
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return &completeCommand{client: c}
}

func (c *Client) NewFailJobCommand() commands.FailJobCommandStep1 {
	return &failCommand{client: c}
}

func (c *Client) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return &throwCommand{client: c}
}

// ==========================
// Complete command recorder
// ==========================

type completeCommand struct {
	client    *Client
	jobKey    int64
	variables interface{}
}

func (s *completeCommand) JobKey(key int64) commands.CompleteJobCommandStep2 {
	s.jobKey = key
	return s
}

func (s *completeCommand) VariablesFromString(v string) (commands.DispatchCompleteJobCommand, error) {
	s.variables = v
	return s, nil
}

func (s *completeCommand) VariablesFromStringer(v fmt.Stringer) (commands.DispatchCompleteJobCommand, error) {
	s.variables = v.String()
	return s, nil
}

func (s *completeCommand) VariablesFromMap(v map[string]interface{}) (commands.DispatchCompleteJobCommand, error) {
	s.variables = v
	return s, nil
}

func (s *completeCommand) VariablesFromObject(v interface{}) (commands.DispatchCompleteJobCommand, error) {
	s.variables = v
	return s, nil
}

func (s *completeCommand) VariablesFromObjectIgnoreOmitempty(v interface{}) (commands.DispatchCompleteJobCommand, error) {
	s.variables = v
	return s, nil
}

func (s *completeCommand) Send(context.Context) (*pb.CompleteJobResponse, error) {
	s.client.mu.Lock()
	defer s.client.mu.Unlock()
	s.client.Completed = append(s.client.Completed, CompletedJob{JobKey: s.jobKey, Variables: s.variables})
	return &pb.CompleteJobResponse{}, nil
}

// ==========================
// Fail command recorder
// ==========================

type failCommand struct {
	client       *Client
	jobKey       int64
	retries      int32
	errorMessage string
}

func (s *failCommand) JobKey(key int64) commands.FailJobCommandStep2 {
	s.jobKey = key
	return s
}

func (s *failCommand) Retries(retries int32) commands.FailJobCommandStep3 {
	s.retries = retries
	return s
}

func (s *failCommand) RetryBackoff(time.Duration) commands.FailJobCommandStep3 {
	return s
}

func (s *failCommand) ErrorMessage(msg string) commands.FailJobCommandStep3 {
	s.errorMessage = msg
	return s
}

func (s *failCommand) VariablesFromString(string) (commands.DispatchFailJobCommand, error) {
	return s, nil
}

func (s *failCommand) VariablesFromStringer(fmt.Stringer) (commands.DispatchFailJobCommand, error) {
	return s, nil
}

func (s *failCommand) VariablesFromMap(map[string]interface{}) (commands.DispatchFailJobCommand, error) {
	return s, nil
}

func (s *failCommand) VariablesFromObject(interface{}) (commands.DispatchFailJobCommand, error) {
	return s, nil
}

func (s *failCommand) VariablesFromObjectIgnoreOmitempty(interface{}) (commands.DispatchFailJobCommand, error) {
	return s, nil
}

func (s *failCommand) Send(context.Context) (*pb.FailJobResponse, error) {
	s.client.mu.Lock()
	defer s.client.mu.Unlock()
	s.client.Failed = append(s.client.Failed, FailedJob{JobKey: s.jobKey, Retries: s.retries, ErrorMessage: s.errorMessage})
	return &pb.FailJobResponse{}, nil
}

// ==========================
// Throw-error command recorder
// ==========================

type throwCommand struct {
	client       *Client
	jobKey       int64
	errorCode    string
	errorMessage string
}

func (s *throwCommand) JobKey(key int64) commands.ThrowErrorCommandStep2 {
	s.jobKey = key
	return s
}

func (s *throwCommand) ErrorCode(code string) commands.DispatchThrowErrorCommand {
	s.errorCode = code
	return s
}

func (s *throwCommand) ErrorMessage(msg string) commands.DispatchThrowErrorCommand {
	s.errorMessage = msg
	return s
}

func (s *throwCommand) VariablesFromString(string) (commands.DispatchThrowErrorCommand, error) {
	return s, nil
}

func (s *throwCommand) VariablesFromStringer(fmt.Stringer) (commands.DispatchThrowErrorCommand, error) {
	return s, nil
}

func (s *throwCommand) VariablesFromMap(map[string]interface{}) (commands.DispatchThrowErrorCommand, error) {
	return s, nil
}

func (s *throwCommand) VariablesFromObject(interface{}) (commands.DispatchThrowErrorCommand, error) {
	return s, nil
}

func (s *throwCommand) VariablesFromObjectIgnoreOmitempty(interface{}) (commands.DispatchThrowErrorCommand, error) {
	return s, nil
}

func (s *throwCommand) Send(context.Context) (*pb.ThrowErrorResponse, error) {
	s.client.mu.Lock()
	defer s.client.mu.Unlock()
	s.client.Thrown = append(s.client.Thrown, ThrownError{JobKey: s.jobKey, ErrorCode: s.errorCode, ErrorMessage: s.errorMessage})
	return &pb.ThrowErrorResponse{}, nil
}
